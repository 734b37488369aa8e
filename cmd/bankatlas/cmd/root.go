// Package cmd implements the bankatlas command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bankatlas/bankatlas/internal/cmd/output"
	"github.com/bankatlas/bankatlas/internal/config"
	"github.com/bankatlas/bankatlas/pkg/logging"
	"github.com/bankatlas/bankatlas/pkg/store"
)

var (
	configFile string
	flagOutput string
	flagQuiet  bool
	verbose    bool

	cfg *config.Config

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bankatlas",
	Short: "Bank organizational-risk profile tracker",
	Long: `BankAtlas tracks model risk management (MRM) organizational profiles
across large banks. It collects observations from registries, filings,
websites, and professional networks, reconciles them into canonical
profiles, scores data completeness, and schedules follow-up research.`,
	PersistentPreRunE: setupCommand,
}

// Execute adds all child commands to the root command and runs it.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.bankatlas.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "",
		"Output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Minimal output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// setupCommand loads configuration and wires logging before any command
// runs.
func setupCommand(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg = loaded
	cfg.UpdateFromFlags(verbose, flagQuiet, flagOutput)

	if _, err := output.ParseFormat(cfg.Output); err != nil {
		return err
	}

	configureLogging()

	if cfg.Verbose && cfg.ConfigFile != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", cfg.ConfigFile)
	}
	return nil
}

// configureLogging sets up the logging system based on configuration.
func configureLogging() {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	if cfg.Quiet {
		level = zerolog.WarnLevel
	}

	zerolog.SetGlobalLevel(level)
	logging.SetDefault(logging.Default().Level(level))
}

// loadStore reads the snapshot named by the configuration. A missing
// snapshot yields an empty store.
func loadStore(ctx context.Context) (*store.Memory, error) {
	return store.Load(ctx, cfg.SnapshotPath)
}

// saveStore writes the snapshot back.
func saveStore(ctx context.Context, st *store.Memory) error {
	return store.Save(ctx, st, cfg.SnapshotPath)
}

// formatter returns the output formatter for the active format, falling
// back to terminal detection when no format was requested.
func formatter() output.Formatter {
	return output.NewFormatter(output.DetectFormat(cfg.Output))
}

// tableFormat reports whether the active format renders tables.
func tableFormat() bool {
	return output.DetectFormat(cfg.Output) == output.FormatTable
}
