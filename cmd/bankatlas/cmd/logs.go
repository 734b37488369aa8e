package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bankatlas/bankatlas/internal/cmd/output"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent collection activity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := loadStore(ctx)
		if err != nil {
			return err
		}

		entries, err := st.Logs(ctx, logsLimit)
		if err != nil {
			return err
		}

		if tableFormat() {
			return formatter().Format(os.Stdout, output.LogTable(entries))
		}
		return formatter().Format(os.Stdout, entries)
	},
}

func init() {
	logsCmd.Flags().IntVar(&logsLimit, "limit", 20, "Maximum number of entries")
	rootCmd.AddCommand(logsCmd)
}
