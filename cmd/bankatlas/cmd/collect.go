package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bankatlas/bankatlas/internal/collectors/registry"
	"github.com/bankatlas/bankatlas/pkg/logging"
	"github.com/bankatlas/bankatlas/pkg/orchestrate"
	"github.com/bankatlas/bankatlas/pkg/reconcile"
	"github.com/bankatlas/bankatlas/pkg/store"
)

var collectFlags struct {
	top        int
	limit      int
	missingMRM bool
	rosterOnly bool
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a collection batch against tracked banks",
	Long: `Collect refreshes the bank roster from the registry API, then runs an
orchestrated collection batch over tracked banks: fetching fresh records
from each configured source, reconciling them into canonical profiles,
and recording every attempt in the collection log.`,
	Example: `  bankatlas collect --top 100          # Refresh the top-100 roster, then collect
  bankatlas collect --missing-mrm      # Only banks without MRM data
  bankatlas collect --top 50 --roster-only`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := loadStore(ctx)
		if err != nil {
			return err
		}

		client := registry.New(
			registry.WithBaseURL(cfg.RegistryBaseURL),
			registry.WithAPIKey(cfg.RegistryAPIKey),
			registry.WithTimeout(cfg.RegistryTimeout),
		)
		engine := reconcile.New(st, reconcile.WithWeights(cfg.Weights()))

		if collectFlags.top > 0 {
			if err := refreshRoster(cmd, st, client, engine); err != nil {
				return err
			}
			if collectFlags.rosterOnly {
				return saveStore(ctx, st)
			}
		}

		targets, err := collectTargets(cmd, st)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return fmt.Errorf("no tracked banks to collect; run with --top to seed the roster")
		}

		orchestrator := orchestrate.New(st, engine, []orchestrate.Collector{client},
			orchestrate.WithSubBatchSize(cfg.SubBatchSize),
			orchestrate.WithConcurrency(cfg.Concurrency),
			orchestrate.WithSourceDelay(cfg.SourceDelay),
			orchestrate.WithCooldown(cfg.BatchCooldown),
		)

		result, runErr := orchestrator.Run(ctx, targets)
		if saveErr := saveStore(ctx, st); saveErr != nil {
			return saveErr
		}
		if runErr != nil {
			return runErr
		}

		if tableFormat() {
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			return nil
		}
		return formatter().Format(os.Stdout, result)
	},
}

func init() {
	collectCmd.Flags().IntVar(&collectFlags.top, "top", 0, "Refresh the roster with the top N banks by assets first")
	collectCmd.Flags().IntVar(&collectFlags.limit, "limit", 0, "Maximum number of banks to collect")
	collectCmd.Flags().BoolVar(&collectFlags.missingMRM, "missing-mrm", false, "Only collect banks without MRM data")
	collectCmd.Flags().BoolVar(&collectFlags.rosterOnly, "roster-only", false, "Refresh the roster and stop")
	rootCmd.AddCommand(collectCmd)
}

// refreshRoster pulls the ranked bank roster from the registry and
// reconciles it into the store.
func refreshRoster(cmd *cobra.Command, st *store.Memory, client *registry.Client, engine *reconcile.Engine) error {
	ctx := cmd.Context()

	roster, err := client.TopBanksByAssets(ctx, collectFlags.top)
	if err != nil {
		return err
	}

	report := engine.ReconcileAll(ctx, roster)
	logging.Info().
		Int("banks", len(roster)).
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Msg("Refreshed bank roster")
	return nil
}

// collectTargets derives batch targets from the tracked banks.
func collectTargets(cmd *cobra.Command, st *store.Memory) ([]orchestrate.Target, error) {
	q := store.Query{Limit: collectFlags.limit}
	if collectFlags.missingMRM {
		no := false
		q.HasMRMData = &no
	}

	banks, err := st.QueryBanks(cmd.Context(), q)
	if err != nil {
		return nil, err
	}

	targets := make([]orchestrate.Target, 0, len(banks))
	for _, b := range banks {
		targets = append(targets, orchestrate.Target{
			EntityKey: b.Key,
			Name:      b.Name(),
			CertID:    b.CertID(),
		})
	}
	return targets, nil
}
