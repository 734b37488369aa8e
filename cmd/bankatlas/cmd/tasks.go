package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bankatlas/bankatlas/internal/cmd/output"
	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/logging"
	"github.com/bankatlas/bankatlas/pkg/schedule"
	"github.com/bankatlas/bankatlas/pkg/store"
)

var tasksFlags struct {
	scan   bool
	status string
	limit  int
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List research tasks, optionally scanning for new ones",
	Example: `  bankatlas tasks                  # List open research tasks
  bankatlas tasks --scan           # Scan profiles and generate new tasks
  bankatlas tasks --status completed`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := loadStore(ctx)
		if err != nil {
			return err
		}

		if tasksFlags.scan {
			scheduler := schedule.New(st,
				schedule.WithThreshold(cfg.CompletenessThreshold),
				schedule.WithStaleness(cfg.StalenessWindow),
			)
			created, err := scheduler.Scan(ctx)
			if err != nil {
				return err
			}
			if err := saveStore(ctx, st); err != nil {
				return err
			}
			logging.Info().Int("created", len(created)).Msg("Research scan complete")
		}

		filter := store.TaskFilter{Limit: tasksFlags.limit}
		if tasksFlags.status != "" {
			filter.Statuses = []entities.TaskStatus{entities.TaskStatus(tasksFlags.status)}
		} else {
			filter.Statuses = []entities.TaskStatus{entities.TaskPending, entities.TaskInProgress}
		}

		tasks, err := st.Tasks(ctx, filter)
		if err != nil {
			return err
		}

		if !tableFormat() {
			return formatter().Format(os.Stdout, tasks)
		}

		names := make(map[string]string)
		banks, err := st.Banks(ctx)
		if err != nil {
			return err
		}
		for _, b := range banks {
			names[b.Key] = b.Name()
		}
		return formatter().Format(os.Stdout, output.TaskTable(tasks, names))
	},
}

func init() {
	tasksCmd.Flags().BoolVar(&tasksFlags.scan, "scan", false, "Scan profiles and generate new research tasks first")
	tasksCmd.Flags().StringVar(&tasksFlags.status, "status", "", "Filter by task status (pending, in_progress, completed, failed)")
	tasksCmd.Flags().IntVar(&tasksFlags.limit, "limit", 0, "Maximum number of results")
	rootCmd.AddCommand(tasksCmd)
}
