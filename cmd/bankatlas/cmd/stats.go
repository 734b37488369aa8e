package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bankatlas/bankatlas/internal/cmd/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := loadStore(ctx)
		if err != nil {
			return err
		}

		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}

		if tableFormat() {
			return formatter().Format(os.Stdout, output.StatsTable(stats))
		}
		return formatter().Format(os.Stdout, stats)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
