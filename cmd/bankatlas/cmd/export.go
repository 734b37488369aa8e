package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bankatlas/bankatlas/pkg/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <view>",
	Short: "Export a CSV report",
	Long: `Export writes one CSV report view into the configured export
directory. Views:
  summary      - one row per bank with headline scores
  detailed     - full profile columns per bank
  leadership   - one row per (bank, leader)
  departments  - one row per (bank, department)
  tasks        - open and completed research tasks
  template     - blank research worksheet for banks without MRM data`,
	Args: cobra.ExactArgs(1),
	Example: `  bankatlas export summary
  bankatlas export leadership
  bankatlas export template`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		view := export.View(strings.ToLower(args[0]))

		st, err := loadStore(ctx)
		if err != nil {
			return err
		}

		exporter := export.New(st, cfg.ExportDir)
		path, err := exporter.Export(ctx, view)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
