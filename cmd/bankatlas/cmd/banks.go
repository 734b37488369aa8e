package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bankatlas/bankatlas/internal/cmd/output"
	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
	"github.com/bankatlas/bankatlas/pkg/store"
)

var banksFlags struct {
	state           string
	size            string
	rankMin         int
	rankMax         int
	minCompleteness float64
	mrmOnly         bool
	missingMRM      bool
	limit           int
}

var banksCmd = &cobra.Command{
	Use:     "banks [name-or-key]",
	Aliases: []string{"bank", "detail"},
	Short:   "List tracked banks or show one bank's profile",
	Args:    cobra.MaximumNArgs(1),
	Example: `  bankatlas banks                      # List all tracked banks
  bankatlas banks cert:628             # Show one bank by identity key
  bankatlas banks "Wells Fargo Bank"   # Show one bank by name
  bankatlas banks --state NY --mrm     # NY banks with MRM data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := loadStore(ctx)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			return showBank(cmd, st, args[0])
		}
		return listBanks(cmd, st)
	},
}

func init() {
	banksCmd.Flags().StringVar(&banksFlags.state, "state", "", "Filter by headquarters state")
	banksCmd.Flags().StringVar(&banksFlags.size, "size", "", "Filter by size category (mega, large, regional, community, small)")
	banksCmd.Flags().IntVar(&banksFlags.rankMin, "rank-min", 0, "Minimum asset rank")
	banksCmd.Flags().IntVar(&banksFlags.rankMax, "rank-max", 0, "Maximum asset rank")
	banksCmd.Flags().Float64Var(&banksFlags.minCompleteness, "min-completeness", 0, "Minimum completeness score")
	banksCmd.Flags().BoolVar(&banksFlags.mrmOnly, "mrm", false, "Only banks with MRM data")
	banksCmd.Flags().BoolVar(&banksFlags.missingMRM, "missing-mrm", false, "Only banks without MRM data")
	banksCmd.Flags().IntVar(&banksFlags.limit, "limit", 0, "Maximum number of results")
	rootCmd.AddCommand(banksCmd)
}

func listBanks(cmd *cobra.Command, st *store.Memory) error {
	q := store.Query{
		State:           banksFlags.state,
		Size:            entities.SizeCategory(banksFlags.size),
		RankMin:         banksFlags.rankMin,
		RankMax:         banksFlags.rankMax,
		MinCompleteness: banksFlags.minCompleteness,
		Limit:           banksFlags.limit,
	}
	switch {
	case banksFlags.mrmOnly:
		yes := true
		q.HasMRMData = &yes
	case banksFlags.missingMRM:
		no := false
		q.HasMRMData = &no
	}

	banks, err := st.QueryBanks(cmd.Context(), q)
	if err != nil {
		return err
	}

	if tableFormat() {
		return formatter().Format(os.Stdout, output.BankTable(banks))
	}
	return formatter().Format(os.Stdout, banks)
}

func showBank(cmd *cobra.Command, st *store.Memory, nameOrKey string) error {
	ctx := cmd.Context()

	bank, err := st.Bank(ctx, nameOrKey)
	if errors.IsNotFound(err) {
		// Fall back to a name lookup.
		matches, qerr := st.QueryBanks(ctx, store.Query{Name: nameOrKey, Limit: 1})
		if qerr != nil {
			return qerr
		}
		if len(matches) == 0 {
			cmd.SilenceUsage = true
			return errors.NewNotFoundError("bank", nameOrKey)
		}
		bank = matches[0]
	} else if err != nil {
		return err
	}

	if !tableFormat() {
		return formatter().Format(os.Stdout, bank)
	}

	if err := formatter().Format(os.Stdout, output.DetailTable(bank)); err != nil {
		return err
	}
	if len(bank.Leadership) == 0 {
		return nil
	}

	leaders := make([]*entities.PersonEntity, 0, len(bank.Leadership))
	for _, key := range bank.Leadership {
		if p, perr := st.Person(ctx, key); perr == nil {
			leaders = append(leaders, p)
		}
	}
	return formatter().Format(os.Stdout, output.LeadershipTable(leaders))
}
