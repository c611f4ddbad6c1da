package cmd

import (
	"github.com/spf13/cobra"
)

func newRecordCmd(opts *rootOptions) *cobra.Command {
	var (
		win  bool
		loss bool
		pnl  float64
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a closed trade and update the risk level",
		Long: `Record the outcome of a closed trade. Five wins in a row promote one
level, three losses demote one; after 20 trades the lifetime win rate and the
stored market regime adjust the level further.

Examples:
  riskladder record --win --pnl 25.4
  riskladder record --loss --pnl -12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, cleanup, err := opts.openController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			before := ctrl.CurrentLevel()
			result, err := ctrl.RecordTradeResult(cmd.Context(), win, pnl)
			if result.TotalTrades == 0 {
				// 状态读取失败，交易未记录
				return err
			}
			renderTradeResult(cmd.OutOrStdout(), before, result)
			return err
		},
	}

	cmd.Flags().BoolVar(&win, "win", false, "the trade was a winner")
	cmd.Flags().BoolVar(&loss, "loss", false, "the trade was a loser")
	cmd.Flags().Float64Var(&pnl, "pnl", 0, "realized profit or loss")
	cmd.MarkFlagsMutuallyExclusive("win", "loss")
	cmd.MarkFlagsOneRequired("win", "loss")
	return cmd
}
