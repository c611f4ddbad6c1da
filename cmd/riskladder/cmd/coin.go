package cmd

import (
	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/risk"
)

func newCoinCmd(opts *rootOptions) *cobra.Command {
	var (
		symbol  string
		tierArg string
		balance float64
	)

	cmd := &cobra.Command{
		Use:   "coin",
		Short: "Adjust a tier's base risk configuration for one coin",
		Long: `Apply the built-in coin profile to the base configuration of a risk
tier (low, medium, high, extremely_high). Coins not suited to a high tier are
capped; small accounts get a warning for coins that need more margin.

Example:
  riskladder coin --symbol DOGEUSDT --tier high --balance 300`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tierArg == "" {
				tierArg = opts.cfg.Risk.Tier
			}
			tier, err := risk.ParseRiskTier(tierArg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("balance") {
				balance = opts.cfg.Risk.AccountBalance
			}

			base := risk.TierParams(tier)
			adj := risk.AdjustRiskParamsForCoin(base, symbol, tier, balance)
			opts.logger.Debug("coin params adjusted", "symbol", adj.Symbol, "tier", tier, "clamped", adj.TierClamped)

			renderCoinAdjustment(cmd.OutOrStdout(), base, adj)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "coin or futures symbol (required)")
	cmd.Flags().StringVar(&tierArg, "tier", "", "risk tier, defaults to risk.tier from the config")
	cmd.Flags().Float64Var(&balance, "balance", 0, "account balance, defaults to risk.account_balance")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}
