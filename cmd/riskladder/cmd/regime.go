package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/risk"
)

func newRegimeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regime",
		Short: "Show, set or detect the market regime",
		Long: `The market regime nudges the risk level on every recorded trade and
shapes exit plans.

Labels (case-insensitive):
  bull, strong_bull, volatile_bull, bear, strong_bear, volatile_bear,
  sideways, choppy, neutral

Examples:
  riskladder regime set bear
  riskladder regime detect --symbol ETHUSDT --interval 4h --apply`,
	}

	cmd.AddCommand(newRegimeSetCmd(opts), newRegimeDetectCmd(opts))
	return cmd
}

func newRegimeSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <label>",
		Short: "Store a market regime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := models.ParseRegime(args[0])
			if !r.Valid() {
				return fmt.Errorf("%w: %q", risk.ErrUnknownRegime, args[0])
			}

			ctrl, cleanup, err := opts.openController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ctrl.SetMarketRegime(cmd.Context(), r); err != nil {
				return err
			}
			renderState(cmd.OutOrStdout(), ctrl.State())
			return nil
		},
	}
}

func newRegimeDetectCmd(opts *rootOptions) *cobra.Command {
	var (
		symbol   string
		interval string
		lookback int
		apply    bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Classify the market regime from recent futures klines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := opts.cfg.Regime
			if symbol == "" {
				symbol = rc.Symbol
			}
			if interval == "" {
				interval = rc.Interval
			}
			if lookback <= 0 {
				lookback = rc.Lookback
			}

			bars, err := newCollector(opts.cfg, opts.logger).CollectBars(cmd.Context(), symbol, interval, lookback)
			if err != nil {
				return fmt.Errorf("failed to collect bars: %w", err)
			}

			detector, indicator := newDetector(opts.cfg, opts.logger)
			r, err := detector.DetectRegime(cmd.Context(), bars)
			if err != nil {
				return err
			}
			m, ok := indicator.Metrics(bars)
			renderRegime(cmd.OutOrStdout(), symbol, interval, string(r), m, ok)

			if !apply {
				return nil
			}
			if r == models.RegimeUnknown {
				return fmt.Errorf("not enough bars to classify, regime left unchanged")
			}

			ctrl, cleanup, err := opts.openController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return ctrl.SetMarketRegime(cmd.Context(), r)
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "futures symbol, defaults to regime.symbol")
	cmd.Flags().StringVar(&interval, "interval", "", "kline interval, defaults to regime.interval")
	cmd.Flags().IntVar(&lookback, "lookback", 0, "number of klines, defaults to regime.lookback")
	cmd.Flags().BoolVar(&apply, "apply", false, "store the detected regime")
	return cmd
}
