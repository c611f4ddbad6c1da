package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/risk"
)

func newSizeCmd(opts *rootOptions) *cobra.Command {
	var req risk.SizingRequest

	cmd := &cobra.Command{
		Use:   "size",
		Short: "Calculate a position size from capital, entry and stop",
		Long: `Calculate the quantity whose loss at the stop equals capital times the
current risk percentage. Without --stop a 1.5% stop distance is assumed.

Example:
  riskladder size --capital 1000 --entry 65000 --stop 64000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Capital <= 0 {
				return fmt.Errorf("--capital must be positive")
			}

			ctrl, cleanup, err := opts.openController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			size := ctrl.CalculatePositionSize(req)
			level := ctrl.CurrentLevel()

			t := newTable(cmd.OutOrStdout(), "POSITION SIZE")
			t.AppendRows([]table.Row{
				{"Risk level", fmt.Sprintf("%s (%s)", level, pct(level.Percentage()))},
				{"Risk amount", fmt.Sprintf("%.2f", req.Capital*level.Percentage())},
				{"Entry", price(req.EntryPrice)},
				{"Stop", price(req.StopLossPrice)},
			})
			t.AppendSeparator()
			t.AppendRows([]table.Row{
				{"Quantity", price(size)},
				{"Notional", fmt.Sprintf("%.2f", size*req.EntryPrice)},
			})
			keyValueColumns(t)
			t.Render()
			return nil
		},
	}

	cmd.Flags().Float64Var(&req.Capital, "capital", 0, "account capital to size against (required)")
	cmd.Flags().Float64Var(&req.EntryPrice, "entry", 0, "entry price (required)")
	cmd.Flags().Float64Var(&req.StopLossPrice, "stop", 0, "stop-loss price")
	cmd.Flags().StringVar(&req.Symbol, "symbol", "", "symbol, for logging only")
	_ = cmd.MarkFlagRequired("capital")
	_ = cmd.MarkFlagRequired("entry")
	return cmd
}
