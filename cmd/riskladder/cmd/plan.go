package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/risk"
	"github.com/songzhibin97/riskladder/internal/trading"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var (
		entry     float64
		symbol    string
		direction string
		regimeArg string
		place     bool
		quantity  float64
		capital   float64
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build stop-loss, take-profit legs and trailing stop for an entry",
		Long: `Build an exit plan at the current risk level. Without --entry the last
futures price of --symbol is fetched from Binance. --regime overrides the
stored market regime for this plan only.

With --place the stop-loss and final take-profit are submitted as reduce-only
STOP_MARKET and TAKE_PROFIT_MARKET orders for an existing position. The size
is --quantity, or the position size for --capital at the current risk level.

Examples:
  riskladder plan --entry 3200 --direction short
  riskladder plan --symbol BTCUSDT --direction long --regime volatile_bull
  riskladder plan --symbol ETHUSDT -d long --place --capital 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := risk.ParseDirection(direction)
			if err != nil {
				return err
			}

			var override models.Regime
			if regimeArg != "" {
				override = models.ParseRegime(regimeArg)
				if !override.Valid() {
					return fmt.Errorf("unknown market regime: %q", regimeArg)
				}
			}

			var client trading.Client
			if place {
				if symbol == "" {
					return fmt.Errorf("--place requires --symbol")
				}
				if quantity <= 0 && capital <= 0 {
					return fmt.Errorf("--place requires --quantity or --capital")
				}
				fc, err := futuresClient(opts.cfg, opts.logger)
				if err != nil {
					return err
				}
				client = fc
			}

			if entry <= 0 {
				if symbol == "" {
					return fmt.Errorf("either --entry or --symbol is required")
				}
				entry, err = newCollector(opts.cfg, opts.logger).CollectPrice(cmd.Context(), symbol)
				if err != nil {
					return fmt.Errorf("failed to fetch entry price: %w", err)
				}
			}

			ctrl, cleanup, err := opts.openController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			plan, err := ctrl.CalculateAdaptiveExitPlan(risk.ExitPlanRequest{
				EntryPrice: entry,
				Direction:  dir,
				Symbol:     symbol,
				Regime:     override,
			})
			if err != nil {
				return err
			}

			renderExitPlan(cmd.OutOrStdout(), symbol, plan)
			if client == nil {
				return nil
			}

			if quantity <= 0 {
				quantity = ctrl.CalculatePositionSize(risk.SizingRequest{
					Capital:       capital,
					EntryPrice:    entry,
					StopLossPrice: plan.StopLoss,
					Symbol:        symbol,
				})
			}
			orders, err := placeExitOrders(cmd.Context(), client, symbol, plan, quantity)
			renderOrders(cmd.OutOrStdout(), "PLACED ORDERS", orders)
			return err
		},
	}

	cmd.Flags().Float64Var(&entry, "entry", 0, "entry price")
	cmd.Flags().StringVar(&symbol, "symbol", "", "futures symbol, e.g. BTCUSDT")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "long or short (required)")
	cmd.Flags().StringVar(&regimeArg, "regime", "", "market regime for this plan only")
	cmd.Flags().BoolVar(&place, "place", false, "submit stop-loss and take-profit orders")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "order quantity for --place")
	cmd.Flags().Float64Var(&capital, "capital", 0, "size --place orders from this capital")
	_ = cmd.MarkFlagRequired("direction")
	return cmd
}

// placeExitOrders submits the protective stop, then the take-profit. It stops
// at the first failure and returns the orders placed so far.
func placeExitOrders(ctx context.Context, client trading.Client, symbol string, plan risk.ExitPlan, quantity float64) ([]trading.Order, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid order quantity: %v", quantity)
	}

	// 平仓方向与持仓相反
	side := "SELL"
	if plan.Direction == risk.Short {
		side = "BUY"
	}

	requests := []trading.OrderRequest{
		{Symbol: symbol, Side: side, OrderType: "STOP_MARKET", Amount: quantity, StopPrice: plan.StopLoss, ReduceOnly: true},
		{Symbol: symbol, Side: side, OrderType: "TAKE_PROFIT_MARKET", Amount: quantity, StopPrice: plan.TakeProfit, ReduceOnly: true},
	}

	var placed []trading.Order
	for _, req := range requests {
		order, err := client.CreateOrder(ctx, req)
		if err != nil {
			return placed, fmt.Errorf("failed to place %s order: %w", req.OrderType, err)
		}
		placed = append(placed, *order)
	}
	return placed, nil
}
