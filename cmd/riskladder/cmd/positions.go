package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/risk"
	"github.com/songzhibin97/riskladder/internal/trading"
)

func newPositionsCmd(opts *rootOptions) *cobra.Command {
	var balance float64

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Show open futures positions, their protective orders and risk alerts",
		Long: `List open futures positions with the stop and take-profit orders working
for each symbol. With an account balance (--balance or risk.account_balance)
each position's loss is checked against balance * current risk per trade.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := futuresClient(opts.cfg, opts.logger)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("balance") {
				balance = opts.cfg.Risk.AccountBalance
			}

			ctrl, cleanup, err := opts.openController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return showPositions(cmd.Context(), cmd.OutOrStdout(), client, ctrl, balance, opts.logger)
		},
	}

	cmd.Flags().Float64Var(&balance, "balance", 0, "account balance for the loss check (default risk.account_balance)")
	return cmd
}

func showPositions(ctx context.Context, w io.Writer, client trading.Client, ctrl *risk.Controller, balance float64, logger *slog.Logger) error {
	positions, err := client.GetOpenPositions(ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		fmt.Fprintln(w, "No open positions")
		return nil
	}

	orders := make(map[string][]trading.Order, len(positions))
	for _, p := range positions {
		if _, ok := orders[p.Symbol]; ok {
			continue
		}
		list, err := client.GetOpenOrders(ctx, p.Symbol)
		if err != nil {
			return err
		}
		orders[p.Symbol] = list
	}
	renderPositions(w, positions, orders)

	if balance <= 0 {
		return nil
	}
	alerts, err := risk.NewPositionMonitor(client, ctrl, balance, 0, logger).Check(ctx)
	if err != nil {
		return err
	}
	renderAlerts(w, alerts)
	return nil
}
