package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/monitoring"
	"github.com/songzhibin97/riskladder/internal/risk"
	"github.com/songzhibin97/riskladder/internal/system"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Keep the market regime current and watch open positions",
		Long: `Run polls klines for regime.symbol, stores each detected regime, and,
when exchange keys and risk.account_balance are set, alerts on open futures
positions whose loss exceeds the current risk budget. Prometheus metrics are
served on metrics.addr when metrics.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSystem(ctx, opts)
		},
	}
}

func runSystem(ctx context.Context, opts *rootOptions) error {
	cfg, log := opts.cfg, opts.logger

	metrics := monitoring.NewMetrics(nil)
	ctrl, cleanup, err := opts.openController(ctx, risk.WithObserver(metrics))
	if err != nil {
		return err
	}
	defer cleanup()
	log.Debug("init controller", "level", ctrl.CurrentLevel().String())

	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Addr, metrics, opts)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	collector := newCollector(cfg, log)
	detector, _ := newDetector(cfg, log)
	log.Debug("init collector and detector", "source", cfg.Regime.Source)

	var monitor *risk.PositionMonitor
	client, err := futuresClient(cfg, log)
	switch {
	case err != nil:
		log.Info("exchange keys not set, position monitor disabled")
	case cfg.Risk.AccountBalance <= 0:
		log.Info("risk.account_balance not set, position monitor disabled")
	default:
		monitor = risk.NewPositionMonitor(client, ctrl, cfg.Risk.AccountBalance, cfg.MonitorDuration(), log)
		log.Debug("init position monitor", "balance", cfg.Risk.AccountBalance)
	}

	sys := system.NewRiskSystem(cfg, collector, detector, ctrl, monitor, metrics, log)
	log.Info("risk system started", "symbol", cfg.Regime.Symbol, "interval", cfg.Regime.Interval)

	err = sys.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("risk system stopped")
		return nil
	}
	return err
}

func serveMetrics(addr string, metrics *monitoring.Metrics, opts *rootOptions) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			opts.logger.Error("metrics server failed", "err", err)
		}
	}()
	opts.logger.Info("serving metrics", "addr", addr)
	return srv
}
