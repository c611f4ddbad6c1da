package system

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/songzhibin97/riskladder/internal/configs"
	"github.com/songzhibin97/riskladder/internal/data"
	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/monitoring"
	"github.com/songzhibin97/riskladder/internal/regime"
	"github.com/songzhibin97/riskladder/internal/risk"
)

// RiskSystem feeds detected market regimes into the controller and reports
// position alerts until its context is cancelled.
type RiskSystem struct {
	config    *configs.Config
	collector data.BarCollector
	detector  regime.Detector
	ctrl      *risk.Controller
	monitor   *risk.PositionMonitor
	metrics   *monitoring.Metrics
	logger    *slog.Logger
}

// NewRiskSystem wires the loop; monitor and metrics may be nil.
func NewRiskSystem(
	config *configs.Config,
	collector data.BarCollector,
	detector regime.Detector,
	ctrl *risk.Controller,
	monitor *risk.PositionMonitor,
	metrics *monitoring.Metrics,
	logger *slog.Logger,
) *RiskSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskSystem{
		config:    config,
		collector: collector,
		detector:  detector,
		ctrl:      ctrl,
		monitor:   monitor,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run 运行风控主循环
func (s *RiskSystem) Run(ctx context.Context) error {
	rc := s.config.Regime

	// 订阅K线
	barsCh, err := s.collector.SubscribeToBars(ctx, rc.Symbol, rc.Interval, rc.Lookback, s.config.RefreshDuration())
	if err != nil {
		return fmt.Errorf("failed to subscribe to bars: %w", err)
	}
	s.logger.Debug("subscribe to bars ok", "symbol", rc.Symbol, "interval", rc.Interval)

	// 监控持仓风险
	var alertCh <-chan risk.RiskAlert
	if s.monitor != nil {
		alertCh, err = s.monitor.MonitorPositions(ctx)
		if err != nil {
			return fmt.Errorf("failed to start position monitor: %w", err)
		}
		s.logger.Debug("monitor positions ok")
	}

	// 主循环
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case bars, ok := <-barsCh:
			if !ok {
				barsCh = nil
				continue
			}
			if err := s.handleBars(ctx, bars); err != nil {
				s.logger.Error("error handling bars", "err", err)
			}

		case alert, ok := <-alertCh:
			if !ok {
				alertCh = nil
				continue
			}
			s.handleRiskAlert(alert)
		}
	}
}

// handleBars 识别市场状态并更新控制器
func (s *RiskSystem) handleBars(ctx context.Context, bars []models.Bar) error {
	// record 命令可能在别的进程里改变了等级
	if err := s.ctrl.Reload(ctx); err != nil {
		s.logger.Warn("failed to reload risk state", "err", err)
	}

	r, err := s.detector.DetectRegime(ctx, bars)
	if err != nil {
		return fmt.Errorf("failed to detect regime: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordRegime(r)
	}

	if r == models.RegimeUnknown {
		s.logger.Debug("regime unknown, keeping current", "bars", len(bars))
		return nil
	}

	return s.ctrl.SetMarketRegime(ctx, r)
}

// handleRiskAlert 记录风险预警
func (s *RiskSystem) handleRiskAlert(alert risk.RiskAlert) {
	if s.metrics != nil {
		s.metrics.RecordAlert(alert)
	}

	level := slog.LevelWarn
	if alert.Severity == "HIGH" {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "risk alert",
		"symbol", alert.Symbol,
		"type", alert.AlertType,
		"severity", alert.Severity,
		"loss", alert.Loss,
		"limit", alert.Limit,
		"description", alert.Description)
}
