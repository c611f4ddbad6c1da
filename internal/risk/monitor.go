package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/songzhibin97/riskladder/internal/trading"
)

// PositionSource lists open positions, usually the exchange client
type PositionSource interface {
	GetOpenPositions(ctx context.Context) ([]trading.Position, error)
}

// PositionMonitor raises alerts for positions whose unrealized loss exceeds
// the amount the current risk level allows on the account balance.
type PositionMonitor struct {
	positions PositionSource
	ctrl      *Controller
	balance   float64
	interval  time.Duration
	logger    *slog.Logger
}

func NewPositionMonitor(positions PositionSource, ctrl *Controller, balance float64, interval time.Duration, logger *slog.Logger) *PositionMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PositionMonitor{
		positions: positions,
		ctrl:      ctrl,
		balance:   balance,
		interval:  interval,
		logger:    logger,
	}
}

// MonitorPositions polls until ctx is done. The returned channel is closed on exit.
func (m *PositionMonitor) MonitorPositions(ctx context.Context) (<-chan RiskAlert, error) {
	if m.balance <= 0 {
		return nil, fmt.Errorf("invalid account balance for monitoring: %v", m.balance)
	}

	alerts := make(chan RiskAlert, 100)

	go func() {
		defer close(alerts)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				found, err := m.Check(ctx)
				if err != nil {
					m.logger.Error("failed to check positions", "err", err)
					continue
				}
				for _, alert := range found {
					select {
					case alerts <- alert:
					default:
						m.logger.Warn("alert channel full, dropping alert", "symbol", alert.Symbol)
					}
				}
			}
		}
	}()

	return alerts, nil
}

// Check runs one pass over the open positions.
func (m *PositionMonitor) Check(ctx context.Context) ([]RiskAlert, error) {
	positions, err := m.positions.GetOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open positions: %w", err)
	}

	limit := m.balance * m.ctrl.CurrentRiskPercentage()
	now := time.Now()

	var alerts []RiskAlert
	for _, pos := range positions {
		loss := -pos.UnrealizedPnL
		if loss <= limit {
			continue
		}
		alerts = append(alerts, RiskAlert{
			Symbol:      pos.Symbol,
			AlertType:   "Position Loss",
			Severity:    getSeverityLevel(loss, limit),
			Description: fmt.Sprintf("%s %s loss %.2f exceeds risk limit %.2f", pos.Symbol, pos.Side, loss, limit),
			Loss:        loss,
			Limit:       limit,
			Timestamp:   now,
		})
	}
	return alerts, nil
}

func getSeverityLevel(loss, limit float64) string {
	switch {
	case loss >= 2*limit:
		return "HIGH"
	case loss >= 1.5*limit:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
