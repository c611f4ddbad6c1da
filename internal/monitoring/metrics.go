package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/risk"
)

const namespace = "riskladder"

// Metrics exports controller state and position alerts to Prometheus
type Metrics struct {
	registry *prometheus.Registry

	riskLevel    prometheus.Gauge
	riskPct      prometheus.Gauge
	winRate      prometheus.Gauge
	winStreak    prometheus.Gauge
	lossStreak   prometheus.Gauge
	totalTrades  prometheus.Gauge
	marketRegime *prometheus.GaugeVec
	tradesTotal  *prometheus.CounterVec
	tradePnL     prometheus.Histogram
	alertsTotal  *prometheus.CounterVec
	regimeChecks *prometheus.CounterVec
}

var _ risk.Observer = (*Metrics)(nil)

// NewMetrics registers every collector on registry; nil creates a private one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		riskLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_level",
			Help:      "Current rung of the risk ladder (1 = ultra_conservative, 6 = extreme_risk)",
		}),
		riskPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_percentage",
			Help:      "Fraction of capital risked per trade at the current level",
		}),
		winRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "win_rate",
			Help:      "Lifetime ratio of winning trades",
		}),
		winStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "win_streak",
			Help:      "Consecutive winning trades",
		}),
		lossStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loss_streak",
			Help:      "Consecutive losing trades",
		}),
		totalTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trades_recorded",
			Help:      "Trades recorded in the persisted state",
		}),
		marketRegime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "market_regime",
			Help:      "1 for the active market regime, 0 otherwise",
		}, []string{"regime"}),
		tradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades recorded by this process",
		}, []string{"outcome"}),
		tradePnL: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_pnl",
			Help:      "Distribution of realized trade PnL",
			Buckets:   []float64{-1000, -100, -10, 0, 10, 100, 1000},
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_alerts_total",
			Help:      "Position loss alerts raised by the monitor",
		}, []string{"symbol", "severity"}),
		regimeChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regime_detections_total",
			Help:      "Regime detections by resulting label",
		}, []string{"regime"}),
	}

	registry.MustRegister(
		m.riskLevel,
		m.riskPct,
		m.winRate,
		m.winStreak,
		m.lossStreak,
		m.totalTrades,
		m.marketRegime,
		m.tradesTotal,
		m.tradePnL,
		m.alertsTotal,
		m.regimeChecks,
	)
	return m
}

// ObserveState implements risk.Observer
func (m *Metrics) ObserveState(s risk.RiskState) {
	m.riskLevel.Set(float64(s.CurrentLevel))
	m.riskPct.Set(s.CurrentLevel.Percentage())
	m.winRate.Set(s.WinRate())
	m.winStreak.Set(float64(s.WinStreak))
	m.lossStreak.Set(float64(s.LossStreak))
	m.totalTrades.Set(float64(s.TotalTrades))

	for _, r := range models.Regimes {
		v := 0.0
		if r == s.MarketRegime {
			v = 1
		}
		m.marketRegime.WithLabelValues(string(r)).Set(v)
	}
}

// ObserveTrade implements risk.Observer
func (m *Metrics) ObserveTrade(isWin bool, pnl float64) {
	outcome := "loss"
	if isWin {
		outcome = "win"
	}
	m.tradesTotal.WithLabelValues(outcome).Inc()
	m.tradePnL.Observe(pnl)
}

// RecordAlert counts a position alert
func (m *Metrics) RecordAlert(alert risk.RiskAlert) {
	m.alertsTotal.WithLabelValues(alert.Symbol, alert.Severity).Inc()
}

// RecordRegime counts a detection, including unknown results
func (m *Metrics) RecordRegime(r models.Regime) {
	m.regimeChecks.WithLabelValues(string(r)).Inc()
}

// Alerts returns the alert counter for one symbol and severity
func (m *Metrics) Alerts(symbol, severity string) prometheus.Counter {
	return m.alertsTotal.WithLabelValues(symbol, severity)
}

// RegimeDetections returns the detection counter for r
func (m *Metrics) RegimeDetections(r models.Regime) prometheus.Counter {
	return m.regimeChecks.WithLabelValues(string(r))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
