package monitoring

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/riskladder/internal/data/storage"
	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/risk"
)

func TestMetrics_ObserveState(t *testing.T) {
	m := NewMetrics(nil)

	m.ObserveState(risk.RiskState{
		CurrentLevel:  risk.HighRisk,
		WinStreak:     4,
		TotalTrades:   10,
		WinningTrades: 7,
		MarketRegime:  models.RegimeBull,
	})

	assert.Equal(t, 5.0, testutil.ToFloat64(m.riskLevel))
	assert.Equal(t, 0.15, testutil.ToFloat64(m.riskPct))
	assert.InDelta(t, 0.7, testutil.ToFloat64(m.winRate), 1e-9)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.winStreak))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lossStreak))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.totalTrades))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.marketRegime.WithLabelValues("BULL")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.marketRegime.WithLabelValues("BEAR")))
}

func TestMetrics_WithController(t *testing.T) {
	m := NewMetrics(nil)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl := risk.NewController(ctx, storage.NewMemoryStore(), risk.WithLogger(logger), risk.WithObserver(m))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.riskLevel))

	for i := 0; i < 3; i++ {
		_, err := ctrl.RecordTradeResult(ctx, false, -20)
		require.NoError(t, err)
	}
	_, err := ctrl.RecordTradeResult(ctx, true, 50)
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.tradesTotal.WithLabelValues("loss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradesTotal.WithLabelValues("win")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.riskLevel))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.winStreak))

	require.NoError(t, ctrl.SetMarketRegime(ctx, models.RegimeChoppy))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.marketRegime.WithLabelValues("CHOPPY")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.marketRegime.WithLabelValues("NEUTRAL")))
}

func TestMetrics_AlertsAndRegimes(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordAlert(risk.RiskAlert{Symbol: "BTCUSDT", Severity: "HIGH"})
	m.RecordAlert(risk.RiskAlert{Symbol: "BTCUSDT", Severity: "HIGH"})
	m.RecordAlert(risk.RiskAlert{Symbol: "ETHUSDT", Severity: "LOW"})
	m.RecordRegime(models.RegimeUnknown)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.alertsTotal.WithLabelValues("BTCUSDT", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertsTotal.WithLabelValues("ETHUSDT", "LOW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.regimeChecks.WithLabelValues("unknown")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveState(risk.RiskState{CurrentLevel: risk.Moderate, MarketRegime: models.RegimeNeutral})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "riskladder_risk_level 3")
	assert.Contains(t, rec.Body.String(), `riskladder_market_regime{regime="NEUTRAL"} 1`)
}
