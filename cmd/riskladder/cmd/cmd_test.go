package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/riskladder/internal/data/storage"
	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/risk"
	"github.com/songzhibin97/riskladder/internal/trading"
)

type testEnv struct {
	configPath string
	statePath  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()

	env := testEnv{
		configPath: filepath.Join(dir, "config.yaml"),
		statePath:  filepath.Join(dir, "state", "adaptive_risk_config.json"),
	}
	config := fmt.Sprintf(`
risk:
  state_store: file
  state_path: %s
  tier: medium
journal:
  enabled: true
  db_path: %s
log:
  level: error
`, env.statePath, filepath.Join(dir, "journal.db"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(config), 0644))

	// 环境变量优先于配置文件
	t.Setenv("RISK_STATE_PATH", env.statePath)
	t.Setenv("RISK_STATE_STORE", "file")
	t.Setenv("LOG_LEVEL", "error")
	return env
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e testEnv) state(t *testing.T) *risk.RiskState {
	t.Helper()
	s, err := storage.NewFileStore(e.statePath).Load(context.Background())
	require.NoError(t, err)
	return s
}

func TestStatusCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "moderate")
	assert.Contains(t, out, "7.00%")
	assert.Contains(t, out, "NEUTRAL")
	assert.Contains(t, out, "extreme_risk")

	// the fresh state is persisted on first use
	assert.Equal(t, risk.Moderate, env.state(t).CurrentLevel)
}

func TestStatusCommand_JSON(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"current_risk_level": "moderate"`)
	assert.Contains(t, out, `"risk_levels"`)
}

func TestRecordCommand(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 4; i++ {
		_, err := env.run(t, "record", "--win", "--pnl", "10")
		require.NoError(t, err)
	}
	out, err := env.run(t, "record", "--win", "--pnl", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "moderate → aggressive")
	assert.Contains(t, out, "9.00%")

	s := env.state(t)
	assert.Equal(t, risk.Aggressive, s.CurrentLevel)
	assert.Equal(t, 5, s.WinStreak)
	assert.Equal(t, 5, s.TotalTrades)
}

func TestRecordCommand_Flags(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "record", "--pnl", "10")
	assert.Error(t, err)

	_, err = env.run(t, "record", "--win", "--loss")
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "record", "--loss", "--pnl", "-5")
	require.NoError(t, err)
	_, err = env.run(t, "record", "--win", "--pnl", "8.5")
	require.NoError(t, err)

	out, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "loss")
	assert.Contains(t, out, "8.50")
	assert.Contains(t, out, "-5.00")
}

func TestSizeCommand(t *testing.T) {
	env := newTestEnv(t)

	// risk 1000 * 7% = 70, stop distance 5%
	out, err := env.run(t, "size", "--capital", "1000", "--entry", "100", "--stop", "95")
	require.NoError(t, err)
	assert.Contains(t, out, "70.00")
	assert.Contains(t, out, "14.0000")

	_, err = env.run(t, "size", "--capital", "0", "--entry", "100")
	assert.Error(t, err)
}

func TestPlanCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "plan", "--entry", "100", "--direction", "long", "--regime", "bull")
	require.NoError(t, err)
	assert.Contains(t, out, "98.5000")
	assert.Contains(t, out, "103.0000")

	out, err = env.run(t, "plan", "--entry", "100", "--direction", "short", "--regime", "bull")
	require.NoError(t, err)
	assert.Contains(t, out, "101.5000")
	assert.Contains(t, out, "97.0000")

	// the override is not stored
	assert.Equal(t, models.RegimeNeutral, env.state(t).MarketRegime)
}

func TestPlanCommand_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing direction", []string{"plan", "--entry", "100"}},
		{"bad direction", []string{"plan", "--entry", "100", "--direction", "up"}},
		{"bad regime", []string{"plan", "--entry", "100", "--direction", "long", "--regime", "moon"}},
		{"no entry or symbol", []string{"plan", "--direction", "long"}},
		{"place without symbol", []string{"plan", "--entry", "100", "-d", "long", "--place", "--quantity", "1"}},
		{"place without size", []string{"plan", "--entry", "100", "-d", "long", "--place", "--symbol", "BTCUSDT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestExchangeCommands_RequireKeys(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_SECRET_KEY", "")

	_, err := env.run(t, "plan", "--entry", "100", "-d", "long", "--place", "--symbol", "BTCUSDT", "--capital", "1000")
	assert.ErrorIs(t, err, errNoExchangeKeys)

	_, err = env.run(t, "positions")
	assert.ErrorIs(t, err, errNoExchangeKeys)
}

// fakeExchange 测试用交易所
type fakeExchange struct {
	positions []trading.Position
	orders    map[string][]trading.Order
	requests  []trading.OrderRequest
	rejectAt  int // 1-based index of the rejected CreateOrder call, 0 accepts all
}

func (f *fakeExchange) GetOpenPositions(ctx context.Context) ([]trading.Position, error) {
	return f.positions, nil
}

func (f *fakeExchange) GetOpenOrders(ctx context.Context, symbol string) ([]trading.Order, error) {
	return f.orders[symbol], nil
}

func (f *fakeExchange) CreateOrder(ctx context.Context, req trading.OrderRequest) (*trading.Order, error) {
	f.requests = append(f.requests, req)
	if len(f.requests) == f.rejectAt {
		return nil, fmt.Errorf("%w: Order would immediately trigger. (code -2021)", trading.ErrOrderRejected)
	}
	return &trading.Order{
		Symbol:    req.Symbol,
		Side:      req.Side,
		OrderType: req.OrderType,
		Amount:    req.Amount,
		StopPrice: req.StopPrice,
		Status:    "NEW",
		OrderID:   fmt.Sprint(len(f.requests)),
	}, nil
}

func (f *fakeExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, fmt.Errorf("not used")
}

func TestPlaceExitOrders(t *testing.T) {
	tests := []struct {
		name     string
		plan     risk.ExitPlan
		wantSide string
	}{
		{"long closes with sell", risk.ExitPlan{Direction: risk.Long, StopLoss: 98.5, TakeProfit: 103}, "SELL"},
		{"short closes with buy", risk.ExitPlan{Direction: risk.Short, StopLoss: 101.5, TakeProfit: 97}, "BUY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExchange{}
			orders, err := placeExitOrders(context.Background(), ex, "BTCUSDT", tt.plan, 0.5)
			require.NoError(t, err)
			require.Len(t, orders, 2)
			require.Len(t, ex.requests, 2)

			stop, tp := ex.requests[0], ex.requests[1]
			assert.Equal(t, "STOP_MARKET", stop.OrderType)
			assert.Equal(t, tt.plan.StopLoss, stop.StopPrice)
			assert.Equal(t, "TAKE_PROFIT_MARKET", tp.OrderType)
			assert.Equal(t, tt.plan.TakeProfit, tp.StopPrice)
			for _, req := range ex.requests {
				assert.Equal(t, tt.wantSide, req.Side)
				assert.Equal(t, 0.5, req.Amount)
				assert.True(t, req.ReduceOnly)
			}
		})
	}
}

func TestPlaceExitOrders_Rejected(t *testing.T) {
	ex := &fakeExchange{rejectAt: 2}
	plan := risk.ExitPlan{Direction: risk.Long, StopLoss: 98.5, TakeProfit: 103}

	orders, err := placeExitOrders(context.Background(), ex, "BTCUSDT", plan, 1)
	require.ErrorIs(t, err, trading.ErrOrderRejected)
	assert.Contains(t, err.Error(), "TAKE_PROFIT_MARKET")
	require.Len(t, orders, 1)
	assert.Equal(t, "STOP_MARKET", orders[0].OrderType)

	_, err = placeExitOrders(context.Background(), &fakeExchange{}, "BTCUSDT", plan, 0)
	assert.Error(t, err)
}

func TestShowPositions(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := risk.NewController(ctx, storage.NewMemoryStore(), risk.WithLogger(logger))

	ex := &fakeExchange{
		positions: []trading.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: 0.01, EntryPrice: 50000, MarkPrice: 49000, UnrealizedPnL: -150, Leverage: 10},
			{Symbol: "SOLUSDT", Side: "SHORT", Amount: 3, EntryPrice: 100, MarkPrice: 99, UnrealizedPnL: 3, Leverage: 3},
		},
		orders: map[string][]trading.Order{
			"BTCUSDT": {{Symbol: "BTCUSDT", OrderType: "STOP_MARKET", StopPrice: 49250}},
		},
	}

	var out bytes.Buffer
	require.NoError(t, showPositions(ctx, &out, ex, ctrl, 1000, logger))
	assert.Contains(t, out.String(), "BTCUSDT")
	assert.Contains(t, out.String(), "49250.0000")
	assert.Contains(t, out.String(), "SOLUSDT")
	assert.Contains(t, out.String(), "none")
	// 限额 1000 * 7% = 70，亏损 150 为 HIGH
	assert.Contains(t, out.String(), "HIGH")
	assert.Contains(t, out.String(), "70.00")

	out.Reset()
	require.NoError(t, showPositions(ctx, &out, &fakeExchange{}, ctrl, 1000, logger))
	assert.Contains(t, out.String(), "No open positions")
}

func TestCoinCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "coin", "--symbol", "DOGEUSDT", "--tier", "high", "--balance", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "DOGE")
	assert.Contains(t, out, "10.00%")
	assert.Contains(t, out, "5.00%")
	assert.Contains(t, out, "5x")
	assert.Contains(t, out, "capped")
	assert.Contains(t, out, "not recommended")

	out, err = env.run(t, "coin", "--symbol", "BTCUSDT", "--tier", "high", "--balance", "10000")
	require.NoError(t, err)
	assert.NotContains(t, out, "capped")
	assert.Contains(t, out, "11.00%")

	_, err = env.run(t, "coin", "--symbol", "BTCUSDT", "--tier", "insane")
	assert.Error(t, err)
}

func TestRegimeSetCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "regime", "set", "strong-bear")
	require.NoError(t, err)
	assert.Contains(t, out, "STRONG_BEAR")
	assert.Equal(t, models.RegimeStrongBear, env.state(t).MarketRegime)

	_, err = env.run(t, "regime", "set", "moon")
	assert.ErrorIs(t, err, risk.ErrUnknownRegime)
	assert.Equal(t, models.RegimeStrongBear, env.state(t).MarketRegime)
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("RISK_STATE_STORE", "etcd")

	_, err := env.run(t, "status")
	assert.Error(t, err)
}
