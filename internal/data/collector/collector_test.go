package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/riskladder/internal/models"
)

type fakeSource struct {
	name  string
	bars  []models.Bar
	price float64
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) CollectBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	f.calls++
	return f.bars, f.err
}

func (f *fakeSource) CollectPrice(ctx context.Context, symbol string) (float64, error) {
	f.calls++
	return f.price, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMultiSourceCollector_Fallback(t *testing.T) {
	bars := []models.Bar{{Symbol: "BTCUSDT", Close: 100}}
	broken := &fakeSource{name: "broken", err: errors.New("boom")}
	empty := &fakeSource{name: "empty"}
	good := &fakeSource{name: "good", bars: bars, price: 101}

	c := NewMultiSourceCollector([]DataSource{broken, empty, good}, testLogger())

	got, err := c.CollectBars(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	assert.Equal(t, bars, got)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, empty.calls)

	price, err := c.CollectPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 101.0, price)
}

func TestMultiSourceCollector_AllFail(t *testing.T) {
	c := NewMultiSourceCollector([]DataSource{
		&fakeSource{name: "a", err: errors.New("down")},
		&fakeSource{name: "b", err: errors.New("also down")},
	}, testLogger())

	_, err := c.CollectBars(context.Background(), "BTCUSDT", "1h", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSource)
	assert.Contains(t, err.Error(), "also down")

	_, err = c.CollectPrice(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestMultiSourceCollector_SubscribeToBars(t *testing.T) {
	bars := []models.Bar{{Symbol: "BTCUSDT", Close: 100}}
	c := NewMultiSourceCollector([]DataSource{&fakeSource{name: "good", bars: bars}}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.SubscribeToBars(ctx, "BTCUSDT", "1h", 10, 10*time.Millisecond)
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, bars, got)
	case <-time.After(time.Second):
		t.Fatal("no bars received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestMultiSourceCollector_SubscribeValidation(t *testing.T) {
	c := NewMultiSourceCollector(nil, testLogger())

	_, err := c.SubscribeToBars(context.Background(), "BTCUSDT", "1h", 10, time.Second)
	assert.ErrorIs(t, err, ErrNoSource)

	c = NewMultiSourceCollector([]DataSource{&fakeSource{name: "x"}}, testLogger())
	_, err = c.SubscribeToBars(context.Background(), "BTCUSDT", "1h", 10, 0)
	assert.Error(t, err)
}

type fakeExchange struct {
	price    float64
	bars     []models.Bar
	err      error
	gotLimit int
}

func (f *fakeExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, f.err
}

func (f *fakeExchange) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	f.gotLimit = limit
	return f.bars, f.err
}

func TestExchangeSource_Fallback(t *testing.T) {
	bars := []models.Bar{{Symbol: "ETHUSDT", Close: 3000}}
	rest := &fakeSource{name: "binance", err: errors.New("unexpected status code: 418")}
	exchange := &fakeExchange{price: 3001.5, bars: bars}

	c := NewMultiSourceCollector([]DataSource{rest, NewExchangeSource("binance-futures", exchange)}, testLogger())

	price, err := c.CollectPrice(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 3001.5, price)

	got, err := c.CollectBars(context.Background(), "ETHUSDT", "1h", 0)
	require.NoError(t, err)
	assert.Equal(t, bars, got)
	assert.Equal(t, 100, exchange.gotLimit)
}

func TestExchangeSource_Error(t *testing.T) {
	s := NewExchangeSource("binance-futures", &fakeExchange{err: errors.New("Invalid symbol.")})

	_, err := s.CollectPrice(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binance-futures")

	_, err = s.CollectBars(context.Background(), "NOPE", "1h", 50)
	assert.Error(t, err)
}
