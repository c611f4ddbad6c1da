package risk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/songzhibin97/riskladder/internal/trading"
)

var errTimeout = errors.New("dial tcp 10.0.0.5:6379: i/o timeout")

// memStore 测试用内存存储
type memStore struct {
	mu        sync.Mutex
	state     *RiskState
	loadErr   error
	saveErr   error
	saves     int
	failLoads int // next failLoads loads return errTimeout
}

func (m *memStore) Load(ctx context.Context) (*RiskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoads > 0 {
		m.failLoads--
		return nil, errTimeout
	}
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.state == nil {
		return nil, ErrStateNotFound
	}
	return m.state.Clone(), nil
}

func (m *memStore) Save(ctx context.Context, s *RiskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = s.Clone()
	return nil
}

func (m *memStore) setFailLoads(n int) {
	m.mu.Lock()
	m.failLoads = n
	m.mu.Unlock()
}

func (m *memStore) saved() *RiskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	return m.state.Clone()
}

type memJournal struct {
	mu      sync.Mutex
	records []TradeRecord
	err     error
}

func (j *memJournal) RecordTrade(ctx context.Context, rec TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, rec)
	return nil
}

type countingObserver struct {
	states []RiskState
	trades int
}

func (o *countingObserver) ObserveState(s RiskState)             { o.states = append(o.states, s) }
func (o *countingObserver) ObserveTrade(isWin bool, pnl float64) { o.trades++ }

type staticPositions struct {
	positions []trading.Position
	err       error
}

func (p staticPositions) GetOpenPositions(ctx context.Context) ([]trading.Position, error) {
	return p.positions, p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestController starts from initial, or a fresh state when nil
func newTestController(initial *RiskState, opts ...Option) (*Controller, *memStore) {
	store := &memStore{state: initial}
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	return NewController(context.Background(), store, opts...), store
}

func record(c *Controller, outcomes ...bool) TradeResult {
	var last TradeResult
	for _, win := range outcomes {
		last, _ = c.RecordTradeResult(context.Background(), win, 0)
	}
	return last
}

func repeat(win bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = win
	}
	return out
}
