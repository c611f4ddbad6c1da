package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/songzhibin97/riskladder/internal/models"
)

const (
	winStreakPromote = 5
	lossStreakDemote = 3

	minTradesForWinRate = 20
	lowWinRate          = 0.40
	highWinRate         = 0.65

	// fallback stop distance when entry/stop cannot produce one
	defaultRiskPerUnit = 0.015
)

// winRateDemotion drops two rungs; the bottom two levels are absent on purpose.
var winRateDemotion = map[RiskLevel]RiskLevel{
	Moderate:    UltraConservative,
	Aggressive:  Conservative,
	HighRisk:    Moderate,
	ExtremeRisk: Aggressive,
}

// Controller walks the risk ladder from trade outcomes and market regime,
// and derives position size and exit plans from the current level.
type Controller struct {
	mu       sync.Mutex
	state    *RiskState
	dirty    bool // state holds changes the store rejected
	store    StateStore
	journal  TradeJournal
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithJournal(j TradeJournal) Option {
	return func(c *Controller) { c.journal = j }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController loads state from store. A missing or corrupt document is
// replaced by DefaultState and written back immediately. Any other load
// error leaves the store untouched and the controller starts from
// DefaultState in memory until a later reload succeeds.
func NewController(ctx context.Context, store StateStore, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state = c.loadState(ctx)
	if c.observer != nil {
		c.observer.ObserveState(*c.state)
	}
	return c
}

func (c *Controller) loadState(ctx context.Context) *RiskState {
	s, err := c.store.Load(ctx)
	switch {
	case err == nil && s != nil:
		c.logger.Info("loaded risk state",
			"level", s.CurrentLevel.String(),
			"total_trades", s.TotalTrades,
			"regime", s.MarketRegime)
		return s
	case err == nil, errors.Is(err, ErrStateNotFound):
		c.logger.Info("no saved risk state, starting fresh", "level", DefaultLevel.String())
	case errors.Is(err, ErrStateCorrupt):
		c.logger.Warn("corrupt risk state, resetting to default", "err", err)
	default:
		// 存储暂时不可用，不能覆盖已有计数
		c.logger.Error("failed to load risk state, keeping store untouched", "err", err)
		s = DefaultState()
		s.LastUpdate = c.now().UTC()
		return s
	}

	s = DefaultState()
	s.LastUpdate = c.now().UTC()
	if err := c.store.Save(ctx, s); err != nil {
		c.logger.Error("failed to persist default risk state", "err", err)
		c.dirty = true
	}
	return s
}

// reload adopts the stored state before a write, so updates saved by other
// processes sharing the store are kept. Unsaved local changes (dirty) win.
// A missing or corrupt document keeps the in-memory state.
func (c *Controller) reload(ctx context.Context) error {
	if c.dirty {
		return nil
	}

	s, err := c.store.Load(ctx)
	switch {
	case err == nil && s != nil:
		c.state = s
	case err == nil, errors.Is(err, ErrStateNotFound):
	case errors.Is(err, ErrStateCorrupt):
		c.logger.Warn("stored risk state is corrupt, overwriting it", "err", err)
	default:
		return fmt.Errorf("failed to reload risk state: %w", err)
	}
	return nil
}

// save persists the in-memory state and tracks whether it is ahead of the store.
func (c *Controller) save(ctx context.Context) error {
	if err := c.store.Save(ctx, c.state); err != nil {
		c.dirty = true
		return err
	}
	c.dirty = false
	return nil
}

// Reload refreshes the in-memory state from the store.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reload(ctx); err != nil {
		return err
	}
	if c.observer != nil {
		c.observer.ObserveState(*c.state)
	}
	return nil
}

// RecordTradeResult updates counters and streaks, then runs the streak,
// win-rate and regime passes in that order, each reading the level left by
// the previous pass. The stored state is re-read first and saved before
// returning; a save error is returned but the in-memory update stands. If the
// store cannot be read the trade is not applied.
func (c *Controller) RecordTradeResult(ctx context.Context, isWin bool, pnl float64) (TradeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reload(ctx); err != nil {
		return TradeResult{}, err
	}

	s := c.state
	before := s.CurrentLevel

	s.TotalTrades++
	if isWin {
		s.WinningTrades++
		s.WinStreak++
		s.LossStreak = 0
	} else {
		s.LossStreak++
		s.WinStreak = 0
	}

	level := applyStreak(s.CurrentLevel, s)
	level = applyWinRate(level, s)
	level = applyRegime(level, s.MarketRegime)
	s.CurrentLevel = level
	s.LastUpdate = c.now().UTC()

	result := TradeResult{
		NewLevel:    s.CurrentLevel,
		RiskPct:     s.CurrentLevel.Percentage(),
		WinRate:     s.WinRate(),
		TotalTrades: s.TotalTrades,
	}

	if before != s.CurrentLevel {
		c.logger.Info("risk level changed",
			"from", before.String(),
			"to", s.CurrentLevel.String(),
			"win_streak", s.WinStreak,
			"loss_streak", s.LossStreak,
			"win_rate", result.WinRate,
			"regime", s.MarketRegime)
	}
	c.logger.Debug("trade recorded", "win", isWin, "pnl", pnl, "level", s.CurrentLevel.String())

	saveErr := c.save(ctx)

	if c.journal != nil {
		rec := TradeRecord{
			Time:        s.LastUpdate,
			IsWin:       isWin,
			PnL:         pnl,
			LevelBefore: before,
			LevelAfter:  s.CurrentLevel,
			RiskPct:     result.RiskPct,
			WinRate:     result.WinRate,
			Regime:      s.MarketRegime,
		}
		if err := c.journal.RecordTrade(ctx, rec); err != nil {
			c.logger.Warn("failed to journal trade", "err", err)
		}
	}
	if c.observer != nil {
		c.observer.ObserveTrade(isWin, pnl)
		c.observer.ObserveState(*s)
	}

	if saveErr != nil {
		return result, fmt.Errorf("failed to persist risk state: %w", saveErr)
	}
	return result, nil
}

func applyStreak(level RiskLevel, s *RiskState) RiskLevel {
	switch {
	case s.WinStreak >= winStreakPromote:
		return level.Up()
	case s.LossStreak >= lossStreakDemote:
		return level.Down()
	}
	return level
}

func applyWinRate(level RiskLevel, s *RiskState) RiskLevel {
	if s.TotalTrades < minTradesForWinRate {
		return level
	}

	winRate := s.WinRate()
	switch {
	case winRate < lowWinRate:
		if next, ok := winRateDemotion[level]; ok {
			return next
		}
	case winRate > highWinRate:
		if level < HighRisk {
			return level.Up()
		}
	}
	return level
}

// applyRegime never promotes past Aggressive nor demotes below Conservative.
func applyRegime(level RiskLevel, regime models.Regime) RiskLevel {
	switch regime {
	case models.RegimeBull, models.RegimeStrongBull:
		if level < Aggressive {
			return level.Up()
		}
	case models.RegimeBear, models.RegimeStrongBear:
		if level > Conservative {
			return level.Down()
		}
	}
	return level
}

// SetMarketRegime stores the regime used by later passes and exit plans.
// Only the regime of the freshly loaded state changes.
func (c *Controller) SetMarketRegime(ctx context.Context, regime models.Regime) error {
	if !regime.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRegime, regime)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reload(ctx); err != nil {
		return err
	}
	if c.state.MarketRegime == regime {
		return nil
	}

	prev := c.state.MarketRegime
	c.state.MarketRegime = regime
	c.state.LastUpdate = c.now().UTC()
	c.logger.Info("market regime updated", "from", prev, "to", regime)

	if c.observer != nil {
		c.observer.ObserveState(*c.state)
	}
	if err := c.save(ctx); err != nil {
		return fmt.Errorf("failed to persist risk state: %w", err)
	}
	return nil
}

// CurrentRiskPercentage returns the fraction of capital to risk per trade.
func (c *Controller) CurrentRiskPercentage() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CurrentLevel.Percentage()
}

func (c *Controller) CurrentLevel() RiskLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CurrentLevel
}

// State returns a copy of the current state.
func (c *Controller) State() RiskState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.state
}

// CalculatePositionSize returns the quantity whose loss at the stop equals
// capital * current risk percentage. It does not touch state. Leverage,
// fees and lot-size rounding are left to the caller.
func (c *Controller) CalculatePositionSize(req SizingRequest) float64 {
	riskAmount := req.Capital * c.CurrentRiskPercentage()

	entry := req.EntryPrice
	if entry <= 0 || !isFinite(entry) {
		c.logger.Warn("invalid entry price for sizing", "symbol", req.Symbol, "entry", entry)
		return 0
	}

	riskPerUnit := defaultRiskPerUnit
	if req.StopLossPrice != 0 && isFinite(req.StopLossPrice) {
		riskPerUnit = math.Abs(entry-req.StopLossPrice) / entry
	}
	if riskPerUnit == 0 {
		riskPerUnit = defaultRiskPerUnit
	}

	size := riskAmount / (entry * riskPerUnit)
	c.logger.Debug("position size calculated",
		"symbol", req.Symbol,
		"risk_amount", riskAmount,
		"risk_per_unit", riskPerUnit,
		"size", size)
	return size
}

// CalculateAdaptiveExitPlan builds stop, take-profit legs and trailing
// parameters for an entry at the current level.
func (c *Controller) CalculateAdaptiveExitPlan(req ExitPlanRequest) (ExitPlan, error) {
	if req.Direction != Long && req.Direction != Short {
		return ExitPlan{}, fmt.Errorf("%w: %q", ErrInvalidDirection, req.Direction)
	}
	if req.EntryPrice <= 0 || !isFinite(req.EntryPrice) {
		return ExitPlan{}, fmt.Errorf("invalid entry price: %v", req.EntryPrice)
	}

	c.mu.Lock()
	level := c.state.CurrentLevel
	regime := c.state.MarketRegime
	c.mu.Unlock()

	if req.Regime != "" {
		regime = req.Regime
	}

	plan := buildExitPlan(req.EntryPrice, req.Direction, level, regime)
	c.logger.Debug("exit plan calculated",
		"symbol", req.Symbol,
		"direction", req.Direction,
		"regime", regime,
		"stop_loss", plan.StopLoss,
		"take_profit", plan.TakeProfit)
	return plan, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
