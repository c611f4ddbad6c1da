package risk

import (
	"context"
	"errors"
	"time"

	"github.com/songzhibin97/riskladder/internal/models"
)

var (
	// ErrStateNotFound is returned by a StateStore that has never been written.
	ErrStateNotFound = errors.New("risk state not found")

	// ErrStateCorrupt wraps documents that cannot be decoded or fail validation.
	// Stores must not wrap I/O errors with it.
	ErrStateCorrupt = errors.New("risk state is corrupt")

	ErrUnknownRegime    = errors.New("unknown market regime")
	ErrInvalidDirection = errors.New("invalid trade direction")
)

// StateStore persists the controller state. Save overwrites the previous state.
type StateStore interface {
	// Load returns ErrStateNotFound when nothing has been saved yet
	Load(ctx context.Context) (*RiskState, error)

	// Save replaces the stored state with s
	Save(ctx context.Context, s *RiskState) error
}

// TradeJournal receives one record per RecordTradeResult call
type TradeJournal interface {
	RecordTrade(ctx context.Context, rec TradeRecord) error
}

// Observer is notified after every state change
type Observer interface {
	ObserveState(s RiskState)
	ObserveTrade(isWin bool, pnl float64)
}

// TradeResult 交易结果更新后的风险状态
type TradeResult struct {
	NewLevel    RiskLevel `json:"new_level"`
	RiskPct     float64   `json:"risk_pct"`
	WinRate     float64   `json:"win_rate"`
	TotalTrades int       `json:"total_trades"`
}

// TradeRecord 交易日志记录
type TradeRecord struct {
	ID          string        `json:"id"`
	Time        time.Time     `json:"time"`
	IsWin       bool          `json:"is_win"`
	PnL         float64       `json:"pnl"`
	LevelBefore RiskLevel     `json:"level_before"`
	LevelAfter  RiskLevel     `json:"level_after"`
	RiskPct     float64       `json:"risk_pct"`
	WinRate     float64       `json:"win_rate"`
	Regime      models.Regime `json:"regime"`
}

// Direction 交易方向
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// SizingRequest 仓位计算参数
type SizingRequest struct {
	Capital       float64
	EntryPrice    float64
	StopLossPrice float64
	Symbol        string // only used for logging
}

// ExitPlanRequest 止盈止损计划参数
type ExitPlanRequest struct {
	EntryPrice float64
	Direction  Direction
	Symbol     string

	// Regime overrides the controller's regime for this plan only.
	// Empty means use the stored regime.
	Regime models.Regime
}

// ExitPlan 止损、分批止盈与移动止损
type ExitPlan struct {
	EntryPrice         float64   `json:"entry_price"`
	Direction          Direction `json:"direction"`
	StopLoss           float64   `json:"stop_loss"`
	TakeProfit         float64   `json:"take_profit"`
	TP1                float64   `json:"tp1"`
	TP2                float64   `json:"tp2"`
	TP3                float64   `json:"tp3"`
	TP4                float64   `json:"tp4"`
	TrailingActivation float64   `json:"trailing_activation"`
	TrailingStep       float64   `json:"trailing_step"`
	SLPct              float64   `json:"sl_pct"`
	TPPct              float64   `json:"tp_pct"`
	RiskLevel          RiskLevel `json:"risk_level"`
	RiskPct            float64   `json:"risk_pct"`
}

// RiskAlert 风险预警信息
type RiskAlert struct {
	Symbol      string    `json:"symbol"`
	AlertType   string    `json:"alert_type"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Loss        float64   `json:"loss"`
	Limit       float64   `json:"limit"`
	Timestamp   time.Time `json:"timestamp"`
}
