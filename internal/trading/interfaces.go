package trading

import (
	"context"
	"errors"
)

// ErrOrderRejected wraps exchange answers with a non-2xx status.
var ErrOrderRejected = errors.New("order rejected by exchange")

// Client is the subset of a futures exchange the risk tooling relies on
type Client interface {
	// GetOpenPositions returns positions with a non-zero amount
	GetOpenPositions(ctx context.Context) ([]Position, error)

	// GetOpenOrders returns working orders for symbol
	GetOpenOrders(ctx context.Context, symbol string) ([]Order, error)

	// CreateOrder submits an order. On rejection it logs and returns a nil
	// order with an error wrapping ErrOrderRejected.
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// GetTickerPrice returns the last traded price
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
}

// Position 合约持仓
type Position struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"` // LONG 或 SHORT
	Amount        float64 `json:"amount"`
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Leverage      int     `json:"leverage"`
}

// OrderRequest 下单参数
type OrderRequest struct {
	Symbol     string
	Side       string  // BUY 或 SELL
	OrderType  string  // MARKET, LIMIT, STOP_MARKET, TAKE_PROFIT_MARKET
	Amount     float64 // 数量
	Price      float64 // 限价单价格
	StopPrice  float64 // 触发价格
	ReduceOnly bool

	// StepSize and TickSize truncate Amount and prices when set.
	StepSize float64
	TickSize float64
}

// Order 订单结构
type Order struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	OrderType  string  `json:"order_type"`
	Amount     float64 `json:"amount"`
	Price      float64 `json:"price"`
	StopPrice  float64 `json:"stop_price"`
	Status     string  `json:"status"`
	OrderID    string  `json:"order_id"`
	RawOrderID int64   `json:"raw_order_id"`
}
