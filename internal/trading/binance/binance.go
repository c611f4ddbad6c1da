package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/trading"
)

// FuturesClient implements trading.Client for Binance USD-M futures
type FuturesClient struct {
	client *futures.Client
	logger *slog.Logger
}

var _ trading.Client = (*FuturesClient)(nil)

// NewFuturesClient creates a client; debug switches to the futures testnet.
func NewFuturesClient(apiKey, secretKey string, logger *slog.Logger, debug ...bool) *FuturesClient {
	debug = append(debug, false)
	if debug[0] {
		futures.UseTestnet = true
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FuturesClient{
		client: binance.NewFuturesClient(apiKey, secretKey),
		logger: logger,
	}
}

// GetOpenPositions returns positions with a non-zero amount
func (b *FuturesClient) GetOpenPositions(ctx context.Context) ([]trading.Position, error) {
	risks, err := b.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get position risk: %w", err)
	}

	positions := make([]trading.Position, 0, len(risks))
	for _, p := range risks {
		amt, _ := strconv.ParseFloat(p.PositionAmt, 64)
		if amt == 0 {
			continue
		}

		side := "LONG"
		if amt < 0 {
			side = "SHORT"
		}
		if ps := strings.ToUpper(string(p.PositionSide)); ps == "LONG" || ps == "SHORT" {
			side = ps
		}

		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		mark, _ := strconv.ParseFloat(p.MarkPrice, 64)
		pnl, _ := strconv.ParseFloat(p.UnRealizedProfit, 64)
		leverage, _ := strconv.Atoi(p.Leverage)

		positions = append(positions, trading.Position{
			Symbol:        p.Symbol,
			Side:          side,
			Amount:        math.Abs(amt),
			EntryPrice:    entry,
			MarkPrice:     mark,
			UnrealizedPnL: pnl,
			Leverage:      leverage,
		})
	}
	return positions, nil
}

// GetOpenOrders returns working orders for symbol
func (b *FuturesClient) GetOpenOrders(ctx context.Context, symbol string) ([]trading.Order, error) {
	orders, err := b.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}

	result := make([]trading.Order, 0, len(orders))
	for _, o := range orders {
		price, _ := strconv.ParseFloat(o.Price, 64)
		stop, _ := strconv.ParseFloat(o.StopPrice, 64)
		amount, _ := strconv.ParseFloat(o.OrigQuantity, 64)

		result = append(result, trading.Order{
			Symbol:     o.Symbol,
			Side:       string(o.Side),
			OrderType:  string(o.Type),
			Amount:     amount,
			Price:      price,
			StopPrice:  stop,
			Status:     string(o.Status),
			OrderID:    strconv.FormatInt(o.OrderID, 10),
			RawOrderID: o.OrderID,
		})
	}
	return result, nil
}

// CreateOrder places an order. Exchange rejections are logged and returned
// as a nil order with an error wrapping trading.ErrOrderRejected.
func (b *FuturesClient) CreateOrder(ctx context.Context, req trading.OrderRequest) (*trading.Order, error) {
	var side futures.SideType
	switch strings.ToUpper(req.Side) {
	case "BUY":
		side = futures.SideTypeBuy
	case "SELL":
		side = futures.SideTypeSell
	default:
		return nil, fmt.Errorf("invalid side: %s", req.Side)
	}

	var orderType futures.OrderType
	switch strings.ToUpper(req.OrderType) {
	case "MARKET":
		orderType = futures.OrderTypeMarket
	case "LIMIT":
		orderType = futures.OrderTypeLimit
	case "STOP_MARKET":
		orderType = futures.OrderTypeStopMarket
	case "TAKE_PROFIT_MARKET":
		orderType = futures.OrderTypeTakeProfitMarket
	default:
		return nil, fmt.Errorf("unsupported order type: %s", req.OrderType)
	}

	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid order amount: %v", req.Amount)
	}

	quantity := formatStep(req.Amount, req.StepSize)
	service := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(orderType).
		Quantity(quantity)

	switch orderType {
	case futures.OrderTypeLimit:
		service = service.
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(formatStep(req.Price, req.TickSize))
	case futures.OrderTypeStopMarket, futures.OrderTypeTakeProfitMarket:
		service = service.
			StopPrice(formatStep(req.StopPrice, req.TickSize)).
			WorkingType(futures.WorkingTypeMarkPrice)
	}
	if req.ReduceOnly {
		service = service.ReduceOnly(true)
	}

	result, err := service.Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			b.logger.Error("order rejected",
				"symbol", req.Symbol,
				"side", req.Side,
				"type", req.OrderType,
				"quantity", quantity,
				"code", apiErr.Code,
				"msg", apiErr.Message)
			return nil, fmt.Errorf("%w: %s (code %d)", trading.ErrOrderRejected, apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	amount, _ := strconv.ParseFloat(result.OrigQuantity, 64)
	price, _ := strconv.ParseFloat(result.Price, 64)
	stop, _ := strconv.ParseFloat(result.StopPrice, 64)

	return &trading.Order{
		Symbol:     result.Symbol,
		Side:       string(result.Side),
		OrderType:  string(result.Type),
		Amount:     amount,
		Price:      price,
		StopPrice:  stop,
		Status:     string(result.Status),
		OrderID:    strconv.FormatInt(result.OrderID, 10),
		RawOrderID: result.OrderID,
	}, nil
}

// GetTickerPrice returns the last price for symbol
func (b *FuturesClient) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker price: %w", err)
	}

	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse price: %w", err)
		}
		return price, nil
	}

	return 0, fmt.Errorf("price not found for symbol: %s", symbol)
}

// GetKlines returns closed klines, oldest first. The still-forming bar is dropped.
func (b *FuturesClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	now := time.Now()
	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		closeTime := time.UnixMilli(k.CloseTime)
		if closeTime.After(now) {
			continue
		}

		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		bars = append(bars, models.Bar{
			Symbol:    symbol,
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: closeTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}
	return bars, nil
}

// formatStep truncates v down to a multiple of step (when step > 0).
func formatStep(v, step float64) string {
	d := decimal.NewFromFloat(v)
	if step > 0 {
		s := decimal.NewFromFloat(step)
		d = d.Div(s).Floor().Mul(s)
	}
	return d.String()
}
