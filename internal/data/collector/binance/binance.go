package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/riskladder/internal/models"
	"github.com/songzhibin97/riskladder/internal/utils/request"
)

const futuresBaseURL = "https://fapi.binance.com"

// BinanceDataSource reads public USD-M futures market data
type BinanceDataSource struct {
	baseURL    string
	httpClient *resty.Client
	now        func() time.Time
}

func NewBinanceDataSource() *BinanceDataSource {
	return &BinanceDataSource{
		baseURL:    futuresBaseURL,
		httpClient: request.Request,
		now:        time.Now,
	}
}

// NewBinanceDataSourceWithClient uses client, e.g. one built with a proxy
func NewBinanceDataSourceWithClient(client *resty.Client) *BinanceDataSource {
	ds := NewBinanceDataSource()
	ds.httpClient = client
	return ds
}

func (b *BinanceDataSource) Name() string {
	return "binance"
}

// CollectBars returns closed klines, oldest first. The still-forming bar is dropped.
func (b *BinanceDataSource) CollectBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	if limit <= 0 || limit > 1500 {
		limit = 100
	}

	resp, err := b.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		Get(b.baseURL + "/fapi/v1/klines")
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	now := b.now()
	bars := make([]models.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKline(symbol, row)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline %d: %w", i, err)
		}
		if bar.CloseTime.After(now) {
			continue
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// CollectPrice uses the futures ticker price endpoint
func (b *BinanceDataSource) CollectPrice(ctx context.Context, symbol string) (float64, error) {
	resp, err := b.httpClient.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		Get(b.baseURL + "/fapi/v1/ticker/price")
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(resp.Body(), &ticker); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price: %w", err)
	}
	return price, nil
}

// kline row: [openTime, open, high, low, close, volume, closeTime, ...]
func parseKline(symbol string, row []json.RawMessage) (models.Bar, error) {
	if len(row) < 7 {
		return models.Bar{}, fmt.Errorf("short kline row: %d fields", len(row))
	}

	var openMs, closeMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return models.Bar{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &closeMs); err != nil {
		return models.Bar{}, fmt.Errorf("close time: %w", err)
	}

	var values [5]float64
	for i := range values {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return models.Bar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Bar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		values[i] = v
	}

	return models.Bar{
		Symbol:    symbol,
		OpenTime:  time.UnixMilli(openMs).UTC(),
		CloseTime: time.UnixMilli(closeMs).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
