package collector

import (
	"context"
	"fmt"

	"github.com/songzhibin97/riskladder/internal/models"
)

// ExchangeClient is the market-data side of an exchange SDK client
type ExchangeClient interface {
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error)
}

// ExchangeSource adapts an exchange client to DataSource, usually as a
// fallback behind the plain REST source.
type ExchangeSource struct {
	name   string
	client ExchangeClient
}

var _ DataSource = (*ExchangeSource)(nil)

func NewExchangeSource(name string, client ExchangeClient) *ExchangeSource {
	return &ExchangeSource{name: name, client: client}
}

func (s *ExchangeSource) Name() string {
	return s.name
}

func (s *ExchangeSource) CollectBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	if limit <= 0 || limit > 1500 {
		limit = 100
	}
	bars, err := s.client.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return bars, nil
}

func (s *ExchangeSource) CollectPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := s.client.GetTickerPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.name, err)
	}
	return price, nil
}
