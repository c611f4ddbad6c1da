package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/songzhibin97/riskladder/internal/data"
	"github.com/songzhibin97/riskladder/internal/models"
)

// ErrNoSource is returned when every source failed
var ErrNoSource = errors.New("all data sources failed")

// MultiSourceCollector implements data.BarCollector by trying sources in order
type MultiSourceCollector struct {
	sources []DataSource
	logger  Logger
}

var _ data.BarCollector = (*MultiSourceCollector)(nil)

// Logger is satisfied by *slog.Logger
type Logger interface {
	Error(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
}

type DataSource interface {
	Name() string
	CollectBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error)
	CollectPrice(ctx context.Context, symbol string) (float64, error)
}

func NewMultiSourceCollector(sources []DataSource, logger Logger) *MultiSourceCollector {
	return &MultiSourceCollector{
		sources: sources,
		logger:  logger,
	}
}

// CollectBars returns the first non-empty answer
func (c *MultiSourceCollector) CollectBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	var errs []error

	for _, source := range c.sources {
		bars, err := source.CollectBars(ctx, symbol, interval, limit)
		if err == nil && len(bars) > 0 {
			c.logger.Debug("collected bars", "source", source.Name(), "symbol", symbol, "count", len(bars))
			return bars, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: no bars", source.Name())
		}
		c.logger.Error("failed to collect bars", "source", source.Name(), "symbol", symbol, "err", err)
		errs = append(errs, err)
	}

	return nil, fmt.Errorf("%w: %w", ErrNoSource, errors.Join(errs...))
}

// CollectPrice returns the first positive price
func (c *MultiSourceCollector) CollectPrice(ctx context.Context, symbol string) (float64, error) {
	var errs []error

	for _, source := range c.sources {
		price, err := source.CollectPrice(ctx, symbol)
		if err == nil && price > 0 {
			return price, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: invalid price %v", source.Name(), price)
		}
		c.logger.Error("failed to collect price", "source", source.Name(), "symbol", symbol, "err", err)
		errs = append(errs, err)
	}

	return 0, fmt.Errorf("%w: %w", ErrNoSource, errors.Join(errs...))
}

// SubscribeToBars fetches once immediately, then on every tick. The channel
// is closed when ctx is done; slow readers lose updates.
func (c *MultiSourceCollector) SubscribeToBars(ctx context.Context, symbol, interval string, limit int, refreshInterval time.Duration) (<-chan []models.Bar, error) {
	if refreshInterval <= 0 {
		return nil, fmt.Errorf("invalid refresh interval: %v", refreshInterval)
	}
	if len(c.sources) == 0 {
		return nil, ErrNoSource
	}

	out := make(chan []models.Bar, 10)

	go func() {
		defer close(out)

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			bars, err := c.CollectBars(ctx, symbol, interval, limit)
			if err == nil {
				select {
				case out <- bars:
				default:
					c.logger.Error("channel full, dropping bars", "symbol", symbol)
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out, nil
}
