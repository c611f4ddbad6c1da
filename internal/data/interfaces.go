package data

import (
	"context"
	"time"

	"github.com/songzhibin97/riskladder/internal/models"
)

// BarCollector 负责从各种源收集K线数据
type BarCollector interface {
	// CollectBars retrieves the most recent closed bars, oldest first
	CollectBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error)

	// CollectPrice retrieves the last traded price
	CollectPrice(ctx context.Context, symbol string) (float64, error)

	// SubscribeToBars polls bars every refreshInterval until ctx is done
	SubscribeToBars(ctx context.Context, symbol, interval string, limit int, refreshInterval time.Duration) (<-chan []models.Bar, error)
}
