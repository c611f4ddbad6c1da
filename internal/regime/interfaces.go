package regime

import (
	"context"

	"github.com/songzhibin97/riskladder/internal/models"
)

// Detector classifies recent bars into a market regime. Implementations
// return models.RegimeUnknown, not an error, when there are too few bars.
type Detector interface {
	DetectRegime(ctx context.Context, bars []models.Bar) (models.Regime, error)
}

// Metrics 市场状态指标
type Metrics struct {
	Bars       int     `json:"bars"`
	LastClose  float64 `json:"last_close"`
	SMAFast    float64 `json:"sma_fast"`
	SMASlow    float64 `json:"sma_slow"`
	Return     float64 `json:"return"`     // 窗口收益率
	Volatility float64 `json:"volatility"` // ATR / 收盘价
	FlipRatio  float64 `json:"flip_ratio"` // 涨跌方向切换比例
}
