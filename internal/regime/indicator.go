package regime

import (
	"context"
	"math"

	"github.com/songzhibin97/riskladder/internal/models"
)

// IndicatorConfig holds the thresholds of IndicatorDetector
type IndicatorConfig struct {
	FastPeriod int `json:"fast_period" yaml:"fast_period"` // 20
	SlowPeriod int `json:"slow_period" yaml:"slow_period"` // 50
	MinBars    int `json:"min_bars" yaml:"min_bars"`       // 20

	VolatilityThreshold float64 `json:"volatility_threshold" yaml:"volatility_threshold"` // ATR/price
	TrendReturn         float64 `json:"trend_return" yaml:"trend_return"`
	StrongTrendReturn   float64 `json:"strong_trend_return" yaml:"strong_trend_return"`
	SidewaysReturn      float64 `json:"sideways_return" yaml:"sideways_return"`
	ChoppyFlipRatio     float64 `json:"choppy_flip_ratio" yaml:"choppy_flip_ratio"`
}

func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		FastPeriod:          20,
		SlowPeriod:          50,
		MinBars:             20,
		VolatilityThreshold: 0.03,
		TrendReturn:         0.03,
		StrongTrendReturn:   0.10,
		SidewaysReturn:      0.01,
		ChoppyFlipRatio:     0.6,
	}
}

// IndicatorDetector classifies bars from moving averages, window return,
// normalized ATR and how often bar direction flips.
type IndicatorDetector struct {
	cfg IndicatorConfig
}

var _ Detector = (*IndicatorDetector)(nil)

func NewIndicatorDetector(cfg ...IndicatorConfig) *IndicatorDetector {
	c := DefaultIndicatorConfig()
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.MinBars < 2 {
		c.MinBars = 2
	}
	if c.FastPeriod < 2 {
		c.FastPeriod = 2
	}
	if c.SlowPeriod < c.FastPeriod {
		c.SlowPeriod = c.FastPeriod
	}
	return &IndicatorDetector{cfg: c}
}

func (d *IndicatorDetector) DetectRegime(ctx context.Context, bars []models.Bar) (models.Regime, error) {
	m, ok := d.Metrics(bars)
	if !ok {
		return models.RegimeUnknown, nil
	}
	return d.Classify(m), nil
}

// Metrics computes the indicators; ok is false below MinBars.
func (d *IndicatorDetector) Metrics(bars []models.Bar) (Metrics, bool) {
	n := len(bars)
	if n < d.cfg.MinBars {
		return Metrics{Bars: n}, false
	}

	last := bars[n-1].Close
	m := Metrics{
		Bars:      n,
		LastClose: last,
		SMAFast:   sma(bars, d.cfg.FastPeriod),
		SMASlow:   sma(bars, d.cfg.SlowPeriod),
	}

	window := min(n, d.cfg.SlowPeriod)
	if first := bars[n-window].Close; first > 0 {
		m.Return = last/first - 1
	}
	if last > 0 {
		m.Volatility = atr(bars, d.cfg.FastPeriod) / last
	}
	m.FlipRatio = flipRatio(bars, d.cfg.FastPeriod)
	return m, true
}

// Classify maps metrics to a regime label. Volatility is checked first.
func (d *IndicatorDetector) Classify(m Metrics) models.Regime {
	c := d.cfg
	trendUp := m.LastClose > m.SMAFast && m.SMAFast >= m.SMASlow
	trendDown := m.LastClose < m.SMAFast && m.SMAFast <= m.SMASlow

	switch {
	case m.Volatility >= c.VolatilityThreshold && m.Return > 0:
		return models.RegimeVolatileBull
	case m.Volatility >= c.VolatilityThreshold:
		return models.RegimeVolatileBear
	case m.Return >= c.StrongTrendReturn && trendUp:
		return models.RegimeStrongBull
	case m.Return <= -c.StrongTrendReturn && trendDown:
		return models.RegimeStrongBear
	case m.Return >= c.TrendReturn && trendUp:
		return models.RegimeBull
	case m.Return <= -c.TrendReturn && trendDown:
		return models.RegimeBear
	case m.FlipRatio >= c.ChoppyFlipRatio:
		return models.RegimeChoppy
	case math.Abs(m.Return) <= c.SidewaysReturn:
		return models.RegimeSideways
	}
	return models.RegimeNeutral
}

// sma of the last period closes, or of all bars when fewer
func sma(bars []models.Bar, period int) float64 {
	period = min(period, len(bars))
	var sum float64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return sum / float64(period)
}

// atr is the simple average true range of the last period bars
func atr(bars []models.Bar, period int) float64 {
	period = min(period, len(bars)-1)
	if period <= 0 {
		return 0
	}

	var sum float64
	for i := len(bars) - period; i < len(bars); i++ {
		prev := bars[i-1].Close
		b := bars[i]
		tr := math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		sum += tr
	}
	return sum / float64(period)
}

// flipRatio is the share of consecutive non-flat bar moves that change sign
func flipRatio(bars []models.Bar, period int) float64 {
	start := max(1, len(bars)-period)

	var prevSign, flips, moves int
	for i := start; i < len(bars); i++ {
		diff := bars[i].Close - bars[i-1].Close
		var sign int
		switch {
		case diff > 0:
			sign = 1
		case diff < 0:
			sign = -1
		default:
			continue
		}
		if prevSign != 0 {
			moves++
			if sign != prevSign {
				flips++
			}
		}
		prevSign = sign
	}

	if moves == 0 {
		return 0
	}
	return float64(flips) / float64(moves)
}
