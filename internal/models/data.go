package models

import (
	"strings"
	"time"
)

// Regime 市场状态标签，由外部分类器给出
type Regime string

const (
	RegimeNeutral      Regime = "NEUTRAL"
	RegimeBull         Regime = "BULL"
	RegimeStrongBull   Regime = "STRONG_BULL"
	RegimeBear         Regime = "BEAR"
	RegimeStrongBear   Regime = "STRONG_BEAR"
	RegimeVolatileBull Regime = "VOLATILE_BULL"
	RegimeVolatileBear Regime = "VOLATILE_BEAR"
	RegimeSideways     Regime = "SIDEWAYS"
	RegimeChoppy       Regime = "CHOPPY"

	// RegimeUnknown is returned by classifiers that do not have enough bars.
	RegimeUnknown Regime = "unknown"
)

// Regimes lists every label a controller can hold.
var Regimes = []Regime{
	RegimeNeutral,
	RegimeBull,
	RegimeStrongBull,
	RegimeBear,
	RegimeStrongBear,
	RegimeVolatileBull,
	RegimeVolatileBear,
	RegimeSideways,
	RegimeChoppy,
}

// Valid reports whether r is one of the nine known labels. RegimeUnknown is not valid.
func (r Regime) Valid() bool {
	for _, known := range Regimes {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRegime normalizes s ("strong bull", "Strong-Bull") into a Regime.
// Anything unrecognised maps to RegimeUnknown.
func ParseRegime(s string) Regime {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	r := Regime(s)
	if r.Valid() {
		return r
	}
	return RegimeUnknown
}

// Bar K线数据
type Bar struct {
	Symbol    string    `json:"symbol"`
	OpenTime  time.Time `json:"open_time"`
	CloseTime time.Time `json:"close_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}
