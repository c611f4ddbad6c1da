package risk

import (
	"fmt"
	"strings"
)

// RiskTier is the requested aggressiveness of a coin configuration.
type RiskTier string

const (
	TierLow           RiskTier = "low"
	TierMedium        RiskTier = "medium"
	TierHigh          RiskTier = "high"
	TierExtremelyHigh RiskTier = "extremely_high"
)

const (
	minRiskPerTrade      = 1.0
	safeRiskPerTrade     = 5.0
	safeLeverage         = 5
	smallAccountBalance  = 500.0
	defaultProfileSymbol = "DEFAULT"
)

func ParseRiskTier(s string) (RiskTier, error) {
	t := RiskTier(strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s))))
	switch t {
	case TierLow, TierMedium, TierHigh, TierExtremelyHigh:
		return t, nil
	}
	return "", fmt.Errorf("unknown risk tier: %q", s)
}

// RiskParams is a per-trade risk configuration. RiskPerTrade is in percent
// of capital (5.0 means 5%), the multipliers are ATR multiples.
type RiskParams struct {
	RiskPerTrade float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxLeverage  int     `json:"max_leverage" yaml:"max_leverage"`
	SLMultiplier float64 `json:"sl_multiplier" yaml:"sl_multiplier"`
	TPMultiplier float64 `json:"tp_multiplier" yaml:"tp_multiplier"`
}

// TierParams returns the base configuration generated for a tier.
// Unknown tiers get the medium configuration.
func TierParams(tier RiskTier) RiskParams {
	switch tier {
	case TierLow:
		return RiskParams{RiskPerTrade: 2.0, MaxLeverage: 3, SLMultiplier: 1.5, TPMultiplier: 3.0}
	case TierHigh:
		return RiskParams{RiskPerTrade: 10.0, MaxLeverage: 10, SLMultiplier: 2.0, TPMultiplier: 4.0}
	case TierExtremelyHigh:
		return RiskParams{RiskPerTrade: 15.0, MaxLeverage: 20, SLMultiplier: 2.5, TPMultiplier: 5.0}
	default:
		return RiskParams{RiskPerTrade: 5.0, MaxLeverage: 5, SLMultiplier: 1.8, TPMultiplier: 3.5}
	}
}

// CoinRiskProfile describes how a base asset deviates from the global risk settings.
type CoinRiskProfile struct {
	Symbol                      string   `json:"symbol"`
	VolatilityFactor            float64  `json:"volatility_factor"`
	RiskAdjustment              float64  `json:"risk_adjustment"`
	SLAdjustment                float64  `json:"sl_adjustment"`
	TPAdjustment                float64  `json:"tp_adjustment"`
	SafeLeverage                int      `json:"safe_leverage"`
	HighRiskCompatible          bool     `json:"high_risk_compatible"`
	ExtremelyHighRiskCompatible bool     `json:"extremely_high_risk_compatible"`
	SmallAccountCompatible      bool     `json:"small_account_compatible"`
	RecommendedTimeframes       []string `json:"recommended_timeframes"`
	RecommendedStrategies       []string `json:"recommended_strategies"`
}

func (p CoinRiskProfile) clone() CoinRiskProfile {
	p.RecommendedTimeframes = append([]string(nil), p.RecommendedTimeframes...)
	p.RecommendedStrategies = append([]string(nil), p.RecommendedStrategies...)
	return p
}

// ProfileTable is a read-only lookup of coin profiles. Lookups return copies.
type ProfileTable struct {
	profiles map[string]CoinRiskProfile
	fallback CoinRiskProfile
}

// NewProfileTable builds a table; symbols are normalized on insert.
func NewProfileTable(fallback CoinRiskProfile, profiles ...CoinRiskProfile) *ProfileTable {
	t := &ProfileTable{
		profiles: make(map[string]CoinRiskProfile, len(profiles)),
		fallback: fallback.clone(),
	}
	for _, p := range profiles {
		p.Symbol = NormalizeSymbol(p.Symbol)
		t.profiles[p.Symbol] = p.clone()
	}
	return t
}

// DefaultProfiles returns the built-in profile table.
func DefaultProfiles() *ProfileTable {
	return NewProfileTable(
		CoinRiskProfile{
			Symbol:                defaultProfileSymbol,
			VolatilityFactor:      1.5,
			RiskAdjustment:        -0.3,
			SLAdjustment:          0.2,
			TPAdjustment:          0.1,
			SafeLeverage:          5,
			RecommendedTimeframes: []string{"1h", "4h"},
			RecommendedStrategies: []string{"trend_following"},
		},
		CoinRiskProfile{
			Symbol: "BTC", VolatilityFactor: 1.0, RiskAdjustment: 0.1, SLAdjustment: 0, TPAdjustment: 0,
			SafeLeverage: 20, HighRiskCompatible: true, ExtremelyHighRiskCompatible: true, SmallAccountCompatible: true,
			RecommendedTimeframes: []string{"15m", "1h", "4h"},
			RecommendedStrategies: []string{"trend_following", "breakout", "mean_reversion"},
		},
		CoinRiskProfile{
			Symbol: "ETH", VolatilityFactor: 1.2, RiskAdjustment: 0.05, SLAdjustment: 0.05, TPAdjustment: 0.05,
			SafeLeverage: 15, HighRiskCompatible: true, ExtremelyHighRiskCompatible: true, SmallAccountCompatible: true,
			RecommendedTimeframes: []string{"15m", "1h", "4h"},
			RecommendedStrategies: []string{"trend_following", "breakout"},
		},
		CoinRiskProfile{
			Symbol: "BNB", VolatilityFactor: 1.3, RiskAdjustment: 0, SLAdjustment: 0.1, TPAdjustment: 0.05,
			SafeLeverage: 10, HighRiskCompatible: true, SmallAccountCompatible: true,
			RecommendedTimeframes: []string{"1h", "4h"},
			RecommendedStrategies: []string{"trend_following"},
		},
		CoinRiskProfile{
			Symbol: "SOL", VolatilityFactor: 1.6, RiskAdjustment: -0.1, SLAdjustment: 0.15, TPAdjustment: 0.2,
			SafeLeverage: 10, HighRiskCompatible: true, SmallAccountCompatible: true,
			RecommendedTimeframes: []string{"15m", "1h"},
			RecommendedStrategies: []string{"momentum", "breakout"},
		},
		CoinRiskProfile{
			Symbol: "XRP", VolatilityFactor: 1.5, RiskAdjustment: -0.15, SLAdjustment: 0.15, TPAdjustment: 0.1,
			SafeLeverage: 10, HighRiskCompatible: true, SmallAccountCompatible: true,
			RecommendedTimeframes: []string{"1h", "4h"},
			RecommendedStrategies: []string{"mean_reversion"},
		},
		CoinRiskProfile{
			Symbol: "ADA", VolatilityFactor: 1.5, RiskAdjustment: -0.15, SLAdjustment: 0.15, TPAdjustment: 0.1,
			SafeLeverage: 8, SmallAccountCompatible: true,
			RecommendedTimeframes: []string{"1h", "4h"},
			RecommendedStrategies: []string{"mean_reversion", "trend_following"},
		},
		CoinRiskProfile{
			Symbol: "AVAX", VolatilityFactor: 1.7, RiskAdjustment: -0.2, SLAdjustment: 0.2, TPAdjustment: 0.2,
			SafeLeverage: 8, HighRiskCompatible: true,
			RecommendedTimeframes: []string{"1h"},
			RecommendedStrategies: []string{"momentum"},
		},
		CoinRiskProfile{
			Symbol: "LINK", VolatilityFactor: 1.6, RiskAdjustment: -0.15, SLAdjustment: 0.2, TPAdjustment: 0.15,
			SafeLeverage: 8, SmallAccountCompatible: true,
			RecommendedTimeframes: []string{"1h", "4h"},
			RecommendedStrategies: []string{"trend_following"},
		},
		CoinRiskProfile{
			Symbol: "DOGE", VolatilityFactor: 2.0, RiskAdjustment: -0.3, SLAdjustment: 0.3, TPAdjustment: 0.25,
			SafeLeverage: 5,
			RecommendedTimeframes: []string{"5m", "15m"},
			RecommendedStrategies: []string{"momentum", "scalping"},
		},
		CoinRiskProfile{
			Symbol: "1000PEPE", VolatilityFactor: 2.5, RiskAdjustment: -0.4, SLAdjustment: 0.4, TPAdjustment: 0.3,
			SafeLeverage: 3,
			RecommendedTimeframes: []string{"5m", "15m"},
			RecommendedStrategies: []string{"scalping"},
		},
	)
}

// Lookup returns the profile for symbol, or the default profile with ok=false.
func (t *ProfileTable) Lookup(symbol string) (CoinRiskProfile, bool) {
	if p, ok := t.profiles[NormalizeSymbol(symbol)]; ok {
		return p.clone(), true
	}
	return t.fallback.clone(), false
}

var quoteSuffixes = []string{"USDT", "BUSD", "USDC", "FDUSD", "PERP", "USD"}

// NormalizeSymbol reduces an exchange symbol ("BTCUSDT", "btc/usdt:usdt",
// "ETH-PERP") to its base asset.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"/", ":", "-", "_"} {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
		}
	}
	for _, suffix := range quoteSuffixes {
		if len(s) > len(suffix) && strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}

// CoinAdjustment is the outcome of applying a coin profile to base params.
type CoinAdjustment struct {
	Symbol              string          `json:"symbol"`
	Tier                RiskTier        `json:"tier"`
	Params              RiskParams      `json:"params"`
	Profile             CoinRiskProfile `json:"profile"`
	KnownCoin           bool            `json:"known_coin"`
	TierClamped         bool            `json:"tier_clamped"`
	SmallAccountWarning bool            `json:"small_account_warning"`
	Warnings            []string        `json:"warnings,omitempty"`
}

// Adjust applies the coin profile to base. The tier compatibility clamp
// wins over the multiplicative adjustment; the small-account check only warns.
func (t *ProfileTable) Adjust(base RiskParams, symbol string, tier RiskTier, balance float64) CoinAdjustment {
	profile, known := t.Lookup(symbol)

	params := RiskParams{
		RiskPerTrade: base.RiskPerTrade * (1 + profile.RiskAdjustment),
		MaxLeverage:  min(base.MaxLeverage, profile.SafeLeverage),
		SLMultiplier: base.SLMultiplier * (1 + profile.SLAdjustment),
		TPMultiplier: base.TPMultiplier * (1 + profile.TPAdjustment),
	}
	if params.RiskPerTrade < minRiskPerTrade {
		params.RiskPerTrade = minRiskPerTrade
	}

	adj := CoinAdjustment{
		Symbol:    NormalizeSymbol(symbol),
		Tier:      tier,
		Profile:   profile,
		KnownCoin: known,
	}
	if !known {
		adj.Warnings = append(adj.Warnings, fmt.Sprintf("no profile for %s, using default profile", adj.Symbol))
	}

	incompatible := (tier == TierHigh && !profile.HighRiskCompatible) ||
		(tier == TierExtremelyHigh && !profile.ExtremelyHighRiskCompatible)
	if incompatible {
		params.RiskPerTrade = min(params.RiskPerTrade, safeRiskPerTrade)
		params.MaxLeverage = min(params.MaxLeverage, safeLeverage)
		adj.TierClamped = true
		adj.Warnings = append(adj.Warnings,
			fmt.Sprintf("%s is not suited to %s risk, capped at %.1f%% and %dx", adj.Symbol, tier, safeRiskPerTrade, safeLeverage))
	}

	if balance < smallAccountBalance && !profile.SmallAccountCompatible {
		adj.SmallAccountWarning = true
		adj.Warnings = append(adj.Warnings,
			fmt.Sprintf("%s is not recommended for accounts under %.0f", adj.Symbol, smallAccountBalance))
	}

	adj.Params = params
	return adj
}

// AdjustRiskParamsForCoin applies the built-in profile table.
func AdjustRiskParamsForCoin(base RiskParams, symbol string, tier RiskTier, balance float64) CoinAdjustment {
	return DefaultProfiles().Adjust(base, symbol, tier, balance)
}
