package risk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/songzhibin97/riskladder/internal/models"
)

// RiskState is the mutable controller state. Only one of WinStreak and
// LossStreak is non-zero once a trade has been recorded.
type RiskState struct {
	CurrentLevel  RiskLevel
	WinStreak     int
	LossStreak    int
	TotalTrades   int
	WinningTrades int
	MarketRegime  models.Regime
	LastUpdate    time.Time
}

// DefaultState returns a fresh state at the default level.
func DefaultState() *RiskState {
	return &RiskState{
		CurrentLevel: DefaultLevel,
		MarketRegime: models.RegimeNeutral,
		LastUpdate:   time.Now().UTC(),
	}
}

// WinRate is the lifetime ratio of winning trades, 0 before the first trade.
func (s *RiskState) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades)
}

func (s *RiskState) Clone() *RiskState {
	c := *s
	return &c
}

func (s *RiskState) validate() error {
	if !s.CurrentLevel.Valid() {
		return fmt.Errorf("invalid current level %d", int(s.CurrentLevel))
	}
	if s.WinStreak < 0 || s.LossStreak < 0 || s.TotalTrades < 0 || s.WinningTrades < 0 {
		return fmt.Errorf("negative counters")
	}
	if s.WinStreak > 0 && s.LossStreak > 0 {
		return fmt.Errorf("win_streak and loss_streak both non-zero")
	}
	if s.WinningTrades > s.TotalTrades {
		return fmt.Errorf("winning_trades %d exceeds total_trades %d", s.WinningTrades, s.TotalTrades)
	}
	return nil
}

// stateDocument is the on-disk JSON layout shared by every store
type stateDocument struct {
	RiskLevels       map[string]float64 `json:"risk_levels"`
	CurrentRiskLevel RiskLevel          `json:"current_risk_level"`
	WinStreak        int                `json:"win_streak"`
	LossStreak       int                `json:"loss_streak"`
	TotalTrades      int                `json:"total_trades"`
	WinningTrades    int                `json:"winning_trades"`
	MarketRegime     models.Regime      `json:"market_regime,omitempty"`
	LastUpdate       time.Time          `json:"last_update"`
}

// EncodeState renders s as the indented JSON state document.
func EncodeState(s *RiskState) ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("failed to encode risk state: %w", err)
	}

	levels := make(map[string]float64, len(levelNames))
	for _, l := range Levels() {
		levels[l.String()] = l.Percentage()
	}

	doc := stateDocument{
		RiskLevels:       levels,
		CurrentRiskLevel: s.CurrentLevel,
		WinStreak:        s.WinStreak,
		LossStreak:       s.LossStreak,
		TotalTrades:      s.TotalTrades,
		WinningTrades:    s.WinningTrades,
		MarketRegime:     s.MarketRegime,
		LastUpdate:       s.LastUpdate.UTC(),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeState parses a state document. The risk_levels table is informational
// and ignored; percentages always come from the ladder constants.
func DecodeState(data []byte) (*RiskState, error) {
	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode risk state: %w: %w", ErrStateCorrupt, err)
	}

	regime := doc.MarketRegime
	if !regime.Valid() {
		regime = models.RegimeNeutral
	}

	s := &RiskState{
		CurrentLevel:  doc.CurrentRiskLevel,
		WinStreak:     doc.WinStreak,
		LossStreak:    doc.LossStreak,
		TotalTrades:   doc.TotalTrades,
		WinningTrades: doc.WinningTrades,
		MarketRegime:  regime,
		LastUpdate:    doc.LastUpdate,
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("failed to decode risk state: %w: %w", ErrStateCorrupt, err)
	}
	return s, nil
}
