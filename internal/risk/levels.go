package risk

import (
	"fmt"
	"strings"
)

// RiskLevel is one rung of the risk ladder. The zero value is unset.
type RiskLevel int

const (
	UltraConservative RiskLevel = iota + 1
	Conservative
	Moderate
	Aggressive
	HighRisk
	ExtremeRisk
)

const (
	bottomLevel = UltraConservative
	topLevel    = ExtremeRisk

	// DefaultLevel is where a fresh state starts
	DefaultLevel = Moderate
)

var levelNames = map[RiskLevel]string{
	UltraConservative: "ultra_conservative",
	Conservative:      "conservative",
	Moderate:          "moderate",
	Aggressive:        "aggressive",
	HighRisk:          "high_risk",
	ExtremeRisk:       "extreme_risk",
}

var levelPercentages = map[RiskLevel]float64{
	UltraConservative: 0.03,
	Conservative:      0.05,
	Moderate:          0.07,
	Aggressive:        0.09,
	HighRisk:          0.15,
	ExtremeRisk:       0.20,
}

// Levels returns the ladder from bottom to top.
func Levels() []RiskLevel {
	return []RiskLevel{UltraConservative, Conservative, Moderate, Aggressive, HighRisk, ExtremeRisk}
}

func (l RiskLevel) Valid() bool {
	return l >= bottomLevel && l <= topLevel
}

func (l RiskLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unset"
}

// Percentage is the fraction of capital risked per trade at this level.
// An unset or invalid level is treated as Moderate.
func (l RiskLevel) Percentage() float64 {
	if pct, ok := levelPercentages[l]; ok {
		return pct
	}
	return levelPercentages[Moderate]
}

// Up moves one step up the ladder, staying at the top. An invalid level
// becomes DefaultLevel.
func (l RiskLevel) Up() RiskLevel {
	if !l.Valid() {
		return DefaultLevel
	}
	if l >= topLevel {
		return topLevel
	}
	return l + 1
}

// Down moves one step down the ladder, staying at the bottom.
func (l RiskLevel) Down() RiskLevel {
	if !l.Valid() {
		return DefaultLevel
	}
	if l <= bottomLevel {
		return bottomLevel
	}
	return l - 1
}

func (l RiskLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid risk level: %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *RiskLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseRiskLevel accepts the snake_case names used in the state file.
func ParseRiskLevel(s string) (RiskLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown risk level: %q", s)
}
