package risk

import (
	"fmt"
	"strings"

	"github.com/songzhibin97/riskladder/internal/models"
)

const (
	baseStopLossPct   = 0.015
	baseTakeProfitPct = 0.030

	baseTrailingActivation   = 0.015
	baseTrailingStep         = 0.003
	volatileTrailingStep     = 0.005
	strongTrendTrailingStart = 0.020
)

// takeProfitFractions of the full take-profit distance; the third leg is the
// take-profit itself and the fourth runs past it for the trailing stop.
var takeProfitFractions = [4]float64{0.4, 0.8, 1.0, 1.5}

// ParseDirection accepts long/short and buy/sell in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return Long, nil
	case "SHORT", "SELL":
		return Short, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

func buildExitPlan(entry float64, dir Direction, level RiskLevel, regime models.Regime) ExitPlan {
	riskPct := level.Percentage()
	riskFactor := riskPct / Moderate.Percentage()

	slPct := baseStopLossPct
	tpPct := baseTakeProfitPct * riskFactor

	switch regime {
	case models.RegimeVolatileBull, models.RegimeVolatileBear:
		slPct *= 1.5
		tpPct *= 1.3
	case models.RegimeSideways, models.RegimeNeutral, models.RegimeChoppy:
		slPct *= 0.8
		tpPct *= 0.7
	}

	activation := baseTrailingActivation
	step := baseTrailingStep
	switch regime {
	case models.RegimeVolatileBull, models.RegimeVolatileBear:
		step = volatileTrailingStep
	case models.RegimeStrongBull, models.RegimeStrongBear:
		activation = strongTrendTrailingStart
	}

	sign := 1.0
	if dir == Short {
		sign = -1.0
	}

	var legs [4]float64
	for i, f := range takeProfitFractions {
		legs[i] = entry * (1 + sign*tpPct*f)
	}
	takeProfit := entry * (1 + sign*tpPct)

	return ExitPlan{
		EntryPrice:         entry,
		Direction:          dir,
		StopLoss:           entry * (1 - sign*slPct),
		TakeProfit:         takeProfit,
		TP1:                legs[0],
		TP2:                legs[1],
		TP3:                takeProfit,
		TP4:                legs[3],
		TrailingActivation: activation,
		TrailingStep:       step,
		SLPct:              slPct,
		TPPct:              tpPct,
		RiskLevel:          level,
		RiskPct:            riskPct,
	}
}
