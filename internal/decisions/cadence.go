package decisions

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

var (
	monthsPerQuarter = decimal.NewFromInt(3)
	monthsPerYear    = decimal.NewFromInt(12)
)

// MonthlyEquivalent normalizes a pledge to its monthly run-rate, rounded half
// up to cents. One-time gifts have no recurring component and yield zero.
func MonthlyEquivalent(amount decimal.Decimal, cadence enums.DecisionCadence) decimal.Decimal {
	switch cadence {
	case enums.CadenceMonthly:
		return amount.Round(2)
	case enums.CadenceQuarterly:
		return amount.DivRound(monthsPerQuarter, 2)
	case enums.CadenceAnnual:
		return amount.DivRound(monthsPerYear, 2)
	default:
		return decimal.Zero
	}
}
