// Package budget computes budget progress and guards budget windows against
// overlaps. Everything here is a pure function of its inputs.
package budget

import (
	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	exceededAt = decimal.NewFromInt(100)
	criticalAt = decimal.NewFromInt(90)
	warningAt  = decimal.NewFromInt(70)
)

// ComputeProgress derives the progress of b given the sum of expenses in its
// category and window. Status is classified on the unrounded percentage.
func ComputeProgress(b core.Budget, spent decimal.Decimal) core.BudgetProgress {
	pct := percentage(spent, b.LimitAmount)
	threshold := decimal.NewFromFloat(b.AlertThreshold).Mul(hundred)

	return core.BudgetProgress{
		SpentAmount:     spent,
		RemainingAmount: b.LimitAmount.Sub(spent),
		PercentageUsed:  pct.Round(2),
		Status:          Classify(pct),
		IsOverBudget:    spent.GreaterThan(b.LimitAmount),
		AlertTriggered:  b.LimitAmount.IsPositive() && pct.GreaterThanOrEqual(threshold),
	}
}

// Classify maps a percentage of the limit to a status. Boundaries are closed
// at 70, 90 and 100.
func Classify(pct decimal.Decimal) core.BudgetStatus {
	switch {
	case pct.GreaterThanOrEqual(exceededAt):
		return core.StatusExceeded
	case pct.GreaterThanOrEqual(criticalAt):
		return core.StatusCritical
	case pct.GreaterThanOrEqual(warningAt):
		return core.StatusWarning
	default:
		return core.StatusSafe
	}
}

func percentage(spent, limit decimal.Decimal) decimal.Decimal {
	if limit.IsZero() {
		return decimal.Zero
	}
	return spent.Div(limit).Mul(hundred)
}
