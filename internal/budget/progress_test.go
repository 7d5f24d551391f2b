package budget

import (
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(m time.Month, dd int) time.Time {
	return time.Date(2025, m, dd, 0, 0, 0, 0, time.UTC)
}

func foodBudget(limit string) core.Budget {
	return core.Budget{
		ID:             "b1",
		Category:       core.Food,
		LimitAmount:    d(limit),
		Period:         core.Monthly,
		StartDate:      day(time.December, 1),
		EndDate:        day(time.December, 31),
		AlertThreshold: 0.8,
	}
}

func TestComputeProgressStatus(t *testing.T) {
	cases := []struct {
		spent  string
		pct    string
		status core.BudgetStatus
		over   bool
	}{
		{"0", "0", core.StatusSafe, false},
		{"699.99", "70", core.StatusSafe, false},
		{"700", "70", core.StatusWarning, false},
		{"899.99", "90", core.StatusWarning, false},
		{"900", "90", core.StatusCritical, false},
		{"999.99", "100", core.StatusCritical, false},
		{"1000", "100", core.StatusExceeded, false},
		{"1200", "120", core.StatusExceeded, true},
	}
	for _, tc := range cases {
		t.Run(tc.spent, func(t *testing.T) {
			p := ComputeProgress(foodBudget("1000"), d(tc.spent))
			assert.Equal(t, tc.status, p.Status)
			assert.True(t, d(tc.pct).Equal(p.PercentageUsed), "pct %s", p.PercentageUsed)
			assert.Equal(t, tc.over, p.IsOverBudget)
		})
	}
}

func TestComputeProgressRemaining(t *testing.T) {
	for _, spent := range []string{"0", "123.45", "1000", "1500.10"} {
		b := foodBudget("1000")
		p := ComputeProgress(b, d(spent))
		assert.True(t, p.RemainingAmount.Equal(b.LimitAmount.Sub(d(spent))))
		assert.Equal(t, d(spent).GreaterThan(b.LimitAmount), p.IsOverBudget)
	}

	p := ComputeProgress(foodBudget("100"), d("130"))
	assert.Equal(t, "-30", p.RemainingAmount.String())
}

func TestComputeProgressRounding(t *testing.T) {
	p := ComputeProgress(foodBudget("3"), d("1"))
	assert.Equal(t, "33.33", p.PercentageUsed.String())
	assert.Equal(t, core.StatusSafe, p.Status)
}

func TestComputeProgressZeroLimit(t *testing.T) {
	b := foodBudget("1")
	b.LimitAmount = decimal.Zero
	p := ComputeProgress(b, d("50"))
	assert.True(t, p.PercentageUsed.IsZero())
	assert.Equal(t, core.StatusSafe, p.Status)
	assert.True(t, p.IsOverBudget)
	assert.False(t, p.AlertTriggered)
}

func TestComputeProgressAlert(t *testing.T) {
	assert.False(t, ComputeProgress(foodBudget("1000"), d("799.99")).AlertTriggered)
	assert.True(t, ComputeProgress(foodBudget("1000"), d("800")).AlertTriggered)
}

func TestComputeProgressIsPure(t *testing.T) {
	b := foodBudget("1000")
	assert.Equal(t, ComputeProgress(b, d("640")), ComputeProgress(b, d("640")))
}

func TestOverlaps(t *testing.T) {
	a := core.Budget{Category: core.Food, StartDate: day(time.December, 1), EndDate: day(time.December, 15)}
	b := core.Budget{Category: core.Food, StartDate: day(time.December, 10), EndDate: day(time.December, 20)}
	c := core.Budget{Category: core.Food, StartDate: day(time.December, 16), EndDate: day(time.December, 20)}
	touching := core.Budget{Category: core.Food, StartDate: day(time.December, 15), EndDate: day(time.December, 20)}
	other := core.Budget{Category: core.Travel, StartDate: day(time.December, 10), EndDate: day(time.December, 20)}

	assert.True(t, Overlaps(a, b))
	assert.True(t, Overlaps(b, a))
	assert.False(t, Overlaps(a, c))
	assert.True(t, Overlaps(a, touching))
	assert.False(t, Overlaps(a, other))
}

func TestValidateNoOverlap(t *testing.T) {
	existing := []core.Budget{
		{ID: "x", Category: core.Food, StartDate: day(time.December, 1), EndDate: day(time.December, 15)},
	}

	err := ValidateNoOverlap(core.Budget{Category: core.Food, StartDate: day(time.December, 10), EndDate: day(time.December, 20)}, existing)
	assert.ErrorIs(t, err, core.ErrOverlapConflict)
	var oe *core.OverlapError
	if assert.ErrorAs(t, err, &oe) {
		assert.Equal(t, "x", oe.Existing.ID)
	}

	assert.NoError(t, ValidateNoOverlap(core.Budget{Category: core.Food, StartDate: day(time.December, 16), EndDate: day(time.December, 20)}, existing))
	assert.NoError(t, ValidateNoOverlap(core.Budget{ID: "x", Category: core.Food, StartDate: day(time.December, 2), EndDate: day(time.December, 14)}, existing))
	assert.NoError(t, ValidateNoOverlap(core.Budget{Category: core.Food, StartDate: day(time.December, 10), EndDate: day(time.December, 20)}, nil))
}
