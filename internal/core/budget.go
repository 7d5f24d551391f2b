package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultAlertThreshold = 0.8

const (
	Weekly  BudgetPeriod = "weekly"
	Monthly BudgetPeriod = "monthly"
	Yearly  BudgetPeriod = "yearly"
)

const (
	StatusSafe     BudgetStatus = "safe"
	StatusWarning  BudgetStatus = "warning"
	StatusCritical BudgetStatus = "critical"
	StatusExceeded BudgetStatus = "exceeded"
)

type (
	BudgetPeriod string

	BudgetStatus string

	// Budget caps spending in one category over the inclusive window
	// [StartDate, EndDate]. Period is informational.
	Budget struct {
		ID             string
		Category       Category
		LimitAmount    decimal.Decimal
		Period         BudgetPeriod
		StartDate      time.Time
		EndDate        time.Time
		AlertThreshold float64
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	BudgetPatch struct {
		Category       *Category
		LimitAmount    *decimal.Decimal
		Period         *BudgetPeriod
		StartDate      *time.Time
		EndDate        *time.Time
		AlertThreshold *float64
	}

	// BudgetProgress is derived from a budget and the expenses inside its window.
	BudgetProgress struct {
		SpentAmount     decimal.Decimal
		RemainingAmount decimal.Decimal
		PercentageUsed  decimal.Decimal
		Status          BudgetStatus
		IsOverBudget    bool
		AlertTriggered  bool
	}
)

func (p BudgetPeriod) IsValid() bool {
	switch p {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func ParseBudgetPeriod(s string) (BudgetPeriod, error) {
	p := BudgetPeriod(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return Monthly, nil
	}
	if !p.IsValid() {
		return "", NewValidationError("period", "must be weekly, monthly or yearly")
	}
	return p, nil
}

// Normalize fills defaults and moves dates to UTC.
func (b *Budget) Normalize() {
	if b.Period == "" {
		b.Period = Monthly
	}
	if b.AlertThreshold == 0 {
		b.AlertThreshold = DefaultAlertThreshold
	}
	b.LimitAmount = RoundMoney(b.LimitAmount)
	b.StartDate = b.StartDate.UTC()
	b.EndDate = b.EndDate.UTC()
}

func (b Budget) Validate() error {
	if !b.Category.IsValid() {
		return NewValidationError("category", "unknown category "+string(b.Category))
	}
	if !b.LimitAmount.IsPositive() {
		return NewValidationError("limit_amount", "must be greater than zero")
	}
	if !b.Period.IsValid() {
		return NewValidationError("period", "must be weekly, monthly or yearly")
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return NewValidationError("start_date", "start_date and end_date are required")
	}
	if !b.EndDate.After(b.StartDate) {
		return NewValidationError("end_date", "end_date must be after start_date")
	}
	if b.AlertThreshold <= 0 || b.AlertThreshold > 1 {
		return NewValidationError("alert_threshold", "must be in (0, 1]")
	}
	return nil
}

func (p BudgetPatch) IsEmpty() bool {
	return p.Category == nil && p.LimitAmount == nil && p.Period == nil &&
		p.StartDate == nil && p.EndDate == nil && p.AlertThreshold == nil
}

// TouchesWindow reports whether the patch can move the budget into another
// budget's window.
func (p BudgetPatch) TouchesWindow() bool {
	return p.Category != nil || p.StartDate != nil || p.EndDate != nil
}

func (p BudgetPatch) Apply(b Budget) Budget {
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.LimitAmount != nil {
		b.LimitAmount = *p.LimitAmount
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	if p.StartDate != nil {
		b.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		b.EndDate = *p.EndDate
	}
	if p.AlertThreshold != nil {
		b.AlertThreshold = *p.AlertThreshold
	}
	return b
}
