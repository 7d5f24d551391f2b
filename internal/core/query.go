package core

import "time"

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

type (
	// DateRange is the half-open interval [Start, End) used by analytics.
	DateRange struct {
		Start time.Time
		End   time.Time
	}

	Page struct {
		Skip  int
		Limit int
	}

	// TransactionFilter selects transactions for listing. From and To are
	// inclusive; a transaction matches Tags when it carries any of them.
	TransactionFilter struct {
		Type     TransactionType
		Category Category
		From     *time.Time
		To       *time.Time
		Tags     []string
		Page
	}

	// SumFilter selects the transactions summed for budget spend. Both
	// bounds are inclusive.
	SumFilter struct {
		Type     TransactionType
		Category Category
		From     time.Time
		To       time.Time
	}
)

func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: start.UTC(), End: end.UTC()}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// LastDays returns the range ending at end that covers the previous n days.
func LastDays(end time.Time, n int) DateRange {
	end = end.UTC()
	return DateRange{Start: end.AddDate(0, 0, -n), End: end}
}

func (r DateRange) Validate() error {
	if !r.Start.Before(r.End) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether t falls in [Start, End).
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

func (p Page) Validate() error {
	if p.Skip < 0 {
		return NewValidationError("skip", "must be >= 0")
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return NewValidationError("limit", "must be between 1 and 1000")
	}
	return nil
}

// Window returns the slice bounds of the page over n items.
func (p Page) Window(n int) (int, int) {
	lo := min(max(p.Skip, 0), n)
	hi := n
	if p.Limit > 0 {
		hi = min(lo+p.Limit, n)
	}
	return lo, hi
}

// BudgetWindow is the inclusive sum filter for a budget's expenses.
func BudgetWindow(b Budget) SumFilter {
	return SumFilter{Type: Expense, Category: b.Category, From: b.StartDate, To: b.EndDate}
}
