// Package analytics derives read-only financial views from the per-transaction
// points held in the time-series store.
package analytics

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/timeseries"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMonths = 6
	MaxMonths     = 24

	monthLabelLayout = "2006-01"
)

var hundred = decimal.NewFromInt(100)

type (
	TrendPoint struct {
		Timestamp time.Time
		Amount    decimal.Decimal
	}

	// Trend is the bucketed spending series in ascending bucket order.
	Trend []TrendPoint

	CategoryTotal struct {
		Category    core.Category
		TotalAmount decimal.Decimal
	}

	Summary struct {
		TotalIncome   decimal.Decimal
		TotalExpenses decimal.Decimal
		NetSavings    decimal.Decimal
		SavingsRate   decimal.Decimal
	}

	MonthSummary struct {
		Month     string
		StartDate time.Time
		EndDate   time.Time
		Summary
	}

	SavingsRate struct {
		TotalIncome           decimal.Decimal
		TotalExpenses         decimal.Decimal
		NetSavings            decimal.Decimal
		SavingsRatePercentage decimal.Decimal
	}

	Service struct {
		series timeseries.Querier
		now    func() time.Time
	}

	Option func(*Service)
)

// WithClock replaces time.Now, used by MonthlyComparison.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(series timeseries.Querier, opts ...Option) *Service {
	s := &Service{series: series, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// All yields (bucket start, amount) pairs. The sequence can be ranged over
// any number of times.
func (t Trend) All() iter.Seq2[time.Time, decimal.Decimal] {
	return func(yield func(time.Time, decimal.Decimal) bool) {
		for _, p := range t {
			if !yield(p.Timestamp, p.Amount) {
				return
			}
		}
	}
}

// ParseWindow accepts 1h, 1d, 1w, 1mo or hour, day, week, month. An empty
// string selects day.
func ParseWindow(s string) (timeseries.Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1d", "day":
		return timeseries.WindowDay, nil
	case "1h", "hour":
		return timeseries.WindowHour, nil
	case "1w", "week":
		return timeseries.WindowWeek, nil
	case "1mo", "month":
		return timeseries.WindowMonth, nil
	}
	return timeseries.WindowNone, fmt.Errorf("%w: %q (use 1h, 1d, 1w or 1mo)", core.ErrInvalidPeriod, s)
}

func (s *Service) SpendingTrend(ctx context.Context, r core.DateRange, w timeseries.Window) (Trend, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if w == timeseries.WindowNone {
		w = timeseries.WindowDay
	}
	q := timeseries.SumQuery(core.Expense, r.Start, r.End)
	q.Window = w
	rows, err := s.series.Aggregate(ctx, q)
	if err != nil {
		return nil, unavailable("spending trend", err)
	}

	trend := make(Trend, 0, len(rows))
	for _, row := range rows {
		if row.Value == 0 {
			continue
		}
		trend = append(trend, TrendPoint{Timestamp: row.Time.UTC(), Amount: core.FromFloat(row.Value)})
	}
	sort.SliceStable(trend, func(i, j int) bool { return trend[i].Timestamp.Before(trend[j].Timestamp) })
	return trend, nil
}

// CategoryBreakdown totals expenses per category, ordered by category name.
func (s *Service) CategoryBreakdown(ctx context.Context, r core.DateRange) ([]CategoryTotal, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	q := timeseries.SumQuery(core.Expense, r.Start, r.End)
	q.GroupBy = timeseries.TagCategory
	rows, err := s.series.Aggregate(ctx, q)
	if err != nil {
		return nil, unavailable("category breakdown", err)
	}

	totals := make(map[core.Category]decimal.Decimal, len(rows))
	for _, row := range rows {
		c := core.Category(row.Key)
		totals[c] = totals[c].Add(core.FromFloat(row.Value))
	}
	out := make([]CategoryTotal, 0, len(totals))
	for c, total := range totals {
		out = append(out, CategoryTotal{Category: c, TotalAmount: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// IncomeVsExpenses sums income and expenses with two independent queries.
func (s *Service) IncomeVsExpenses(ctx context.Context, r core.DateRange) (Summary, error) {
	if err := r.Validate(); err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, r.Start, r.End)
}

func (s *Service) SavingsRate(ctx context.Context, r core.DateRange) (SavingsRate, error) {
	sum, err := s.IncomeVsExpenses(ctx, r)
	if err != nil {
		return SavingsRate{}, err
	}
	return SavingsRate{
		TotalIncome:           sum.TotalIncome,
		TotalExpenses:         sum.TotalExpenses,
		NetSavings:            sum.NetSavings,
		SavingsRatePercentage: sum.SavingsRate,
	}, nil
}

// MonthlyComparison summarizes the last months calendar months in UTC, the
// current month first.
func (s *Service) MonthlyComparison(ctx context.Context, months int) ([]MonthSummary, error) {
	if months < 1 || months > MaxMonths {
		return nil, core.ErrInvalidMonths
	}

	now := s.now().UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthSummary, months)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range months {
		start := current.AddDate(0, -i, 0)
		next := start.AddDate(0, 1, 0)
		g.Go(func() error {
			sum, err := s.summarize(gctx, start, next)
			if err != nil {
				return err
			}
			out[i] = MonthSummary{
				Month:     start.Format(monthLabelLayout),
				StartDate: start,
				EndDate:   next.Add(-time.Second),
				Summary:   sum,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) summarize(ctx context.Context, start, stop time.Time) (Summary, error) {
	income, err := s.total(ctx, timeseries.SumQuery(core.Income, start, stop))
	if err != nil {
		return Summary{}, unavailable("income total", err)
	}
	expenses, err := s.total(ctx, timeseries.SumQuery(core.Expense, start, stop))
	if err != nil {
		return Summary{}, unavailable("expense total", err)
	}
	return newSummary(income, expenses), nil
}

func (s *Service) total(ctx context.Context, q timeseries.Query) (decimal.Decimal, error) {
	rows, err := s.series.Aggregate(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	var f float64
	for _, row := range rows {
		f += row.Value
	}
	return core.FromFloat(f), nil
}

func newSummary(income, expenses decimal.Decimal) Summary {
	net := income.Sub(expenses)
	rate := decimal.Zero
	if income.IsPositive() {
		rate = net.Div(income).Mul(hundred).Round(2)
	}
	return Summary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetSavings:    net,
		SavingsRate:   rate,
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrDataUnavailable, err)
}
