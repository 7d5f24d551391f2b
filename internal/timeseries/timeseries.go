// Package timeseries defines the gateway to the metric store that holds one
// point per transaction.
package timeseries

//go:generate mockgen -source=timeseries.go -destination=mock_timeseries.go -package=timeseries

import (
	"context"
	"time"

	"fintrack/internal/core"
)

const (
	MeasurementTransactions = "transactions"
	FieldAmount             = "amount"

	TagType          = "type"
	TagCategory      = "category"
	TagTransactionID = "transaction_id"
)

const (
	WindowNone Window = iota
	WindowHour
	WindowDay
	WindowWeek
	WindowMonth
)

type (
	// Window is the bucket width of a windowed aggregation.
	Window int

	Point struct {
		Measurement string
		Tags        map[string]string
		Fields      map[string]float64
		Time        time.Time
	}

	// Query describes a sum over one field of a measurement in [Start, Stop).
	// Tags are equality filters. With GroupBy set, one row is returned per tag
	// value; with Window set, one row per non-empty bucket.
	Query struct {
		Measurement string
		Field       string
		Start       time.Time
		Stop        time.Time
		Tags        map[string]string
		GroupBy     string
		Window      Window
	}

	// Row is one aggregated value. Key holds the group tag value, Time the
	// bucket start.
	Row struct {
		Key   string
		Time  time.Time
		Value float64
	}

	Writer interface {
		WritePoint(ctx context.Context, p Point) error
	}

	Querier interface {
		Aggregate(ctx context.Context, q Query) ([]Row, error)
	}

	// Deleter removes every point of measurement whose tags include all of
	// tags, whatever its timestamp. Empty tags select the whole measurement.
	Deleter interface {
		DeleteSeries(ctx context.Context, measurement string, tags map[string]string) error
	}

	Store interface {
		Writer
		Querier
		Deleter
		Ping(ctx context.Context) error
		Close() error
	}
)

func (w Window) String() string {
	switch w {
	case WindowHour:
		return "hour"
	case WindowDay:
		return "day"
	case WindowWeek:
		return "week"
	case WindowMonth:
		return "month"
	}
	return "none"
}

// Truncate returns the start of the bucket containing t, in UTC. Weeks
// start on Monday.
func (w Window) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch w {
	case WindowHour:
		return t.Truncate(time.Hour)
	case WindowDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case WindowWeek:
		dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(dayStart.Weekday()) + 6) % 7
		return dayStart.AddDate(0, 0, -offset)
	case WindowMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// TransactionPoint is the write-once metric recorded for a transaction.
func TransactionPoint(tx core.Transaction) Point {
	return Point{
		Measurement: MeasurementTransactions,
		Tags: map[string]string{
			TagType:          string(tx.Type),
			TagCategory:      string(tx.Category),
			TagTransactionID: tx.ID,
		},
		Fields: map[string]float64{FieldAmount: tx.Amount.InexactFloat64()},
		Time:   tx.Date.UTC(),
	}
}

// TransactionSeries selects every point recorded for one transaction.
func TransactionSeries(id string) map[string]string {
	return map[string]string{TagTransactionID: id}
}

// SumQuery sums the amount of transactions of one type over [start, stop).
func SumQuery(t core.TransactionType, start, stop time.Time) Query {
	return Query{
		Measurement: MeasurementTransactions,
		Field:       FieldAmount,
		Start:       start,
		Stop:        stop,
		Tags:        map[string]string{TagType: string(t)},
	}
}
