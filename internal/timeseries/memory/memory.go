// Package memory is an in-process time-series store used by the memory
// backend and by tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/timeseries"
)

var ErrClosed = errors.New("timeseries store closed")

// Store keeps points keyed by measurement, tag set and timestamp, so writing
// the same point twice overwrites it like InfluxDB does.
type Store struct {
	mu     sync.RWMutex
	points map[string]timeseries.Point
	closed bool
}

func New() *Store {
	return &Store{points: make(map[string]timeseries.Point)}
}

func (s *Store) WritePoint(_ context.Context, p timeseries.Point) error {
	if p.Measurement == "" {
		return errors.New("point measurement is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	p.Time = p.Time.UTC()
	s.points[seriesKey(p)] = clonePoint(p)
	return nil
}

// Aggregate sums q.Field over matching points. Bucket starts are clamped to
// q.Start, matching windows cut by a range bound.
func (s *Store) Aggregate(_ context.Context, q timeseries.Query) ([]timeseries.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	type bucket struct {
		key string
		at  time.Time
	}
	sums := make(map[bucket]float64)
	for _, p := range s.points {
		if !matches(p, q) {
			continue
		}
		v, ok := p.Fields[q.Field]
		if !ok {
			continue
		}
		var b bucket
		if q.GroupBy != "" {
			b.key = p.Tags[q.GroupBy]
		}
		if q.Window != timeseries.WindowNone {
			b.at = q.Window.Truncate(p.Time)
			if b.at.Before(q.Start) {
				b.at = q.Start.UTC()
			}
		}
		sums[b] += v
	}

	rows := make([]timeseries.Row, 0, len(sums))
	for b, v := range sums {
		rows = append(rows, timeseries.Row{Key: b.key, Time: b.at, Value: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].Time.Before(rows[j].Time)
	})
	return rows, nil
}

func (s *Store) DeleteSeries(_ context.Context, measurement string, tags map[string]string) error {
	if measurement == "" {
		return errors.New("measurement is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for key, p := range s.points {
		if p.Measurement == measurement && hasTags(p, tags) {
			delete(s.points, key)
		}
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func matches(p timeseries.Point, q timeseries.Query) bool {
	if q.Measurement != "" && p.Measurement != q.Measurement {
		return false
	}
	if p.Time.Before(q.Start) || !p.Time.Before(q.Stop) {
		return false
	}
	return hasTags(p, q.Tags)
}

func hasTags(p timeseries.Point, tags map[string]string) bool {
	for k, v := range tags {
		if p.Tags[k] != v {
			return false
		}
	}
	return true
}

func seriesKey(p timeseries.Point) string {
	keys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(p.Measurement)
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.Tags[k])
	}
	b.WriteByte(' ')
	b.WriteString(p.Time.Format(time.RFC3339Nano))
	return b.String()
}

func clonePoint(p timeseries.Point) timeseries.Point {
	tags := make(map[string]string, len(p.Tags))
	for k, v := range p.Tags {
		tags[k] = v
	}
	fields := make(map[string]float64, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	p.Tags = tags
	p.Fields = fields
	return p
}

var _ timeseries.Store = (*Store)(nil)
