package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/timeseries"
)

const DefaultPublishTimeout = 5 * time.Second

// PointPublisher records the time-series point of a newly created
// transaction, either directly or through a queue.
type PointPublisher interface {
	PublishPoint(ctx context.Context, tx core.Transaction) error
}

// DirectPublisher writes points straight to the time-series store.
type DirectPublisher struct {
	writer timeseries.Writer
}

func NewDirectPublisher(w timeseries.Writer) *DirectPublisher {
	return &DirectPublisher{writer: w}
}

func (p *DirectPublisher) PublishPoint(ctx context.Context, tx core.Transaction) error {
	if err := p.writer.WritePoint(ctx, timeseries.TransactionPoint(tx)); err != nil {
		return fmt.Errorf("write point for %s: %w", tx.ID, err)
	}
	return nil
}

// TimedPublisher runs a publish detached from the caller's cancellation and
// returns once it finishes or the timeout elapses, whichever comes first. A
// publish still running at the timeout keeps going in the background until
// its own context expires.
type TimedPublisher struct {
	next    PointPublisher
	timeout time.Duration
}

func NewTimedPublisher(next PointPublisher, timeout time.Duration) *TimedPublisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &TimedPublisher{next: next, timeout: timeout}
}

func (p *TimedPublisher) PublishPoint(ctx context.Context, tx core.Transaction) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- p.next.PublishPoint(ctx, tx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("publish point for %s: %w", tx.ID, ctx.Err())
	}
}
