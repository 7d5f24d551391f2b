package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	storemem "fintrack/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stuckPublisher ignores its context and blocks until released, like a
// broker dial that hangs.
type stuckPublisher struct {
	release chan struct{}
	calls   chan core.Transaction
}

func newStuckPublisher(t *testing.T) *stuckPublisher {
	p := &stuckPublisher{release: make(chan struct{}), calls: make(chan core.Transaction, 1)}
	t.Cleanup(func() { close(p.release) })
	return p
}

func (p *stuckPublisher) PublishPoint(_ context.Context, tx core.Transaction) error {
	p.calls <- tx
	<-p.release
	return nil
}

type publisherFunc func(ctx context.Context, tx core.Transaction) error

func (f publisherFunc) PublishPoint(ctx context.Context, tx core.Transaction) error {
	return f(ctx, tx)
}

func TestTimedPublisher_CreateReturnsWithinTimeout(t *testing.T) {
	docs := storemem.New()
	stuck := newStuckPublisher(t)
	svc := NewTransactionService(docs, NewTimedPublisher(stuck, 50*time.Millisecond), nil)

	start := time.Now()
	tx, err := svc.Create(context.Background(), groceries())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, tx.ID, (<-stuck.calls).ID)

	stored, err := docs.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, stored.ID)
}

func TestTimedPublisher_TimeoutError(t *testing.T) {
	p := NewTimedPublisher(newStuckPublisher(t), 20*time.Millisecond)
	err := p.PublishPoint(context.Background(), core.Transaction{ID: "tx-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimedPublisher_IgnoresCallerCancellation(t *testing.T) {
	var sawErr error
	var hasDeadline bool
	p := NewTimedPublisher(publisherFunc(func(ctx context.Context, _ core.Transaction) error {
		sawErr = ctx.Err()
		_, hasDeadline = ctx.Deadline()
		return nil
	}), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.PublishPoint(ctx, core.Transaction{ID: "tx-1"}))
	assert.NoError(t, sawErr)
	assert.True(t, hasDeadline)
}

func TestTimedPublisher_PassesErrorsThrough(t *testing.T) {
	p := NewTimedPublisher(publisherFunc(func(context.Context, core.Transaction) error {
		return errors.New("broker refused")
	}), time.Second)
	assert.ErrorContains(t, p.PublishPoint(context.Background(), core.Transaction{ID: "tx-1"}), "broker refused")
}

func TestNewTimedPublisher_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultPublishTimeout, NewTimedPublisher(nil, 0).timeout)
}
