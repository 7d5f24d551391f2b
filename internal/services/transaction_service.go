// Package services holds the use cases behind the API: transaction
// bookkeeping with point fan-out and budget management.
package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// TransactionService stores transactions and publishes one time-series point
// per created transaction. Updates and deletes never reach the time-series
// store.
type TransactionService struct {
	store  storage.TransactionStore
	points PointPublisher
	logger *log.Logger
	now    func() time.Time
}

func NewTransactionService(store storage.TransactionStore, points PointPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		store:  store,
		points: points,
		logger: logger.WithComponent(log.ComponentTransaction),
		now:    time.Now,
	}
}

// Create validates tx, inserts it and publishes its point. A publish failure
// is logged and does not fail the call.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Date.IsZero() {
		tx.Date = s.now()
	}
	tx.Normalize()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.CreateTransaction(ctx, &tx); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	fields := log.NewFields().
		WithOperation(log.OpCreate).
		WithTransaction(tx.ID, string(tx.Type), string(tx.Category), tx.Amount)
	s.logger.InfoContext(ctx, "Transaction created", fields.ToSlice()...)

	if s.points != nil {
		if err := s.points.PublishPoint(ctx, tx); err != nil {
			s.logger.Failure(ctx, "Failed to publish transaction point", err,
				log.FieldTransactionID, tx.ID,
				log.FieldOperation, log.OpPublish)
		}
	}
	return tx, nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// List applies the default page size when none is given.
func (s *TransactionService) List(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	if f.Limit == 0 {
		f.Limit = core.DefaultPageLimit
	}
	if err := f.Page.Validate(); err != nil {
		return nil, err
	}
	if f.Type != "" && !f.Type.IsValid() {
		return nil, core.NewValidationError("type", "must be income or expense")
	}
	if f.Category != "" && !f.Category.IsValid() {
		return nil, core.NewValidationError("category", "unknown category "+string(f.Category))
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, core.NewValidationError("start_date", "must not be after end_date")
	}
	f.Tags = core.NormalizeTags(f.Tags)

	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Update merges p into the stored transaction and validates the result.
func (s *TransactionService) Update(ctx context.Context, id string, p core.TransactionPatch) (core.Transaction, error) {
	if p.IsEmpty() {
		return core.Transaction{}, core.ErrNoFieldsToUpdate
	}
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	merged := p.Apply(current)
	merged.Normalize()
	if err := merged.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, id, normalizedTransactionPatch(p, merged))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Transaction updated",
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpUpdate)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpDelete)
	return nil
}

// normalizedTransactionPatch keeps the fields present in p but takes their
// values from the normalized merge.
func normalizedTransactionPatch(p core.TransactionPatch, merged core.Transaction) core.TransactionPatch {
	var out core.TransactionPatch
	if p.Amount != nil {
		out.Amount = &merged.Amount
	}
	if p.Type != nil {
		out.Type = &merged.Type
	}
	if p.Category != nil {
		out.Category = &merged.Category
	}
	if p.Description != nil {
		out.Description = &merged.Description
	}
	if p.Date != nil {
		out.Date = &merged.Date
	}
	if p.Tags != nil {
		out.Tags = &merged.Tags
	}
	return out
}
