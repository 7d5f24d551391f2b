// Package worker writes queued transaction points into the time-series
// store and mirrors them into the spreadsheet ledger.
package worker

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/timeseries"
)

// PointWorker handles point messages consumed from the queue.
type PointWorker struct {
	writer timeseries.Writer
	ledger sheets.LedgerWriter
	logger *log.Logger
}

// NewPointWorker builds a worker. ledger may be nil.
func NewPointWorker(writer timeseries.Writer, ledger sheets.LedgerWriter, logger *log.Logger) *PointWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &PointWorker{
		writer: writer,
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandlePointMessage writes the point, then the ledger row. Both writes are
// idempotent so a requeued message is safe to replay. Messages that do not
// describe a valid transaction are logged and dropped.
func (w *PointWorker) HandlePointMessage(ctx context.Context, msg *amqp.PointMessage) error {
	tx, err := msg.Transaction()
	if err != nil {
		w.logger.Failure(ctx, "Dropping invalid point message", err,
			log.FieldTransactionID, msg.TransactionID,
			log.FieldErrorType, log.ErrorTypeValidation)
		return nil
	}
	return w.Process(ctx, tx)
}

// Process records one transaction.
func (w *PointWorker) Process(ctx context.Context, tx core.Transaction) error {
	if err := w.writer.WritePoint(ctx, timeseries.TransactionPoint(tx)); err != nil {
		return fmt.Errorf("write point %s: %w", tx.ID, err)
	}

	fields := log.NewFields().
		WithOperation(log.OpConsume).
		WithTransaction(tx.ID, string(tx.Type), string(tx.Category), tx.Amount)

	if w.ledger != nil {
		ref, err := w.ledger.AppendEntry(ctx, tx)
		if err != nil {
			return fmt.Errorf("append ledger row %s: %w", tx.ID, err)
		}
		fields[log.FieldLedgerRef] = ref
	}

	w.logger.InfoContext(ctx, "Transaction point recorded", fields.ToSlice()...)
	return nil
}
