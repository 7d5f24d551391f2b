package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/timeseries"
)

const DefaultBackfillBatch = 500

var ErrRebuildFiltered = errors.New("rebuild replays every transaction and cannot be filtered")

type (
	BackfillOptions struct {
		Filter core.TransactionFilter
		Batch  int
		// Rebuild drops the whole measurement before replaying, which also
		// clears points of deleted transactions. It needs an empty filter.
		Rebuild bool
	}

	// BackfillResult counts what a replay touched.
	BackfillResult struct {
		Scanned int
		Written int
	}
)

// Backfill replays every transaction matching opts.Filter from the document
// store through w, one page at a time. Each transaction's existing points are
// deleted before its point is rewritten, so edits to type, category or date
// replace the stale point instead of adding one. Pagination in the filter is
// ignored.
func Backfill(ctx context.Context, store storage.TransactionStore, series timeseries.Deleter, w *PointWorker, opts BackfillOptions) (BackfillResult, error) {
	var res BackfillResult
	f := opts.Filter
	if opts.Rebuild && !isUnfiltered(f) {
		return res, ErrRebuildFiltered
	}
	batch := opts.Batch
	if batch <= 0 || batch > core.MaxPageLimit {
		batch = DefaultBackfillBatch
	}
	f.Page = core.Page{Limit: batch}

	if opts.Rebuild {
		if err := series.DeleteSeries(ctx, timeseries.MeasurementTransactions, nil); err != nil {
			return res, fmt.Errorf("clear transaction points: %w", err)
		}
		w.logger.WarnContext(ctx, "Cleared all transaction points for rebuild",
			log.FieldOperation, log.OpDelete)
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page, err := store.ListTransactions(ctx, f)
		if err != nil {
			return res, fmt.Errorf("list transactions at %d: %w", f.Skip, err)
		}
		for _, tx := range page {
			res.Scanned++
			if !opts.Rebuild {
				err := series.DeleteSeries(ctx, timeseries.MeasurementTransactions, timeseries.TransactionSeries(tx.ID))
				if err != nil {
					return res, fmt.Errorf("delete points of %s: %w", tx.ID, err)
				}
			}
			if err := w.Process(ctx, tx); err != nil {
				return res, err
			}
			res.Written++
		}
		if len(page) < batch {
			break
		}
		f.Skip += batch
	}

	w.logger.InfoContext(ctx, "Backfill finished",
		log.FieldCount, res.Written,
		log.FieldOperation, "backfill")
	return res, nil
}

func isUnfiltered(f core.TransactionFilter) bool {
	return f.Type == "" && f.Category == "" && f.From == nil && f.To == nil && len(f.Tags) == 0
}
