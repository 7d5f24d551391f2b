package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
	"fintrack/internal/timeseries"
	"fintrack/internal/worker"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func backfillCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay stored transactions into the time-series store",
		Long: `Replay transactions from the document store into the time-series store.

Each replayed transaction's old points are deleted before its point is
rewritten, so edits made since the point was recorded are picked up and
running a backfill twice leaves the series unchanged. Points of deleted
transactions are only dropped by --rebuild, which clears every transaction
point first and cannot be combined with --from or --to.

Examples:
  fintrackctl backfill
  fintrackctl backfill --from 2025-01-01 --to 2025-03-31
  fintrackctl backfill --with-ledger
  fintrackctl backfill --rebuild`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.backfill(cmd)
		},
	}

	cmd.Flags().String("from", "", "first transaction date to replay (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last transaction date to replay (YYYY-MM-DD)")
	cmd.Flags().Int("batch", worker.DefaultBackfillBatch, "transactions read per page")
	cmd.Flags().Bool("with-ledger", false, "also append rows to the spreadsheet ledger")
	cmd.Flags().Bool("rebuild", false, "clear all transaction points before replaying")
	return cmd
}

func (a *app) backfill(cmd *cobra.Command) error {
	ctx := cmd.Context()

	f, err := backfillFilter(cmd)
	if err != nil {
		return err
	}
	batch, _ := cmd.Flags().GetInt("batch")
	withLedger, _ := cmd.Flags().GetBool("with-ledger")
	rebuild, _ := cmd.Flags().GetBool("rebuild")

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(a.logger)

	docs, err := factory.CreateDocuments(ctx, bcfg)
	if err != nil {
		return err
	}
	defer docs.Close()

	series, err := factory.CreateSeries(ctx, bcfg)
	if err != nil {
		return err
	}
	defer series.Close()

	var ledger sheets.LedgerWriter
	if withLedger {
		if ledger, err = factory.CreateLedger(ctx, bcfg); err != nil {
			return err
		}
		if ledger == nil {
			return fmt.Errorf("--with-ledger needs GOOGLE_SPREADSHEET_ID and service account credentials")
		}
	}

	opts := worker.BackfillOptions{Filter: f, Batch: batch, Rebuild: rebuild}
	return runBackfill(ctx, cmd.OutOrStdout(), docs, series, ledger, opts, a.logger)
}

func backfillFilter(cmd *cobra.Command) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return f, fmt.Errorf("invalid --from %q: %w", from, err)
		}
		f.From = &t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return f, fmt.Errorf("invalid --to %q: %w", to, err)
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, fmt.Errorf("--to must not be before --from")
	}
	return f, nil
}

func runBackfill(ctx context.Context, out io.Writer, docs storage.TransactionStore, series timeseries.Store, ledger sheets.LedgerWriter, opts worker.BackfillOptions, logger *log.Logger) error {
	w := worker.NewPointWorker(series, ledger, logger)
	res, err := worker.Backfill(ctx, docs, series, w, opts)
	if err != nil {
		return fmt.Errorf("backfill stopped after %d of %d transactions: %w", res.Written, res.Scanned, err)
	}

	_, err = fmt.Fprintf(out, "Replayed %d of %d transactions\n", res.Written, res.Scanned)
	return err
}
