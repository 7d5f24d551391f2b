// Package sheets defines the spreadsheet ledger that mirrors recorded
// transactions for manual review.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ledger columns, one row per transaction.
var LedgerHeader = []string{"Date", "Type", "Category", "Description", "Amount", "Tags", "Transaction ID"}

type (
	// LedgerWriter appends a transaction row. Appending a transaction already
	// present returns the existing row reference.
	LedgerWriter interface {
		AppendEntry(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)
