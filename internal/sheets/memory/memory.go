// Package memory is an in-process ledger for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

type Ledger struct {
	mu    sync.Mutex
	rows  []core.Transaction
	index map[string]int
}

var _ sheets.LedgerWriter = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{index: make(map[string]int)}
}

// AppendEntry stores tx and returns a synthetic row reference.
func (l *Ledger) AppendEntry(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", core.NewValidationError("id", "cannot be empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.index[tx.ID]; ok {
		return fmt.Sprintf("mem:%d", row), nil
	}
	tx.Tags = slices.Clone(tx.Tags)
	l.rows = append(l.rows, tx)
	l.index[tx.ID] = len(l.rows)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Entries returns the rows in append order.
func (l *Ledger) Entries() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.rows)
}
