// Package memory is an in-process document store for development and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[string]core.Transaction
	budgets      map[string]core.Budget
	now          func() time.Time
}

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.Budget),
		now:          time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateTransaction(_ context.Context, tx *core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	tx.ID = uuid.NewString()
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.transactions[tx.ID] = cloneTransaction(*tx)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.NotFoundError("transaction", id)
	}
	return cloneTransaction(tx), nil
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if matchTransaction(tx, f) {
			out = append(out, cloneTransaction(tx))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	lo, hi := f.Page.Window(len(out))
	return out[lo:hi], nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, p core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.NotFoundError("transaction", id)
	}
	tx = p.Apply(tx)
	tx.UpdatedAt = s.now().UTC()
	s.transactions[id] = cloneTransaction(tx)
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return core.NotFoundError("transaction", id)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) SumTransactions(_ context.Context, f core.SumFilter) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, tx := range s.transactions {
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.Category != "" && tx.Category != f.Category {
			continue
		}
		if tx.Date.Before(f.From) || tx.Date.After(f.To) {
			continue
		}
		sum = sum.Add(tx.Amount)
	}
	return sum, nil
}

func (s *Store) CreateBudget(_ context.Context, b *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets[b.ID] = *b
	return nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.NotFoundError("budget", id)
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, p core.Page) ([]core.Budget, error) {
	out := s.budgetsWhere(func(core.Budget) bool { return true })
	lo, hi := p.Window(len(out))
	return out[lo:hi], nil
}

func (s *Store) ListBudgetsByCategory(_ context.Context, c core.Category) ([]core.Budget, error) {
	return s.budgetsWhere(func(b core.Budget) bool { return b.Category == c }), nil
}

func (s *Store) UpdateBudget(_ context.Context, id string, p core.BudgetPatch) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.NotFoundError("budget", id)
	}
	b = p.Apply(b)
	b.UpdatedAt = s.now().UTC()
	s.budgets[id] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return core.NotFoundError("budget", id)
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) budgetsWhere(keep func(core.Budget) bool) []core.Budget {
	s.mu.RLock()
	var out []core.Budget
	for _, b := range s.budgets {
		if keep(b) {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func matchTransaction(tx core.Transaction, f core.TransactionFilter) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.From != nil && tx.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.Date.After(*f.To) {
		return false
	}
	if len(f.Tags) > 0 {
		return slices.ContainsFunc(tx.Tags, func(tag string) bool { return slices.Contains(f.Tags, tag) })
	}
	return true
}

func cloneTransaction(tx core.Transaction) core.Transaction {
	tx.Tags = slices.Clone(tx.Tags)
	return tx
}

var _ storage.Store = (*Store)(nil)
