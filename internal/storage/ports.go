package storage

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=storage -exclude_interfaces=Store

import (
	"context"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Ports implemented by the document store adapters. Missing ids return an
// error matching core.ErrNotFound.
type (
	TransactionStore interface {
		// CreateTransaction assigns ID, CreatedAt and UpdatedAt on tx.
		CreateTransaction(ctx context.Context, tx *core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// ListTransactions returns matches sorted by date, newest first.
		ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, id string, p core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
		// SumTransactions adds up amounts matching f, bounds inclusive.
		SumTransactions(ctx context.Context, f core.SumFilter) (decimal.Decimal, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b *core.Budget) error
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		// ListBudgets returns budgets sorted by start date, newest first.
		ListBudgets(ctx context.Context, p core.Page) ([]core.Budget, error)
		ListBudgetsByCategory(ctx context.Context, c core.Category) ([]core.Budget, error)
		UpdateBudget(ctx context.Context, id string, p core.BudgetPatch) (core.Budget, error)
		DeleteBudget(ctx context.Context, id string) error
	}

	// Store is a complete document store.
	Store interface {
		TransactionStore
		BudgetStore
		Ping(ctx context.Context) error
		Close() error
	}
)
