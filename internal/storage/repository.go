package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so that text comparison orders like time.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const transactionColumns = "id, amount_cents, type, category, description, date, tags, created_at, updated_at"

const budgetColumns = "id, category, limit_cents, period, start_date, end_date, alert_threshold, created_at, updated_at"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx *core.Transaction) error {
	now := r.now().UTC()
	tx.ID = uuid.NewString()
	tx.CreatedAt, tx.UpdatedAt = now, now

	tags, err := encodeTags(tx.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, core.Cents(tx.Amount), string(tx.Type), string(tx.Category), tx.Description,
		formatTime(tx.Date), tags, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"transaction_id", tx.ID,
		"type", tx.Type,
		"category", tx.Category,
		"amount", tx.Amount.StringFixed(2))
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFoundError("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, formatTime(*f.To))
	}
	if len(f.Tags) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(f.Tags)), ", ")
		where = append(where, "EXISTS (SELECT 1 FROM json_each(transactions.tags) WHERE json_each.value IN ("+marks+"))")
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id LIMIT ? OFFSET ?"
	args = append(args, limitArg(f.Limit), max(f.Skip, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, p core.TransactionPatch) (core.Transaction, error) {
	var updated core.Transaction
	err := r.inTx(ctx, func(q *sql.Tx) error {
		current, err := scanTransaction(q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFoundError("transaction", id)
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}

		updated = p.Apply(current)
		updated.UpdatedAt = r.now().UTC()
		tags, err := encodeTags(updated.Tags)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			`UPDATE transactions SET amount_cents = ?, type = ?, category = ?, description = ?, date = ?, tags = ?, updated_at = ? WHERE id = ?`,
			core.Cents(updated.Amount), string(updated.Type), string(updated.Category), updated.Description,
			formatTime(updated.Date), tags, formatTime(updated.UpdatedAt), id)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	return updated, err
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "transactions", "transaction", id)
}

func (r *SQLiteRepository) SumTransactions(ctx context.Context, f core.SumFilter) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE date >= ? AND date <= ?`
	args := []any{formatTime(f.From), formatTime(f.To)}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, string(f.Category))
	}

	var cents int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	return core.FromCents(cents), nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	now := r.now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, string(b.Category), core.Cents(b.LimitAmount), string(b.Period),
		formatTime(b.StartDate), formatTime(b.EndDate), b.AlertThreshold,
		formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}

	slog.DebugContext(ctx, "Budget saved to SQLite",
		"budget_id", b.ID,
		"category", b.Category,
		"limit", b.LimitAmount.StringFixed(2))
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NotFoundError("budget", id)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, p core.Page) ([]core.Budget, error) {
	return r.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets ORDER BY start_date DESC, id LIMIT ? OFFSET ?`,
		limitArg(p.Limit), max(p.Skip, 0))
}

func (r *SQLiteRepository) ListBudgetsByCategory(ctx context.Context, c core.Category) ([]core.Budget, error) {
	return r.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE category = ? ORDER BY start_date DESC, id`,
		string(c))
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, id string, p core.BudgetPatch) (core.Budget, error) {
	var updated core.Budget
	err := r.inTx(ctx, func(q *sql.Tx) error {
		current, err := scanBudget(q.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFoundError("budget", id)
		}
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}

		updated = p.Apply(current)
		updated.UpdatedAt = r.now().UTC()
		_, err = q.ExecContext(ctx,
			`UPDATE budgets SET category = ?, limit_cents = ?, period = ?, start_date = ?, end_date = ?, alert_threshold = ?, updated_at = ? WHERE id = ?`,
			string(updated.Category), core.Cents(updated.LimitAmount), string(updated.Period),
			formatTime(updated.StartDate), formatTime(updated.EndDate), updated.AlertThreshold,
			formatTime(updated.UpdatedAt), id)
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		return nil
	})
	return updated, err
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "budgets", "budget", id)
}

func (r *SQLiteRepository) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table, resource, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", resource, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", resource, err)
	}
	if n == 0 {
		return core.NotFoundError(resource, id)
	}
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx                         core.Transaction
		cents                      int64
		typ, cat, tags             string
		date, createdAt, updatedAt string
	)
	if err := s.Scan(&tx.ID, &cents, &typ, &cat, &tx.Description, &date, &tags, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	tx.Amount = core.FromCents(cents)
	tx.Type = core.TransactionType(typ)
	tx.Category = core.Category(cat)

	var err error
	if tx.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	if tx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Transaction{}, err
	}
	if err := json.Unmarshal([]byte(tags), &tx.Tags); err != nil {
		return core.Transaction{}, fmt.Errorf("decode tags: %w", err)
	}
	if len(tx.Tags) == 0 {
		tx.Tags = nil
	}
	return tx, nil
}

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                    core.Budget
		cents                int64
		cat, period          string
		start, end           string
		createdAt, updatedAt string
	)
	if err := s.Scan(&b.ID, &cat, &cents, &period, &start, &end, &b.AlertThreshold, &createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	b.Category = core.Category(cat)
	b.LimitAmount = core.FromCents(cents)
	b.Period = core.BudgetPeriod(period)

	var err error
	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&b.StartDate, start}, {&b.EndDate, end}, {&b.CreatedAt, createdAt}, {&b.UpdatedAt, updatedAt}} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return core.Budget{}, err
		}
	}
	return b, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// limitArg maps "no limit" to SQLite's -1.
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

var _ Store = (*SQLiteRepository)(nil)
