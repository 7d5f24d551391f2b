package services

import (
	"context"
	"fmt"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"golang.org/x/sync/errgroup"
)

const progressConcurrency = 8

// BudgetWithProgress pairs a budget with its progress when it was requested.
type BudgetWithProgress struct {
	core.Budget
	Progress *core.BudgetProgress
}

// BudgetService manages budgets and derives their progress from the
// document store's expense sums.
type BudgetService struct {
	budgets storage.BudgetStore
	spend   storage.TransactionStore
	logger  *log.Logger
}

func NewBudgetService(budgets storage.BudgetStore, spend storage.TransactionStore, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetService{
		budgets: budgets,
		spend:   spend,
		logger:  logger.WithComponent(log.ComponentBudget),
	}
}

// Create rejects budgets whose window overlaps another budget of the same
// category. The check and the insert are not atomic.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Normalize()
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.checkOverlap(ctx, b); err != nil {
		return core.Budget{}, err
	}

	if err := s.budgets.CreateBudget(ctx, &b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	fields := log.NewFields().
		WithOperation(log.OpCreate).
		WithBudget(b.ID, string(b.Category), b.LimitAmount)
	s.logger.InfoContext(ctx, "Budget created", fields.ToSlice()...)
	return b, nil
}

func (s *BudgetService) Get(ctx context.Context, id string, withProgress bool) (BudgetWithProgress, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return BudgetWithProgress{}, err
	}
	out := BudgetWithProgress{Budget: b}
	if withProgress {
		p, err := s.progress(ctx, b)
		if err != nil {
			return BudgetWithProgress{}, err
		}
		out.Progress = &p
	}
	return out, nil
}

// List returns a page of budgets, computing progress concurrently when asked.
func (s *BudgetService) List(ctx context.Context, page core.Page, withProgress bool) ([]BudgetWithProgress, error) {
	if page.Limit == 0 {
		page.Limit = core.DefaultPageLimit
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	list, err := s.budgets.ListBudgets(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	out := make([]BudgetWithProgress, len(list))
	for i, b := range list {
		out[i].Budget = b
	}
	if !withProgress {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(progressConcurrency)
	for i := range out {
		g.Go(func() error {
			p, err := s.progress(gctx, out[i].Budget)
			if err != nil {
				return err
			}
			out[i].Progress = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BudgetService) Progress(ctx context.Context, id string) (core.BudgetProgress, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.BudgetProgress{}, err
	}
	return s.progress(ctx, b)
}

// Update merges p into the stored budget, then rechecks the window and, when
// the category or dates change, the overlap rule against other budgets.
func (s *BudgetService) Update(ctx context.Context, id string, p core.BudgetPatch) (core.Budget, error) {
	if p.IsEmpty() {
		return core.Budget{}, core.ErrNoFieldsToUpdate
	}
	current, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}

	merged := p.Apply(current)
	merged.Normalize()
	if err := merged.Validate(); err != nil {
		return core.Budget{}, err
	}
	if p.TouchesWindow() {
		if err := s.checkOverlap(ctx, merged); err != nil {
			return core.Budget{}, err
		}
	}

	updated, err := s.budgets.UpdateBudget(ctx, id, normalizedBudgetPatch(p, merged))
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Budget updated",
		log.FieldBudgetID, id,
		log.FieldOperation, log.OpUpdate)
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, id string) error {
	if err := s.budgets.DeleteBudget(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Budget deleted",
		log.FieldBudgetID, id,
		log.FieldOperation, log.OpDelete)
	return nil
}

func (s *BudgetService) checkOverlap(ctx context.Context, b core.Budget) error {
	existing, err := s.budgets.ListBudgetsByCategory(ctx, b.Category)
	if err != nil {
		return fmt.Errorf("list budgets for %s: %w", b.Category, err)
	}
	if err := budget.ValidateNoOverlap(b, existing); err != nil {
		s.logger.WarnContext(ctx, "Budget overlaps an existing budget",
			log.FieldCategory, b.Category,
			log.FieldErrorType, log.ErrorTypeConflict,
			log.FieldError, err)
		return err
	}
	return nil
}

func (s *BudgetService) progress(ctx context.Context, b core.Budget) (core.BudgetProgress, error) {
	spent, err := s.spend.SumTransactions(ctx, core.BudgetWindow(b))
	if err != nil {
		return core.BudgetProgress{}, fmt.Errorf("sum spending for budget %s: %w", b.ID, err)
	}
	return budget.ComputeProgress(b, spent), nil
}

func normalizedBudgetPatch(p core.BudgetPatch, merged core.Budget) core.BudgetPatch {
	var out core.BudgetPatch
	if p.Category != nil {
		out.Category = &merged.Category
	}
	if p.LimitAmount != nil {
		out.LimitAmount = &merged.LimitAmount
	}
	if p.Period != nil {
		out.Period = &merged.Period
	}
	if p.StartDate != nil {
		out.StartDate = &merged.StartDate
	}
	if p.EndDate != nil {
		out.EndDate = &merged.EndDate
	}
	if p.AlertThreshold != nil {
		out.AlertThreshold = &merged.AlertThreshold
	}
	return out
}
