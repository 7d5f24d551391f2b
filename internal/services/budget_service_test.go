package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	storemem "fintrack/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var june = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func foodBudget(start time.Time, days int) core.Budget {
	return core.Budget{
		Category:    core.Food,
		LimitAmount: decimal.NewFromInt(100),
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, days),
	}
}

func spend(t *testing.T, s *storemem.Store, amount string, at time.Time) {
	t.Helper()
	tx := core.Transaction{
		Amount:      decimal.RequireFromString(amount),
		Type:        core.Expense,
		Category:    core.Food,
		Description: "meal",
		Date:        at,
	}
	require.NoError(t, s.CreateTransaction(context.Background(), &tx))
}

func TestBudgetService_CreateAppliesDefaults(t *testing.T) {
	docs := storemem.New()
	svc := NewBudgetService(docs, docs, nil)

	b, err := svc.Create(context.Background(), foodBudget(june, 29))
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, core.Monthly, b.Period)
	assert.Equal(t, core.DefaultAlertThreshold, b.AlertThreshold)
}

func TestBudgetService_CreateRejectsOverlap(t *testing.T) {
	docs := storemem.New()
	svc := NewBudgetService(docs, docs, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, foodBudget(june, 29))
	require.NoError(t, err)

	_, err = svc.Create(ctx, foodBudget(june.AddDate(0, 0, 29), 10))
	require.ErrorIs(t, err, core.ErrOverlapConflict)
	var overlap *core.OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, first.ID, overlap.Existing.ID)

	other := foodBudget(june, 29)
	other.Category = core.Transport
	_, err = svc.Create(ctx, other)
	assert.NoError(t, err)
}

func TestBudgetService_CreateRejectsInvertedWindow(t *testing.T) {
	docs := storemem.New()
	svc := NewBudgetService(docs, docs, nil)

	_, err := svc.Create(context.Background(), foodBudget(june, -1))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestBudgetService_Progress(t *testing.T) {
	docs := storemem.New()
	svc := NewBudgetService(docs, docs, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, foodBudget(june, 29))
	require.NoError(t, err)
	spend(t, docs, "50", june)
	spend(t, docs, "25", june.AddDate(0, 0, 29))
	spend(t, docs, "1000", june.AddDate(0, 1, 0))

	p, err := svc.Progress(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, "75", p.SpentAmount.String())
	assert.Equal(t, "25", p.RemainingAmount.String())
	assert.Equal(t, core.StatusWarning, p.Status)
	assert.False(t, p.IsOverBudget)
	assert.False(t, p.AlertTriggered)

	got, err := svc.Get(ctx, b.ID, false)
	require.NoError(t, err)
	assert.Nil(t, got.Progress)
}

func TestBudgetService_ListWithProgress(t *testing.T) {
	docs := storemem.New()
	svc := NewBudgetService(docs, docs, nil)
	ctx := context.Background()

	for i := range 12 {
		_, err := svc.Create(ctx, foodBudget(june.AddDate(0, 0, i*10), 5))
		require.NoError(t, err)
	}
	spend(t, docs, "100", june)

	list, err := svc.List(ctx, core.Page{}, true)
	require.NoError(t, err)
	require.Len(t, list, 12)
	for _, b := range list {
		require.NotNil(t, b.Progress)
	}
	oldest := list[len(list)-1]
	assert.True(t, oldest.StartDate.Equal(june))
	assert.Equal(t, core.StatusExceeded, oldest.Progress.Status)

	page, err := svc.List(ctx, core.Page{Skip: 10, Limit: 5}, false)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Nil(t, page[0].Progress)
}

func TestBudgetService_ListPropagatesSumError(t *testing.T) {
	ctrl := gomock.NewController(t)
	budgets := storage.NewMockBudgetStore(ctrl)
	txs := storage.NewMockTransactionStore(ctrl)
	budgets.EXPECT().ListBudgets(gomock.Any(), gomock.Any()).Return([]core.Budget{foodBudget(june, 5)}, nil)
	txs.EXPECT().SumTransactions(gomock.Any(), gomock.Any()).Return(decimal.Zero, errors.New("locked"))

	svc := NewBudgetService(budgets, txs, nil)
	_, err := svc.List(context.Background(), core.Page{Limit: 10}, true)
	assert.ErrorContains(t, err, "locked")
}

func TestBudgetService_Update(t *testing.T) {
	docs := storemem.New()
	svc := NewBudgetService(docs, docs, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, foodBudget(june, 9))
	require.NoError(t, err)
	b, err := svc.Create(ctx, foodBudget(june.AddDate(0, 0, 20), 9))
	require.NoError(t, err)

	t.Run("empty patch", func(t *testing.T) {
		_, err := svc.Update(ctx, a.ID, core.BudgetPatch{})
		assert.ErrorIs(t, err, core.ErrNoFieldsToUpdate)
	})

	t.Run("moving into another window conflicts", func(t *testing.T) {
		end := june.AddDate(0, 0, 25)
		_, err := svc.Update(ctx, a.ID, core.BudgetPatch{EndDate: &end})
		assert.ErrorIs(t, err, core.ErrOverlapConflict)
	})

	t.Run("own window does not conflict", func(t *testing.T) {
		end := june.AddDate(0, 0, 15)
		got, err := svc.Update(ctx, a.ID, core.BudgetPatch{EndDate: &end})
		require.NoError(t, err)
		assert.True(t, got.EndDate.Equal(end))
	})

	t.Run("end before start", func(t *testing.T) {
		end := june.AddDate(0, 0, 19)
		_, err := svc.Update(ctx, b.ID, core.BudgetPatch{EndDate: &end})
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("limit is rounded", func(t *testing.T) {
		limit := decimal.RequireFromString("250.555")
		got, err := svc.Update(ctx, b.ID, core.BudgetPatch{LimitAmount: &limit})
		require.NoError(t, err)
		assert.Equal(t, "250.56", got.LimitAmount.StringFixed(2))
	})

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID, true)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
