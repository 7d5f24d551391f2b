package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTransaction() Transaction {
	return Transaction{
		Amount:      decimal.RequireFromString("12.50"),
		Type:        Expense,
		Category:    Food,
		Description: "groceries",
		Date:        time.Date(2025, 12, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestCategoryType(t *testing.T) {
	for _, c := range CategoriesFor(Income) {
		assert.Equal(t, Income, c.Type(), c)
	}
	for _, c := range CategoriesFor(Expense) {
		assert.Equal(t, Expense, c.Type(), c)
	}
	assert.Len(t, Categories(), 15)
	assert.False(t, Category("rent").IsValid())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Food ")
	require.NoError(t, err)
	assert.Equal(t, Food, c)

	_, err = ParseCategory("rent")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransactionValidate(t *testing.T) {
	require.NoError(t, validTransaction().Validate())

	cases := map[string]func(*Transaction){
		"zero amount":     func(tx *Transaction) { tx.Amount = decimal.Zero },
		"negative amount": func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) },
		"bad type":        func(tx *Transaction) { tx.Type = "transfer" },
		"bad category":    func(tx *Transaction) { tx.Category = "rent" },
		"income category": func(tx *Transaction) { tx.Category = Salary },
		"empty desc":      func(tx *Transaction) { tx.Description = "   " },
		"long desc":       func(tx *Transaction) { tx.Description = strings.Repeat("a", 501) },
		"zero date":       func(tx *Transaction) { tx.Date = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tx := validTransaction()
			mutate(&tx)
			err := tx.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestTransactionNormalize(t *testing.T) {
	tx := validTransaction()
	tx.Amount = decimal.RequireFromString("10.005")
	tx.Description = "  lunch "
	tx.Tags = []string{"work", " ", "work", "team"}
	tx.Normalize()

	assert.Equal(t, "10.01", tx.Amount.StringFixed(2))
	assert.Equal(t, "lunch", tx.Description)
	assert.Equal(t, []string{"work", "team"}, tx.Tags)
}

func TestTransactionPatch(t *testing.T) {
	assert.True(t, TransactionPatch{}.IsEmpty())

	desc := "dinner"
	amount := decimal.NewFromInt(40)
	p := TransactionPatch{Description: &desc, Amount: &amount}
	assert.False(t, p.IsEmpty())

	got := p.Apply(validTransaction())
	assert.Equal(t, "dinner", got.Description)
	assert.True(t, got.Amount.Equal(amount))
	assert.Equal(t, Food, got.Category)
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{
		Category:    Food,
		LimitAmount: decimal.NewFromInt(500),
		StartDate:   time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
	}
	b.Normalize()
	require.NoError(t, b.Validate())
	assert.Equal(t, Monthly, b.Period)
	assert.Equal(t, DefaultAlertThreshold, b.AlertThreshold)

	bad := b
	bad.EndDate = bad.StartDate
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = b
	bad.AlertThreshold = 1.5
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = b
	bad.LimitAmount = decimal.Zero
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestParseBudgetPeriod(t *testing.T) {
	p, err := ParseBudgetPeriod("")
	require.NoError(t, err)
	assert.Equal(t, Monthly, p)

	p, err = ParseBudgetPeriod("WEEKLY")
	require.NoError(t, err)
	assert.Equal(t, Weekly, p)

	_, err = ParseBudgetPeriod("daily")
	assert.Error(t, err)
}

func TestOverlapErrorMatchesSentinel(t *testing.T) {
	err := error(&OverlapError{Existing: Budget{ID: "b1", Category: Food}})
	assert.ErrorIs(t, err, ErrOverlapConflict)
	assert.Contains(t, err.Error(), "food")
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("budget", "42")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "42")
}
