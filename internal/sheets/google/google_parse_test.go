package google

import (
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLedgerRow(t *testing.T) {
	tx := core.Transaction{
		ID:          "tx-1",
		Amount:      decimal.RequireFromString("12.5"),
		Type:        core.Expense,
		Category:    core.Food,
		Description: "Lunch",
		Date:        time.Date(2025, 7, 3, 22, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		Tags:        []string{"work", "team"},
	}

	row := ledgerRow(tx)

	assert.Equal(t, []any{"2025-07-03", "expense", "food", "Lunch", "-12.50", "work, team", "tx-1"}, row)

	tx.Type, tx.Category = core.Income, core.Salary
	assert.Equal(t, "12.50", ledgerRow(tx)[4])
}

func TestIndexIDs(t *testing.T) {
	values := [][]any{
		{"Transaction ID"},
		{"a"},
		{},
		{" b "},
		{"a"},
	}

	got := indexIDs(values)

	assert.Equal(t, map[string]int{"a": 2, "b": 4}, got)
}

func TestRowFromRange(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Ledger!A12:G12", 12},
		{"'My Sheet'!A3:G4", 3},
		{"A7", 7},
		{"Ledger!A:G", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, rowFromRange(tt.in))
		})
	}
}
