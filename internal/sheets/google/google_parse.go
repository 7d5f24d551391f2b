package google

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

const (
	ledgerDateLayout = "2006-01-02"
	idColumn         = "G"
)

// ledgerRow renders tx in LedgerHeader column order. Amounts are signed so
// the sheet can total a column directly.
func ledgerRow(tx core.Transaction) []any {
	amount := tx.Amount
	if tx.Type == core.Expense {
		amount = amount.Neg()
	}
	return []any{
		tx.Date.UTC().Format(ledgerDateLayout),
		string(tx.Type),
		string(tx.Category),
		tx.Description,
		amount.StringFixed(2),
		strings.Join(tx.Tags, ", "),
		tx.ID,
	}
}

func headerRow() []any {
	out := make([]any, len(sheets.LedgerHeader))
	for i, h := range sheets.LedgerHeader {
		out[i] = h
	}
	return out
}

// indexIDs maps transaction ids found in a single-column read to their
// 1-based row numbers. Blank cells and the header are skipped.
func indexIDs(values [][]any) map[string]int {
	out := make(map[string]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id == "" || strings.EqualFold(id, sheets.LedgerHeader[len(sheets.LedgerHeader)-1]) {
			continue
		}
		if _, dup := out[id]; !dup {
			out[id] = i + 1
		}
	}
	return out
}

func rowRef(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, idColumn, row)
}

// rowFromRange extracts the first row number from an A1 range such as
// "Ledger!A12:G12". It returns 0 when none is found.
func rowFromRange(rng string) int {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	n := 0
	seenDigit := false
	for _, r := range rng {
		switch {
		case r >= '0' && r <= '9':
			n = n*10 + int(r-'0')
			seenDigit = true
		case seenDigit:
			return n
		}
	}
	return n
}
