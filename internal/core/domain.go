package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const MaxDescriptionLength = 500

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Income categories.
const (
	Salary      Category = "salary"
	Freelance   Category = "freelance"
	Investment  Category = "investment"
	OtherIncome Category = "other_income"
)

// Expense categories.
const (
	Food          Category = "food"
	Transport     Category = "transport"
	Housing       Category = "housing"
	Utilities     Category = "utilities"
	Entertainment Category = "entertainment"
	Healthcare    Category = "healthcare"
	Education     Category = "education"
	Shopping      Category = "shopping"
	Travel        Category = "travel"
	Subscriptions Category = "subscriptions"
	OtherExpense  Category = "other_expense"
)

type (
	TransactionType string

	Category string

	Transaction struct {
		ID          string
		Amount      decimal.Decimal
		Type        TransactionType
		Category    Category
		Description string
		Date        time.Time
		Tags        []string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// TransactionPatch holds the fields of a partial update. Nil means unchanged.
	TransactionPatch struct {
		Amount      *decimal.Decimal
		Type        *TransactionType
		Category    *Category
		Description *string
		Date        *time.Time
		Tags        *[]string
	}
)

var incomeCategories = []Category{Salary, Freelance, Investment, OtherIncome}

var expenseCategories = []Category{
	Food, Transport, Housing, Utilities, Entertainment, Healthcare,
	Education, Shopping, Travel, Subscriptions, OtherExpense,
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", NewValidationError("type", "must be income or expense")
	}
	return t, nil
}

// Categories returns every category, income first.
func Categories() []Category {
	out := make([]Category, 0, len(incomeCategories)+len(expenseCategories))
	out = append(out, incomeCategories...)
	return append(out, expenseCategories...)
}

// CategoriesFor returns the categories that belong to a transaction type.
func CategoriesFor(t TransactionType) []Category {
	switch t {
	case Income:
		return append([]Category(nil), incomeCategories...)
	case Expense:
		return append([]Category(nil), expenseCategories...)
	}
	return nil
}

// Type reports which transaction type the category belongs to.
func (c Category) Type() TransactionType {
	for _, ic := range incomeCategories {
		if c == ic {
			return Income
		}
	}
	for _, ec := range expenseCategories {
		if c == ec {
			return Expense
		}
	}
	return ""
}

func (c Category) IsValid() bool {
	return c.Type() != ""
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", NewValidationError("category", "unknown category "+strings.TrimSpace(s))
	}
	return c, nil
}

// Normalize trims the description, rounds the amount to cents, moves the
// date to UTC and drops empty or repeated tags.
func (t *Transaction) Normalize() {
	t.Description = strings.TrimSpace(t.Description)
	t.Amount = RoundMoney(t.Amount)
	t.Date = t.Date.UTC()
	t.Tags = NormalizeTags(t.Tags)
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if !t.Type.IsValid() {
		return NewValidationError("type", "must be income or expense")
	}
	if !t.Category.IsValid() {
		return NewValidationError("category", "unknown category "+string(t.Category))
	}
	if t.Category.Type() != t.Type {
		return NewValidationError("category", string(t.Category)+" is not an "+string(t.Type)+" category")
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return NewValidationError("description", "cannot be empty")
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return NewValidationError("description", "too long (max 500 characters)")
	}
	if t.Date.IsZero() {
		return NewValidationError("date", "cannot be zero")
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Type == nil && p.Category == nil &&
		p.Description == nil && p.Date == nil && p.Tags == nil
}

// Apply returns a copy of t with the patch fields set.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	return t
}

func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
