package http

import (
	"encoding/json"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

// Wire types. Money is rendered as a JSON number.

type (
	transactionRequest struct {
		Amount      json.Number `json:"amount"`
		Type        string      `json:"type"`
		Category    string      `json:"category"`
		Description string      `json:"description"`
		Date        string      `json:"date"`
		Tags        []string    `json:"tags"`
	}

	transactionUpdateRequest struct {
		Amount      *json.Number `json:"amount"`
		Type        *string      `json:"type"`
		Category    *string      `json:"category"`
		Description *string      `json:"description"`
		Date        *string      `json:"date"`
		Tags        *[]string    `json:"tags"`
	}

	transactionResponse struct {
		ID          string    `json:"id"`
		Amount      float64   `json:"amount"`
		Type        string    `json:"type"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Date        time.Time `json:"date"`
		Tags        []string  `json:"tags"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	budgetRequest struct {
		Category       string      `json:"category"`
		LimitAmount    json.Number `json:"limit_amount"`
		Period         string      `json:"period"`
		StartDate      string      `json:"start_date"`
		EndDate        string      `json:"end_date"`
		AlertThreshold *float64    `json:"alert_threshold"`
	}

	budgetUpdateRequest struct {
		Category       *string      `json:"category"`
		LimitAmount    *json.Number `json:"limit_amount"`
		Period         *string      `json:"period"`
		StartDate      *string      `json:"start_date"`
		EndDate        *string      `json:"end_date"`
		AlertThreshold *float64     `json:"alert_threshold"`
	}

	budgetResponse struct {
		ID             string            `json:"id"`
		Category       string            `json:"category"`
		LimitAmount    float64           `json:"limit_amount"`
		Period         string            `json:"period"`
		StartDate      time.Time         `json:"start_date"`
		EndDate        time.Time         `json:"end_date"`
		AlertThreshold float64           `json:"alert_threshold"`
		CreatedAt      time.Time         `json:"created_at"`
		UpdatedAt      time.Time         `json:"updated_at"`
		Progress       *progressResponse `json:"progress,omitempty"`
	}

	progressResponse struct {
		SpentAmount     float64 `json:"spent_amount"`
		RemainingAmount float64 `json:"remaining_amount"`
		PercentageUsed  float64 `json:"percentage_used"`
		Status          string  `json:"status"`
		IsOverBudget    bool    `json:"is_over_budget"`
		AlertTriggered  bool    `json:"alert_triggered"`
	}

	trendPoint struct {
		Timestamp time.Time `json:"timestamp"`
		Amount    float64   `json:"amount"`
	}

	trendResponse struct {
		StartDate  time.Time    `json:"start_date"`
		EndDate    time.Time    `json:"end_date"`
		Interval   string       `json:"interval"`
		DataPoints []trendPoint `json:"data_points"`
	}

	categoryTotal struct {
		Category    string  `json:"category"`
		TotalAmount float64 `json:"total_amount"`
	}

	breakdownResponse struct {
		StartDate  time.Time       `json:"start_date"`
		EndDate    time.Time       `json:"end_date"`
		Categories []categoryTotal `json:"categories"`
	}

	summaryFields struct {
		TotalIncome   float64 `json:"total_income"`
		TotalExpenses float64 `json:"total_expenses"`
		NetSavings    float64 `json:"net_savings"`
		SavingsRate   float64 `json:"savings_rate"`
	}

	summaryResponse struct {
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		summaryFields
	}

	monthResponse struct {
		Month     string    `json:"month"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		summaryFields
	}

	comparisonResponse struct {
		Months int             `json:"months"`
		Data   []monthResponse `json:"data"`
	}

	savingsRateResponse struct {
		StartDate             time.Time `json:"start_date"`
		EndDate               time.Time `json:"end_date"`
		TotalIncome           float64   `json:"total_income"`
		TotalExpenses         float64   `json:"total_expenses"`
		NetSavings            float64   `json:"net_savings"`
		SavingsRatePercentage float64   `json:"savings_rate_percentage"`
	}

	errorResponse struct {
		Error  string `json:"error"`
		Detail string `json:"detail,omitempty"`
	}
)

func money(d decimal.Decimal) float64 {
	return core.RoundMoney(d).InexactFloat64()
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	tags := tx.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionResponse{
		ID:          tx.ID,
		Amount:      money(tx.Amount),
		Type:        string(tx.Type),
		Category:    string(tx.Category),
		Description: tx.Description,
		Date:        tx.Date,
		Tags:        tags,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func toBudgetResponse(b core.Budget, p *core.BudgetProgress) budgetResponse {
	out := budgetResponse{
		ID:             b.ID,
		Category:       string(b.Category),
		LimitAmount:    money(b.LimitAmount),
		Period:         string(b.Period),
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
		AlertThreshold: b.AlertThreshold,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if p != nil {
		pr := toProgressResponse(*p)
		out.Progress = &pr
	}
	return out
}

func toBudgetWithProgress(b services.BudgetWithProgress) budgetResponse {
	return toBudgetResponse(b.Budget, b.Progress)
}

func toProgressResponse(p core.BudgetProgress) progressResponse {
	return progressResponse{
		SpentAmount:     money(p.SpentAmount),
		RemainingAmount: money(p.RemainingAmount),
		PercentageUsed:  p.PercentageUsed.InexactFloat64(),
		Status:          string(p.Status),
		IsOverBudget:    p.IsOverBudget,
		AlertTriggered:  p.AlertTriggered,
	}
}

func toSummaryFields(s analytics.Summary) summaryFields {
	return summaryFields{
		TotalIncome:   money(s.TotalIncome),
		TotalExpenses: money(s.TotalExpenses),
		NetSavings:    money(s.NetSavings),
		SavingsRate:   s.SavingsRate.InexactFloat64(),
	}
}

func toTrendPoints(t analytics.Trend) []trendPoint {
	out := make([]trendPoint, 0, len(t))
	for ts, amount := range t.All() {
		out = append(out, trendPoint{Timestamp: ts, Amount: money(amount)})
	}
	return out
}

func toCategoryTotals(totals []analytics.CategoryTotal) []categoryTotal {
	out := make([]categoryTotal, 0, len(totals))
	for _, c := range totals {
		out = append(out, categoryTotal{Category: string(c.Category), TotalAmount: money(c.TotalAmount)})
	}
	return out
}

func toMonthResponses(months []analytics.MonthSummary) []monthResponse {
	out := make([]monthResponse, 0, len(months))
	for _, m := range months {
		out = append(out, monthResponse{
			Month:         m.Month,
			StartDate:     m.StartDate,
			EndDate:       m.EndDate,
			summaryFields: toSummaryFields(m.Summary),
		})
	}
	return out
}
