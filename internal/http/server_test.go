package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
	tsmemory "fintrack/internal/timeseries/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	docs := memory.New()
	series := tsmemory.New()
	logger := log.Discard()

	deps := Dependencies{
		Transactions: services.NewTransactionService(docs, services.NewTimedPublisher(services.NewDirectPublisher(series), time.Second), logger),
		Budgets:      services.NewBudgetService(docs, docs, logger),
		Analytics:    analytics.NewService(series, analytics.WithClock(func() time.Time { return testNow })),
		Documents:    docs,
		Series:       series,
	}
	cfg.Version = "test"
	s, err := NewServer(cfg, deps, logger)
	require.NoError(t, err)
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createTransaction(t *testing.T, s *Server, body map[string]any) transactionResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/transactions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[transactionResponse](t, rec)
}

func TestServer_Probes(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", decode[map[string]string](t, rec)["version"])

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)

	rec = do(t, s, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/ping", nil)
	assert.Equal(t, map[string]string{"message": "pong"}, decode[map[string]string](t, rec))

	rec = do(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name   string
		method string
		path   string
		allow  string
	}{
		{"budget item", http.MethodPatch, "/api/v1/budgets/b-1", "GET, HEAD, PUT, DELETE"},
		{"transaction collection", http.MethodDelete, "/api/v1/transactions", "GET, HEAD, POST"},
		{"analytics", http.MethodPost, "/api/v1/analytics/savings-rate", "GET, HEAD"},
		{"healthz", http.MethodPost, "/healthz", "GET, HEAD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, tt.allow, rec.Header().Get("Allow"))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, decode[map[string]string](t, rec)["detail"], tt.method)
		})
	}

	rec := do(t, s, http.MethodPatch, "/api/v1/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Allow"))
}

func TestServer_ReadyFailsWhenStoreDown(t *testing.T) {
	s := newTestServer(t, Config{})
	s.deps.Series = failingPinger{}

	rec := do(t, s, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode[map[string]any](t, rec)["status"])
}

func TestServer_TransactionLifecycle(t *testing.T) {
	s := newTestServer(t, Config{})

	tx := createTransaction(t, s, map[string]any{
		"amount":      12.5,
		"type":        "expense",
		"category":    "food",
		"description": "  groceries ",
		"date":        "2025-12-10",
		"tags":        []string{"weekly", "weekly"},
	})
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, 12.5, tx.Amount)
	assert.Equal(t, "groceries", tx.Description)
	assert.Equal(t, []string{"weekly"}, tx.Tags)

	rec := do(t, s, http.MethodGet, "/api/v1/transactions/"+tx.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/v1/transactions/"+tx.ID, map[string]any{"amount": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 20.0, decode[transactionResponse](t, rec).Amount)

	rec = do(t, s, http.MethodPut, "/api/v1/transactions/"+tx.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/transactions?category=food&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]transactionResponse](t, rec), 1)

	rec = do(t, s, http.MethodDelete, "/api/v1/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[errorResponse](t, rec).Detail)
}

func TestServer_TransactionValidation(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"income category on expense", map[string]any{"amount": 1, "type": "expense", "category": "salary", "description": "x"}},
		{"zero amount", map[string]any{"amount": 0, "type": "expense", "category": "food", "description": "x"}},
		{"blank description", map[string]any{"amount": 1, "type": "expense", "category": "food", "description": "  "}},
		{"unknown field", map[string]any{"amount": 1, "type": "expense", "category": "food", "description": "x", "note": "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/transactions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, s, http.MethodGet, "/api/v1/transactions?limit=5000", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BudgetLifecycle(t *testing.T) {
	s := newTestServer(t, Config{})

	createTransaction(t, s, map[string]any{
		"amount": 750, "type": "expense", "category": "food", "description": "party", "date": "2025-12-15",
	})

	rec := do(t, s, http.MethodPost, "/api/v1/budgets", map[string]any{
		"category": "food", "limit_amount": 1000, "start_date": "2025-12-01", "end_date": "2025-12-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[budgetResponse](t, rec)
	assert.Equal(t, "monthly", b.Period)
	assert.Equal(t, 0.8, b.AlertThreshold)
	assert.Nil(t, b.Progress)

	rec = do(t, s, http.MethodPost, "/api/v1/budgets", map[string]any{
		"category": "food", "limit_amount": 100, "start_date": "2025-12-31", "end_date": "2026-01-31",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/budgets/"+b.ID+"/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[progressResponse](t, rec)
	assert.Equal(t, 750.0, p.SpentAmount)
	assert.Equal(t, 75.0, p.PercentageUsed)
	assert.Equal(t, "warning", p.Status)

	rec = do(t, s, http.MethodGet, "/api/v1/budgets/"+b.ID, nil)
	assert.Nil(t, decode[budgetResponse](t, rec).Progress)
	rec = do(t, s, http.MethodGet, "/api/v1/budgets/"+b.ID+"?include_progress=true", nil)
	assert.NotNil(t, decode[budgetResponse](t, rec).Progress)

	rec = do(t, s, http.MethodGet, "/api/v1/budgets", nil)
	list := decode[[]budgetResponse](t, rec)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].Progress)

	rec = do(t, s, http.MethodPut, "/api/v1/budgets/"+b.ID, map[string]any{"limit_amount": 2000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2000.0, decode[budgetResponse](t, rec).LimitAmount)

	rec = do(t, s, http.MethodDelete, "/api/v1/budgets/"+b.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/v1/budgets/"+b.ID+"/progress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Analytics(t *testing.T) {
	s := newTestServer(t, Config{})

	createTransaction(t, s, map[string]any{"amount": 3000, "type": "income", "category": "salary", "description": "pay", "date": "2025-12-05"})
	createTransaction(t, s, map[string]any{"amount": 500, "type": "expense", "category": "housing", "description": "rent", "date": "2025-12-06"})
	createTransaction(t, s, map[string]any{"amount": 250, "type": "expense", "category": "food", "description": "food", "date": "2025-12-07"})

	rec := do(t, s, http.MethodGet, "/api/v1/analytics/income-vs-expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[summaryResponse](t, rec)
	assert.Equal(t, 3000.0, sum.TotalIncome)
	assert.Equal(t, 750.0, sum.TotalExpenses)
	assert.Equal(t, 2250.0, sum.NetSavings)
	assert.Equal(t, 75.0, sum.SavingsRate)

	rec = do(t, s, http.MethodGet, "/api/v1/analytics/savings-rate?start_date=2025-12-01&end_date=2025-12-31", nil)
	assert.Equal(t, 75.0, decode[savingsRateResponse](t, rec).SavingsRatePercentage)

	rec = do(t, s, http.MethodGet, "/api/v1/analytics/category-breakdown", nil)
	cats := decode[breakdownResponse](t, rec).Categories
	require.Len(t, cats, 2)
	assert.Equal(t, "food", cats[0].Category)
	assert.Equal(t, 500.0, cats[1].TotalAmount)

	rec = do(t, s, http.MethodGet, "/api/v1/analytics/spending-trend?interval=1mo", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trend := decode[trendResponse](t, rec)
	assert.Equal(t, "1mo", trend.Interval)

	rec = do(t, s, http.MethodGet, "/api/v1/analytics/spending-trend?interval=2d", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/analytics/monthly-comparison?months=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := decode[comparisonResponse](t, rec)
	require.Len(t, cmp.Data, 3)
	assert.Equal(t, "2025-12", cmp.Data[0].Month)
	assert.Equal(t, 3000.0, cmp.Data[0].TotalIncome)

	rec = do(t, s, http.MethodGet, "/api/v1/analytics/monthly-comparison?months=25", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/analytics/income-vs-expenses?start_date=2025-12-31&end_date=2025-12-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PointsAreWrittenOnCreateOnly(t *testing.T) {
	s := newTestServer(t, Config{})

	tx := createTransaction(t, s, map[string]any{"amount": 100, "type": "expense", "category": "food", "description": "x", "date": "2025-12-05"})
	rec := do(t, s, http.MethodPut, "/api/v1/transactions/"+tx.ID, map[string]any{"amount": 300})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/analytics/income-vs-expenses", nil)
	assert.Equal(t, 100.0, decode[summaryResponse](t, rec).TotalExpenses)
}

func TestServer_AnalyticsCacheInvalidatedByWrites(t *testing.T) {
	s := newTestServer(t, Config{AnalyticsCacheTTL: time.Minute})

	createTransaction(t, s, map[string]any{"amount": 100, "type": "expense", "category": "food", "description": "x", "date": "2025-12-05"})
	path := "/api/v1/analytics/income-vs-expenses"

	first := decode[summaryResponse](t, do(t, s, http.MethodGet, path, nil))
	assert.Equal(t, 100.0, first.TotalExpenses)
	do(t, s, http.MethodGet, path, nil)
	assert.Equal(t, int64(1), s.metrics.cacheHits.Load())
	assert.Equal(t, int64(1), s.metrics.cacheMisses.Load())

	createTransaction(t, s, map[string]any{"amount": 50, "type": "expense", "category": "food", "description": "y", "date": "2025-12-06"})
	again := decode[summaryResponse](t, do(t, s, http.MethodGet, path, nil))
	assert.Equal(t, 150.0, again.TotalExpenses)
}

func TestServer_RateLimitAppliesToAPIOnly(t *testing.T) {
	s := newTestServer(t, Config{RateLimitRPM: 2})

	for range 2 {
		assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/ping", nil).Code)
	}
	rec := do(t, s, http.MethodGet, "/api/v1/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.True(t, strings.Contains(rec.Body.String(), "too many requests"))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)
}

func TestServer_SecurityHeadersAndRequestID(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := do(t, s, http.MethodGet, "/api/v1/ping", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
