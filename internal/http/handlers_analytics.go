package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"fintrack/internal/analytics"
	"fintrack/internal/log"
)

// writeCached serves the encoded result of load, sharing it across requests
// with the same path and query until it expires or a transaction changes.
func (s *Server) writeCached(w http.ResponseWriter, r *http.Request, load func() (any, error)) {
	encode := func() ([]byte, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	var (
		data []byte
		err  error
	)
	if s.analyticsCache == nil {
		data, err = encode()
	} else {
		key := r.URL.Path + "?" + r.URL.Query().Encode()
		missed := false
		data, err = s.analyticsCache.GetOrLoad(key, func() ([]byte, error) {
			missed = true
			return encode()
		})
		if missed {
			s.metrics.cacheMisses.Add(1)
		} else {
			s.metrics.cacheHits.Add(1)
		}
	}
	if err != nil {
		writeError(w, r, log.OpQuery, err)
		return
	}
	NewJSONResponse().Raw(data).Write(w)
}

func (s *Server) handleSpendingTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := ParseDateRange(q, s.now())
	if err != nil {
		writeError(w, r, log.OpQuery, err)
		return
	}
	interval := strings.TrimSpace(q.Get("interval"))
	if interval == "" {
		interval = "1d"
	}
	window, err := analytics.ParseWindow(interval)
	if err != nil {
		writeError(w, r, log.OpQuery, err)
		return
	}

	s.writeCached(w, r, func() (any, error) {
		trend, err := s.deps.Analytics.SpendingTrend(r.Context(), rng, window)
		if err != nil {
			return nil, err
		}
		return trendResponse{
			StartDate:  rng.Start,
			EndDate:    rng.End,
			Interval:   interval,
			DataPoints: toTrendPoints(trend),
		}, nil
	})
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpQuery, err)
		return
	}
	s.writeCached(w, r, func() (any, error) {
		totals, err := s.deps.Analytics.CategoryBreakdown(r.Context(), rng)
		if err != nil {
			return nil, err
		}
		return breakdownResponse{
			StartDate:  rng.Start,
			EndDate:    rng.End,
			Categories: toCategoryTotals(totals),
		}, nil
	})
}

func (s *Server) handleIncomeVsExpenses(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpQuery, err)
		return
	}
	s.writeCached(w, r, func() (any, error) {
		sum, err := s.deps.Analytics.IncomeVsExpenses(r.Context(), rng)
		if err != nil {
			return nil, err
		}
		return summaryResponse{
			StartDate:     rng.Start,
			EndDate:       rng.End,
			summaryFields: toSummaryFields(sum),
		}, nil
	})
}

func (s *Server) handleMonthlyComparison(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r.URL.Query(), "months", analytics.DefaultMonths)
	if err != nil {
		writeError(w, r, log.OpQuery, err)
		return
	}
	s.writeCached(w, r, func() (any, error) {
		data, err := s.deps.Analytics.MonthlyComparison(r.Context(), months)
		if err != nil {
			return nil, err
		}
		return comparisonResponse{Months: months, Data: toMonthResponses(data)}, nil
	})
}

func (s *Server) handleSavingsRate(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpQuery, err)
		return
	}
	s.writeCached(w, r, func() (any, error) {
		rate, err := s.deps.Analytics.SavingsRate(r.Context(), rng)
		if err != nil {
			return nil, err
		}
		return savingsRateResponse{
			StartDate:             rng.Start,
			EndDate:               rng.End,
			TotalIncome:           money(rate.TotalIncome),
			TotalExpenses:         money(rate.TotalExpenses),
			NetSavings:            money(rate.NetSavings),
			SavingsRatePercentage: rate.SavingsRatePercentage.InexactFloat64(),
		}, nil
	})
}
