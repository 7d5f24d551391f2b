package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const (
	maxBodyBytes     = 1 << 20
	dateOnlyLayout   = "2006-01-02"
	defaultRangeDays = 30
)

// ParseDate accepts RFC 3339 or YYYY-MM-DD. Date-only values are midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use RFC 3339 or YYYY-MM-DD", s)
}

func queryDate(q url.Values, key string) (*time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	t, err := ParseDate(v)
	if err != nil {
		return nil, core.NewValidationError(key, err.Error())
	}
	return &t, nil
}

// ParseDateRange reads start_date and end_date. end defaults to now and
// start to thirty days before end.
func ParseDateRange(q url.Values, now time.Time) (core.DateRange, error) {
	end, err := queryDate(q, "end_date")
	if err != nil {
		return core.DateRange{}, err
	}
	start, err := queryDate(q, "start_date")
	if err != nil {
		return core.DateRange{}, err
	}

	e := now.UTC()
	if end != nil {
		e = *end
	}
	s := e.AddDate(0, 0, -defaultRangeDays)
	if start != nil {
		s = *start
	}
	return core.NewDateRange(s, e)
}

func queryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(key, "must be an integer")
	}
	return n, nil
}

func queryBool(q url.Values, key string, def bool) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.NewValidationError(key, "must be true or false")
	}
	return b, nil
}

// ParsePage reads skip and limit, defaulting limit to 100.
func ParsePage(q url.Values) (core.Page, error) {
	skip, err := queryInt(q, "skip", 0)
	if err != nil {
		return core.Page{}, err
	}
	limit, err := queryInt(q, "limit", core.DefaultPageLimit)
	if err != nil {
		return core.Page{}, err
	}
	p := core.Page{Skip: skip, Limit: limit}
	return p, p.Validate()
}

// ParseTransactionFilter reads the list filters. Repeated tags parameters
// and comma lists are both accepted.
func ParseTransactionFilter(q url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	page, err := ParsePage(q)
	if err != nil {
		return f, err
	}
	f.Page = page

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		c, err := core.ParseCategory(v)
		if err != nil {
			return f, err
		}
		f.Category = c
	}
	if f.From, err = queryDate(q, "start_date"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(q, "end_date"); err != nil {
		return f, err
	}
	for _, v := range q["tags"] {
		f.Tags = append(f.Tags, strings.Split(v, ",")...)
	}
	return f, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.NewValidationError("body", "request body is empty")
		}
		return core.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if dec.More() {
		return core.NewValidationError("body", "unexpected data after JSON object")
	}
	return nil
}

func parseAmountField(field string, n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsPositive() {
		return decimal.Zero, core.NewValidationError(field, "must be a number greater than zero")
	}
	return core.RoundMoney(d), nil
}

func parseDateField(field, s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, core.NewValidationError(field, err.Error())
	}
	return t, nil
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	var tx core.Transaction
	if req.Amount == "" {
		return tx, core.NewValidationError("amount", "is required")
	}
	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		return tx, err
	}
	t, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return tx, err
	}
	c, err := core.ParseCategory(req.Category)
	if err != nil {
		return tx, err
	}
	tx = core.Transaction{
		Amount:      amount,
		Type:        t,
		Category:    c,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if strings.TrimSpace(req.Date) != "" {
		if tx.Date, err = parseDateField("date", req.Date); err != nil {
			return tx, err
		}
	}
	return tx, nil
}

func (req transactionUpdateRequest) toPatch() (core.TransactionPatch, error) {
	var p core.TransactionPatch
	if req.Amount != nil {
		d, err := parseAmountField("amount", *req.Amount)
		if err != nil {
			return p, err
		}
		p.Amount = &d
	}
	if req.Type != nil {
		t, err := core.ParseTransactionType(*req.Type)
		if err != nil {
			return p, err
		}
		p.Type = &t
	}
	if req.Category != nil {
		c, err := core.ParseCategory(*req.Category)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}
	p.Description = req.Description
	if req.Date != nil {
		d, err := parseDateField("date", *req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	p.Tags = req.Tags
	return p, nil
}

func (req budgetRequest) toBudget() (core.Budget, error) {
	var b core.Budget
	c, err := core.ParseCategory(req.Category)
	if err != nil {
		return b, err
	}
	if req.LimitAmount == "" {
		return b, core.NewValidationError("limit_amount", "is required")
	}
	limit, err := parseAmountField("limit_amount", req.LimitAmount)
	if err != nil {
		return b, err
	}
	b = core.Budget{Category: c, LimitAmount: limit}
	if strings.TrimSpace(req.Period) != "" {
		if b.Period, err = core.ParseBudgetPeriod(req.Period); err != nil {
			return b, err
		}
	}
	if b.StartDate, err = parseDateField("start_date", req.StartDate); err != nil {
		return b, err
	}
	if b.EndDate, err = parseDateField("end_date", req.EndDate); err != nil {
		return b, err
	}
	if req.AlertThreshold != nil {
		if *req.AlertThreshold <= 0 || *req.AlertThreshold > 1 {
			return b, core.NewValidationError("alert_threshold", "must be in (0, 1]")
		}
		b.AlertThreshold = *req.AlertThreshold
	}
	return b, nil
}

func (req budgetUpdateRequest) toPatch() (core.BudgetPatch, error) {
	var p core.BudgetPatch
	if req.Category != nil {
		c, err := core.ParseCategory(*req.Category)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}
	if req.LimitAmount != nil {
		d, err := parseAmountField("limit_amount", *req.LimitAmount)
		if err != nil {
			return p, err
		}
		p.LimitAmount = &d
	}
	if req.Period != nil {
		period, err := core.ParseBudgetPeriod(*req.Period)
		if err != nil {
			return p, err
		}
		p.Period = &period
	}
	if req.StartDate != nil {
		d, err := parseDateField("start_date", *req.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := parseDateField("end_date", *req.EndDate)
		if err != nil {
			return p, err
		}
		p.EndDate = &d
	}
	if req.AlertThreshold != nil {
		if *req.AlertThreshold <= 0 || *req.AlertThreshold > 1 {
			return p, core.NewValidationError("alert_threshold", "must be in (0, 1]")
		}
		p.AlertThreshold = req.AlertThreshold
	}
	return p, nil
}
