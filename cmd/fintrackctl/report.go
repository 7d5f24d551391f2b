package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/core"

	"github.com/spf13/cobra"
)

func reportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print income, expenses and spending by category",
		Long: `Summarize a date range from the time-series store.

Without flags the report covers the last 30 days.

Examples:
  fintrackctl report
  fintrackctl report --from 2025-01-01 --to 2025-01-31
  fintrackctl report --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd)
		},
	}

	cmd.Flags().String("from", "", "range start (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "range end (YYYY-MM-DD)")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}

func (a *app) report(cmd *cobra.Command) error {
	ctx := cmd.Context()

	r, err := reportRange(cmd, time.Now())
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	series, err := backend.NewFactory(a.logger).CreateSeries(ctx, bcfg)
	if err != nil {
		return err
	}
	defer series.Close()

	return runReport(ctx, cmd.OutOrStdout(), analytics.NewService(series), r, asJSON)
}

func reportRange(cmd *cobra.Command, now time.Time) (core.DateRange, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	end := now
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("invalid --to %q: %w", to, err)
		}
		end = t.Add(24*time.Hour - time.Nanosecond)
	}
	start := end.AddDate(0, 0, -30)
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("invalid --from %q: %w", from, err)
		}
		start = t
	}
	return core.NewDateRange(start, end)
}

type (
	reportCategory struct {
		Category string  `json:"category"`
		Total    float64 `json:"total_amount"`
	}

	reportOutput struct {
		StartDate     time.Time        `json:"start_date"`
		EndDate       time.Time        `json:"end_date"`
		TotalIncome   float64          `json:"total_income"`
		TotalExpenses float64          `json:"total_expenses"`
		NetSavings    float64          `json:"net_savings"`
		SavingsRate   float64          `json:"savings_rate"`
		Categories    []reportCategory `json:"categories"`
	}
)

func runReport(ctx context.Context, out io.Writer, svc *analytics.Service, r core.DateRange, asJSON bool) error {
	summary, err := svc.IncomeVsExpenses(ctx, r)
	if err != nil {
		return err
	}
	cats, err := svc.CategoryBreakdown(ctx, r)
	if err != nil {
		return err
	}

	rep := reportOutput{
		StartDate:     r.Start,
		EndDate:       r.End,
		TotalIncome:   summary.TotalIncome.InexactFloat64(),
		TotalExpenses: summary.TotalExpenses.InexactFloat64(),
		NetSavings:    summary.NetSavings.InexactFloat64(),
		SavingsRate:   summary.SavingsRate.InexactFloat64(),
		Categories:    make([]reportCategory, 0, len(cats)),
	}
	for _, c := range cats {
		rep.Categories = append(rep.Categories, reportCategory{
			Category: string(c.Category),
			Total:    c.TotalAmount.InexactFloat64(),
		})
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(out, "Report %s to %s\n\n", r.Start.Format(dateLayout), r.End.Format(dateLayout))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Income\t%s\n", summary.TotalIncome.StringFixed(2))
	fmt.Fprintf(w, "Expenses\t%s\n", summary.TotalExpenses.StringFixed(2))
	fmt.Fprintf(w, "Net savings\t%s\n", summary.NetSavings.StringFixed(2))
	fmt.Fprintf(w, "Savings rate\t%s%%\n", summary.SavingsRate.StringFixed(2))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(cats) == 0 {
		_, err = fmt.Fprintln(out, "\nNo expenses in range.")
		return err
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTOTAL")
	for _, c := range cats {
		fmt.Fprintf(w, "%s\t%s\n", c.Category, c.TotalAmount.StringFixed(2))
	}
	return w.Flush()
}
