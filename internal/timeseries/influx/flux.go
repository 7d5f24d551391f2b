package influx

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"fintrack/internal/timeseries"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fluxString quotes s as a Flux string literal. Interpolation markers are
// escaped so values can never reach the query as code.
func fluxString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

func fluxTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// every returns the duration literal and window offset for w. Flux aligns
// windows to the Unix epoch (a Thursday), so weeks are shifted by four days
// to start on Monday.
func every(w timeseries.Window) (string, string, error) {
	switch w {
	case timeseries.WindowHour:
		return "1h", "", nil
	case timeseries.WindowDay:
		return "1d", "", nil
	case timeseries.WindowWeek:
		return "1w", "4d", nil
	case timeseries.WindowMonth:
		return "1mo", "", nil
	}
	return "", "", fmt.Errorf("unsupported window %d", int(w))
}

// buildQuery renders q as a Flux script against bucket. All series are
// regrouped before summing because transaction_id makes every point its own
// series.
func buildQuery(bucket string, q timeseries.Query) (string, error) {
	if bucket == "" {
		return "", errors.New("bucket is required")
	}
	if q.Measurement == "" || q.Field == "" {
		return "", errors.New("measurement and field are required")
	}
	if !q.Start.Before(q.Stop) {
		return "", fmt.Errorf("empty range %s..%s", fluxTime(q.Start), fluxTime(q.Stop))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n", fluxTime(q.Start), fluxTime(q.Stop))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r[\"_measurement\"] == %s)\n", fluxString(q.Measurement))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r[\"_field\"] == %s)\n", fluxString(q.Field))

	keys := make([]string, 0, len(q.Tags))
	for k := range q.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !identRe.MatchString(k) {
			return "", fmt.Errorf("invalid tag key %q", k)
		}
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r[%s] == %s)\n", fluxString(k), fluxString(q.Tags[k]))
	}

	switch {
	case q.GroupBy != "":
		if !identRe.MatchString(q.GroupBy) {
			return "", fmt.Errorf("invalid group key %q", q.GroupBy)
		}
		fmt.Fprintf(&b, "  |> group(columns: [%s])\n", fluxString(q.GroupBy))
	default:
		b.WriteString("  |> group()\n")
	}

	if q.Window != timeseries.WindowNone {
		ev, offset, err := every(q.Window)
		if err != nil {
			return "", err
		}
		if offset != "" {
			fmt.Fprintf(&b, "  |> aggregateWindow(every: %s, offset: %s, fn: sum, createEmpty: false, timeSrc: \"_start\")\n", ev, offset)
		} else {
			fmt.Fprintf(&b, "  |> aggregateWindow(every: %s, fn: sum, createEmpty: false, timeSrc: \"_start\")\n", ev)
		}
	} else {
		b.WriteString("  |> sum()\n")
	}
	return b.String(), nil
}

// deletePredicate renders the delete API predicate selecting measurement and
// tags. The predicate grammar has no escapes, so quotes and backslashes in
// values are rejected.
func deletePredicate(measurement string, tags map[string]string) (string, error) {
	if measurement == "" {
		return "", errors.New("measurement is required")
	}
	quote := func(v string) (string, error) {
		if strings.ContainsAny(v, "\"\\\n") {
			return "", fmt.Errorf("unsupported character in predicate value %q", v)
		}
		return `"` + v + `"`, nil
	}

	m, err := quote(measurement)
	if err != nil {
		return "", err
	}
	parts := []string{"_measurement=" + m}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !identRe.MatchString(k) {
			return "", fmt.Errorf("invalid tag key %q", k)
		}
		v, err := quote(tags[k])
		if err != nil {
			return "", err
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " AND "), nil
}
