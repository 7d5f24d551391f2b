// Package influx implements the time-series gateway on InfluxDB 2.x.
package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/timeseries"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

type Config struct {
	URL     string
	Token   string
	Org     string
	Bucket  string
	Timeout time.Duration
}

// Deletes span every timestamp InfluxDB can store.
var (
	deleteStart = time.Unix(0, 0).UTC()
	deleteStop  = time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC)
)

type Client struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	query  api.QueryAPI
	delete api.DeleteAPI
	org    string
	bucket string
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx url, org and bucket are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := influxdb2.DefaultOptions()
	if cfg.Timeout > 0 {
		opts.SetHTTPRequestTimeout(uint(cfg.Timeout / time.Second))
	}
	c := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	return &Client{
		client: c,
		write:  c.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		query:  c.QueryAPI(cfg.Org),
		delete: c.DeleteAPI(),
		org:    cfg.Org,
		bucket: cfg.Bucket,
		logger: logger.With("component", "influx"),
	}, nil
}

func (c *Client) WritePoint(ctx context.Context, p timeseries.Point) error {
	fields := make(map[string]interface{}, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	pt := influxdb2.NewPoint(p.Measurement, p.Tags, fields, p.Time)
	if err := c.write.WritePoint(ctx, pt); err != nil {
		return fmt.Errorf("write point: %w", err)
	}
	return nil
}

func (c *Client) Aggregate(ctx context.Context, q timeseries.Query) ([]timeseries.Row, error) {
	flux, err := buildQuery(c.bucket, q)
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "Running flux query", "query", flux)

	result, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer result.Close()

	var rows []timeseries.Row
	for result.Next() {
		rec := result.Record()
		row := timeseries.Row{Time: rec.Time().UTC(), Value: toFloat(rec.Value())}
		if q.GroupBy != "" {
			if v, ok := rec.ValueByKey(q.GroupBy).(string); ok {
				row.Key = v
			}
		}
		if q.Window == timeseries.WindowNone {
			row.Time = time.Time{}
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read query result: %w", err)
	}
	return rows, nil
}

func (c *Client) DeleteSeries(ctx context.Context, measurement string, tags map[string]string) error {
	predicate, err := deletePredicate(measurement, tags)
	if err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Deleting series", "predicate", predicate)
	if err := c.delete.DeleteWithName(ctx, c.org, c.bucket, deleteStart, deleteStop, predicate); err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping influx: %w", err)
	}
	if !ok {
		return errors.New("influx not ready")
	}
	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}

var _ timeseries.Store = (*Client)(nil)
