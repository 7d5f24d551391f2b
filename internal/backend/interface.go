// Package backend builds the store, queue and ledger adapters selected by
// configuration.
package backend

import (
	"context"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
	"fintrack/internal/timeseries"
)

// Backend is the set of adapters the API server runs on.
type Backend struct {
	Documents storage.Store
	Series    timeseries.Store
	Points    services.PointPublisher
	// Queue is set when points go through AMQP.
	Queue *amqp.Client
}

// CleanupFunc releases the resources behind a backend.
type CleanupFunc func() error

type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates adapters from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateDocuments(ctx context.Context, config Config) (storage.Store, error)
	CreateSeries(ctx context.Context, config Config) (timeseries.Store, error)
	CreateQueue(ctx context.Context, config Config) (*amqp.Client, error)
	// CreateLedger returns nil when no spreadsheet is configured.
	CreateLedger(ctx context.Context, config Config) (sheets.LedgerWriter, error)
}

type Config struct {
	Documents    DocumentType
	SQLiteDBPath string

	Series         SeriesType
	InfluxURL      string
	InfluxToken    string
	InfluxOrg      string
	InfluxBucket   string
	InfluxTimeout  time.Duration
	PublishTimeout time.Duration

	Sink         SinkType
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleLedgerSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

type (
	DocumentType string
	SeriesType   string
	SinkType     string
)

const (
	SQLiteDocuments DocumentType = "sqlite"
	MemoryDocuments DocumentType = "memory"

	MemorySeries SeriesType = "memory"
	InfluxSeries SeriesType = "influx"

	DirectSink SinkType = "direct"
	AMQPSink   SinkType = "amqp"
)

func (t DocumentType) String() string { return string(t) }

func (t DocumentType) IsValid() bool {
	switch t {
	case SQLiteDocuments, MemoryDocuments:
		return true
	}
	return false
}

func (t SeriesType) String() string { return string(t) }

func (t SeriesType) IsValid() bool {
	switch t {
	case MemorySeries, InfluxSeries:
		return true
	}
	return false
}

func (t SinkType) String() string { return string(t) }

func (t SinkType) IsValid() bool {
	switch t {
	case DirectSink, AMQPSink:
		return true
	}
	return false
}
