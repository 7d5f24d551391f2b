package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/google"
	"fintrack/internal/storage"
	storemem "fintrack/internal/storage/memory"
	"fintrack/internal/timeseries"
	"fintrack/internal/timeseries/influx"
	tsmem "fintrack/internal/timeseries/memory"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the document store, the time-series store and the
// point sink. On failure everything opened so far is closed.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	docs, err := f.CreateDocuments(ctx, config)
	if err != nil {
		return nil, err
	}
	closers = append(closers, docs.Close)

	series, err := f.CreateSeries(ctx, config)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	closers = append(closers, series.Close)

	b := &Backend{Documents: docs, Series: series}
	switch config.Sink {
	case AMQPSink:
		queue, err := f.CreateQueue(ctx, config)
		if err != nil {
			_ = cleanup()
			return nil, err
		}
		closers = append(closers, queue.Close)
		b.Queue = queue
		b.Points = services.NewTimedPublisher(queue, config.PublishTimeout)
	default:
		b.Points = services.NewTimedPublisher(services.NewDirectPublisher(series), config.PublishTimeout)
	}

	f.logger.InfoContext(ctx, "Backend initialized", config.Summary()...)
	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) CreateDocuments(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Documents {
	case SQLiteDocuments:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite document store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryDocuments:
		f.logger.InfoContext(ctx, "Initialized memory document store")
		return storemem.New(), nil
	}
	return nil, fmt.Errorf("unsupported document backend: %s", config.Documents)
}

func (f *DefaultFactory) CreateSeries(ctx context.Context, config Config) (timeseries.Store, error) {
	switch config.Series {
	case InfluxSeries:
		client, err := influx.New(influx.Config{
			URL:     config.InfluxURL,
			Token:   config.InfluxToken,
			Org:     config.InfluxOrg,
			Bucket:  config.InfluxBucket,
			Timeout: config.InfluxTimeout,
		}, f.logger.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize InfluxDB client: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			f.logger.WarnContext(ctx, "InfluxDB not reachable yet", log.FieldError, err)
		}
		f.logger.InfoContext(ctx, "Initialized InfluxDB time-series store",
			"url", config.InfluxURL,
			"bucket", config.InfluxBucket)
		return client, nil
	case MemorySeries:
		f.logger.InfoContext(ctx, "Initialized memory time-series store")
		return tsmem.New(), nil
	}
	return nil, fmt.Errorf("unsupported time-series backend: %s", config.Series)
}

func (f *DefaultFactory) CreateQueue(ctx context.Context, config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		return nil, errors.New("AMQP URL is required")
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue,
		f.logger.WithComponent(log.ComponentAMQP).Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}

func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (sheets.LedgerWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.InfoContext(ctx, "Google Sheets ledger disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	client, err := google.NewClient(ctx, google.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		Sheet:              config.GoogleLedgerSheet,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}, f.logger.WithComponent(log.ComponentSheets).Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
	}
	return client, nil
}
