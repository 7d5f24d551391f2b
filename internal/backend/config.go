package backend

import (
	"errors"
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{
		Documents:    DocumentType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,

		Series:        SeriesType(appConfig.TimeSeriesBackend),
		InfluxURL:     appConfig.InfluxURL,
		InfluxToken:   appConfig.InfluxToken,
		InfluxOrg:     appConfig.InfluxOrg,
		InfluxBucket:  appConfig.InfluxBucket,
		InfluxTimeout: appConfig.InfluxTimeout,

		Sink:         SinkType(appConfig.PointSink),
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleLedgerSheet:        appConfig.GoogleLedgerSheet,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Documents.IsValid() {
		return fmt.Errorf("invalid document backend: %s", c.Documents)
	}
	if !c.Series.IsValid() {
		return fmt.Errorf("invalid time-series backend: %s", c.Series)
	}
	if !c.Sink.IsValid() {
		return fmt.Errorf("invalid point sink: %s", c.Sink)
	}

	if c.Documents == SQLiteDocuments && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite backend")
	}
	if c.Series == InfluxSeries && (c.InfluxURL == "" || c.InfluxOrg == "" || c.InfluxBucket == "") {
		return errors.New("InfluxDB url, org and bucket are required for influx backend")
	}
	if c.Sink == AMQPSink {
		if c.AMQPURL == "" {
			return errors.New("AMQP URL is required for amqp sink")
		}
		// The worker runs in another process and cannot see an in-memory store.
		if c.Series != InfluxSeries {
			return errors.New("amqp sink requires the influx time-series backend")
		}
	}
	return nil
}

// Summary lists the selected adapters for startup logs.
func (c Config) Summary() []any {
	return []any{
		"documents", c.Documents.String(),
		"timeseries", c.Series.String(),
		"point_sink", c.Sink.String(),
		"ledger", c.GoogleSpreadsheetID != "",
	}
}
