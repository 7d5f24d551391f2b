package backend

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Documents: MemoryDocuments, Series: MemorySeries, Sink: DirectSink}, ""},
		{"bad documents", Config{Documents: "mongo", Series: MemorySeries, Sink: DirectSink}, "invalid document backend"},
		{"sqlite without path", Config{Documents: SQLiteDocuments, Series: MemorySeries, Sink: DirectSink}, "SQLite database path"},
		{"influx without bucket", Config{Documents: MemoryDocuments, Series: InfluxSeries, Sink: DirectSink, InfluxURL: "http://x", InfluxOrg: "o"}, "InfluxDB url, org and bucket"},
		{"amqp with memory series", Config{Documents: MemoryDocuments, Series: MemorySeries, Sink: AMQPSink, AMQPURL: "amqp://x"}, "requires the influx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:       "memory",
		TimeSeriesBackend: "memory",
		PointSink:         "direct",
		GoogleLedgerSheet: "Ledger",
	})
	require.NoError(t, err)
	assert.Equal(t, MemoryDocuments, cfg.Documents)
	assert.Equal(t, "Ledger", cfg.GoogleLedgerSheet)
}

func TestCreateBackend_Memory(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{Documents: MemoryDocuments, Series: MemorySeries, Sink: DirectSink})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.NotNil(t, res.Backend.Documents)
	assert.NotNil(t, res.Backend.Series)
	assert.Nil(t, res.Backend.Queue)
	assert.IsType(t, &services.TimedPublisher{}, res.Backend.Points)
	assert.NoError(t, res.Backend.Documents.Ping(context.Background()))
}

func TestCreateBackend_SQLite(t *testing.T) {
	f := NewFactory(nil)
	path := filepath.Join(t.TempDir(), "fintrack.db")
	res, err := f.CreateBackend(context.Background(), Config{Documents: SQLiteDocuments, SQLiteDBPath: path, Series: MemorySeries, Sink: DirectSink})
	require.NoError(t, err)

	assert.NoError(t, res.Backend.Documents.Ping(context.Background()))
	assert.NoError(t, res.Cleanup())
}

func TestCreateLedger_Disabled(t *testing.T) {
	ledger, err := NewFactory(nil).CreateLedger(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, ledger)
}
