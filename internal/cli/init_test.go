package cli

import (
	"context"
	"log/slog"
	"testing"

	"fintrack/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	logger := SetupLogger(log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Errorf("Component() = %q, want %q", logger.Component(), log.ComponentWorker)
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(log.Discard())
	cancel()
	<-ctx.Done()
	if ctx.Err() == nil {
		t.Error("context should be cancelled")
	}
}
