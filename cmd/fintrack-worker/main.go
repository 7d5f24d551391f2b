package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Failure(context.Background(), "Invalid backend configuration", err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	if backendCfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to run the worker", log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, backend.NewFactory(logger), backendCfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Failure(ctx, "Worker stopped with error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, factory backend.Factory, cfg backend.Config, logger *log.Logger) error {
	series, err := factory.CreateSeries(ctx, cfg)
	if err != nil {
		return err
	}
	defer series.Close()

	ledger, err := factory.CreateLedger(ctx, cfg)
	if err != nil {
		return err
	}

	queue, err := factory.CreateQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer queue.Close()

	w := worker.NewPointWorker(series, ledger, logger)
	logger.Info("Consuming transaction points", "queue", cfg.AMQPQueue)
	return queue.ConsumePoints(ctx, w.HandlePointMessage)
}
