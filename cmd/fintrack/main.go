package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"slices"

	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.IsProduction() && slices.Contains(cfg.CORSAllowedOrigins, "*") {
		logger.Warn("CORS allows every origin in production", "cors_allowed_origins", cfg.CORSAllowedOrigins)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Failure(ctx, "Invalid backend configuration", err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Failure(ctx, "Failed to initialize backend", err, log.FieldOperation, log.OpStartup)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Failure(context.Background(), "Backend cleanup failed", err, log.FieldOperation, log.OpShutdown)
		}
	}()
	b := result.Backend

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		Version:            version,
		Environment:        cfg.AppEnv,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPM:       cfg.RateLimitRPM,
		AnalyticsCacheTTL:  cfg.AnalyticsCacheTTL,
		TrustedProxies:     cfg.TrustedProxies,
	}, apphttp.Dependencies{
		Transactions: services.NewTransactionService(b.Documents, b.Points, logger),
		Budgets:      services.NewBudgetService(b.Documents, b.Documents, logger),
		Analytics:    analytics.NewService(b.Series),
		Documents:    b.Documents,
		Series:       b.Series,
	}, logger)
	if err != nil {
		logger.Failure(ctx, "Failed to configure HTTP server", err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server", "port", cfg.Port, "version", version, "environment", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Failure(ctx, "Server error", err, "port", cfg.Port)
			cancel()
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Failure(shutdownCtx, "Server shutdown error", err, log.FieldOperation, log.OpShutdown)
	}
	logger.Info("Server stopped gracefully")
}
