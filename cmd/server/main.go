package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stacksmith/stackcard/service/config"
	"github.com/stacksmith/stackcard/service/imagegen"
	"github.com/stacksmith/stackcard/service/metrics"
	"github.com/stacksmith/stackcard/service/payment"
	"github.com/stacksmith/stackcard/service/server"
	"github.com/stacksmith/stackcard/service/stacks"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"network", cfg.Network,
	)

	// Prometheus collectors, injected into every component that records
	m := metrics.NewMetrics(nil)

	// Chain data client and wallet aggregator
	stacksClient := stacks.NewClient(
		cfg.StacksAPIURL,
		&http.Client{Timeout: cfg.LookupTimeout + 5*time.Second},
		cfg.LookupTimeout,
		m,
		logger,
	)
	aggregator := stacks.NewAggregator(stacksClient, m, logger)
	logger.Info("initialized chain data client", "url", cfg.StacksAPIURL)

	// Payment verifier, bound to the configured contract
	verifier := payment.NewVerifier(stacksClient, &cfg.Payment, m, logger)
	logger.Info("initialized payment verifier",
		"contract", cfg.Payment.ContractID,
		"function", cfg.Payment.FunctionName,
		"price_microstx", cfg.Payment.PriceMicroSTX,
	)

	// Image generation client
	generator := imagegen.NewClient(cfg.Image, m, logger)

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, cfg, aggregator, verifier, generator, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
