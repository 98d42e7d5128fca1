package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stacksmith/stackcard/service/config"
	"github.com/stacksmith/stackcard/service/metrics"
	"github.com/stacksmith/stackcard/service/payment"
	"github.com/stacksmith/stackcard/service/stacks"
)

// walletAggregator builds the canonical wallet record for an address.
type walletAggregator interface {
	Aggregate(ctx context.Context, address string) stacks.WalletRecord
}

// paymentVerifier classifies a payment claim.
type paymentVerifier interface {
	Verify(ctx context.Context, claim string) payment.Verdict
}

// cardGenerator renders a prompt into artifact bytes.
type cardGenerator interface {
	Generate(ctx context.Context, promptText string) ([]byte, error)
}

// Server represents the HTTP server for the card service.
// All request state is scoped to a single inbound call; the server holds no
// mutable state shared across requests.
type Server struct {
	addr       string
	cfg        *config.Config
	aggregator walletAggregator
	verifier   paymentVerifier
	generator  cardGenerator
	metrics    *metrics.Metrics
	logger     *slog.Logger
	server     *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The configuration record is immutable and injected here; handlers never
// read ambient state. The metrics is optional - if nil, the metrics endpoint
// won't be available.
func New(addr string, cfg *config.Config, aggregator walletAggregator, verifier paymentVerifier, generator cardGenerator, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:       addr,
		cfg:        cfg,
		aggregator: aggregator,
		verifier:   verifier,
		generator:  generator,
		metrics:    m,
		logger:     logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Wallet data routes
	mux.Handle("GET /data/{address}", s.instrument("/data",
		handleGetData(s.aggregator, s.logger)))
	mux.Handle("GET /prompt/{address}", s.instrument("/prompt",
		handleGetPrompt(s.aggregator, s.logger)))

	// Paid card route
	mux.Handle("GET /card/{address}", s.instrument("/card",
		handleGetCard(s.cfg, s.aggregator, s.verifier, s.generator, s.metrics, s.logger)))

	// Informational routes
	mux.Handle("GET /{$}", handleServiceBanner(s.cfg))
	mux.Handle("GET /openapi.json", handleOpenAPI(s.cfg))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Card generation holds the response open for the image API call.
		WriteTimeout: s.cfg.Image.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// instrument wraps a handler with per-route metrics when configured.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	if s.metrics == nil {
		return h
	}
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+paymentProofHeader)
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
