package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Chain Data API Metrics
	chainAPICallsTotal   *prometheus.CounterVec
	chainAPICallDuration *prometheus.HistogramVec
	lookupDegradations   *prometheus.CounterVec

	// Payment Metrics
	paymentVerdictsTotal *prometheus.CounterVec

	// Image Generation Metrics
	imageAPICallsTotal   *prometheus.CounterVec
	imageAPICallDuration *prometheus.HistogramVec
	cardsGeneratedTotal  *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Chain Data API Metrics
		chainAPICallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_api_calls_total",
				Help: "Total number of chain data API calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		chainAPICallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chain_api_call_duration_seconds",
				Help:    "Duration of chain data API calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"operation"},
		),
		lookupDegradations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_lookup_degradations_total",
				Help: "Total number of wallet lookups that fell back to a default value",
			},
			[]string{"operation"},
		),

		// Payment Metrics
		paymentVerdictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_verdicts_total",
				Help: "Total number of payment verification verdicts by outcome",
			},
			[]string{"verdict"},
		),

		// Image Generation Metrics
		imageAPICallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_api_calls_total",
				Help: "Total number of image generation API calls by status",
			},
			[]string{"status"},
		),
		imageAPICallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "image_api_call_duration_seconds",
				Help:    "Duration of image generation API calls in seconds",
				Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"status"},
		),
		cardsGeneratedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cards_generated_total",
				Help: "Total number of card generation attempts by outcome",
			},
			[]string{"status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 30.0, 120.0},
			},
			[]string{"handler", "method"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by handler, method, and status",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// RecordChainAPICall records a chain data API call with its duration.
func (m *Metrics) RecordChainAPICall(operation, status string, duration float64) {
	m.chainAPICallsTotal.WithLabelValues(operation, status).Inc()
	m.chainAPICallDuration.WithLabelValues(operation).Observe(duration)
}

// RecordLookupDegradation records a wallet lookup that degraded to its default value.
func (m *Metrics) RecordLookupDegradation(operation string) {
	m.lookupDegradations.WithLabelValues(operation).Inc()
}

// RecordPaymentVerdict records the outcome of a payment verification.
// The verdict label is "valid" or the specific invalid reason.
func (m *Metrics) RecordPaymentVerdict(verdict string) {
	m.paymentVerdictsTotal.WithLabelValues(verdict).Inc()
}

// RecordImageAPICall records an image generation API call with its duration.
func (m *Metrics) RecordImageAPICall(status string, duration float64) {
	m.imageAPICallsTotal.WithLabelValues(status).Inc()
	m.imageAPICallDuration.WithLabelValues(status).Observe(duration)
}

// RecordCardGenerated records a card generation attempt outcome.
func (m *Metrics) RecordCardGenerated(status string) {
	m.cardsGeneratedTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToLabel(statusCode)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(duration)
}

// statusCodeToLabel converts an HTTP status code to a label bucket (2xx, 4xx, etc).
func statusCodeToLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
