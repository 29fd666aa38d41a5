package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Handshake metrics
	HandshakesTotal   *prometheus.CounterVec
	HandshakeDuration *prometheus.HistogramVec
	TokensIssuedTotal *prometheus.CounterVec

	// Token store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	StoreErrorsTotal       *prometheus.CounterVec
	StoreSweptTotal        *prometheus.CounterVec
}

var _ Recorder = (*Metrics)(nil)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "handoff_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		HandshakesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_sso_handshakes_total",
				Help: "Total number of SSO handshake steps by outcome",
			},
			[]string{"client", "outcome"},
		),
		HandshakeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "handoff_sso_handshake_duration_seconds",
				Help:    "Time spent redeeming a handoff token",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"client"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_sso_tokens_issued_total",
				Help: "Total number of handoff tokens issued",
			},
			[]string{"client"},
		),

		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_token_store_operations_total",
				Help: "Total number of token store operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "handoff_token_store_operation_duration_seconds",
				Help:    "Token store operation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "backend"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_token_store_errors_total",
				Help: "Total number of token store errors",
			},
			[]string{"operation", "backend"},
		),
		StoreSweptTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_token_store_swept_total",
				Help: "Total number of expired tokens removed by the sweeper",
			},
			[]string{"backend"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HandshakesTotal,
		m.HandshakeDuration,
		m.TokensIssuedTotal,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.StoreErrorsTotal,
		m.StoreSweptTotal,
	)

	return m
}

// RecordHandshake counts a handshake step. Only redemptions carry a duration.
func (m *Metrics) RecordHandshake(_ context.Context, client, outcome string, duration time.Duration) {
	m.HandshakesTotal.WithLabelValues(client, outcome).Inc()
	if duration > 0 {
		m.HandshakeDuration.WithLabelValues(client).Observe(duration.Seconds())
	}
}

func (m *Metrics) RecordTokenIssued(_ context.Context, client string) {
	m.TokensIssuedTotal.WithLabelValues(client).Inc()
}

func (m *Metrics) RecordStoreOperation(_ context.Context, backend, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.StoreErrorsTotal.WithLabelValues(operation, backend).Inc()
	}
	m.StoreOperationsTotal.WithLabelValues(operation, backend, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func (m *Metrics) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSwept counts tokens removed by a sweep
func (m *Metrics) RecordSwept(backend string, n int64) {
	if n > 0 {
		m.StoreSweptTotal.WithLabelValues(backend).Add(float64(n))
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
