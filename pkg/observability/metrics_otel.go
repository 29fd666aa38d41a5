package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/platinummonkey/handoff"

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Handshake metrics
	handshakesTotal   metric.Int64Counter
	handshakeDuration metric.Float64Histogram
	tokensIssued      metric.Int64Counter

	// Token store metrics
	storeOperations metric.Int64Counter
	storeDuration   metric.Float64Histogram
}

var _ Recorder = (*OTelMetrics)(nil)

// NewOTelMetrics creates instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWithMeter(otel.Meter(meterName))
}

// NewOTelMetricsWithMeter creates instruments on meter
func NewOTelMetricsWithMeter(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration histogram: %w", err)
	}

	m.handshakesTotal, err = meter.Int64Counter(
		"sso.handshakes",
		metric.WithDescription("Total number of SSO handshake steps by outcome"),
		metric.WithUnit("{handshake}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sso_handshakes counter: %w", err)
	}

	m.handshakeDuration, err = meter.Float64Histogram(
		"sso.handshake.duration",
		metric.WithDescription("Time spent redeeming a handoff token"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sso_handshake_duration histogram: %w", err)
	}

	m.tokensIssued, err = meter.Int64Counter(
		"sso.tokens.issued",
		metric.WithDescription("Total number of handoff tokens issued"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sso_tokens_issued counter: %w", err)
	}

	m.storeOperations, err = meter.Int64Counter(
		"token_store.operations",
		metric.WithDescription("Total number of token store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_store_operations counter: %w", err)
	}

	m.storeDuration, err = meter.Float64Histogram(
		"token_store.operation.duration",
		metric.WithDescription("Token store operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_store_duration histogram: %w", err)
	}

	return m, nil
}

// RecordHandshake records a handshake step
func (m *OTelMetrics) RecordHandshake(ctx context.Context, client, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("sso.client", client),
		attribute.String("sso.outcome", outcome),
	)
	m.handshakesTotal.Add(ctx, 1, attrs)
	if duration > 0 {
		m.handshakeDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordTokenIssued records a minted token
func (m *OTelMetrics) RecordTokenIssued(ctx context.Context, client string) {
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("sso.client", client)))
}

// RecordStoreOperation records a token store operation
func (m *OTelMetrics) RecordStoreOperation(ctx context.Context, backend, operation string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("token_store.backend", backend),
		attribute.String("token_store.operation", operation),
		attribute.Bool("error", err != nil),
	)
	m.storeOperations.Add(ctx, 1, attrs)
	m.storeDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordHTTPRequest records an HTTP request metric
func (m *OTelMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}
