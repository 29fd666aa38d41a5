package observability

import (
	"context"
	"time"
)

// Recorder receives handshake, token store and HTTP measurements. Metrics (Prometheus)
// and OTelMetrics both implement it; MultiRecorder fans out to several.
type Recorder interface {
	RecordHandshake(ctx context.Context, client, outcome string, duration time.Duration)
	RecordTokenIssued(ctx context.Context, client string)
	RecordStoreOperation(ctx context.Context, backend, operation string, duration time.Duration, err error)
	RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// NopRecorder discards all measurements
type NopRecorder struct{}

func (NopRecorder) RecordHandshake(context.Context, string, string, time.Duration)              {}
func (NopRecorder) RecordTokenIssued(context.Context, string)                                   {}
func (NopRecorder) RecordStoreOperation(context.Context, string, string, time.Duration, error) {}
func (NopRecorder) RecordHTTPRequest(context.Context, string, string, int, time.Duration)       {}

// MultiRecorder forwards every measurement to each recorder in order
type MultiRecorder []Recorder

// NewMultiRecorder drops nil entries and returns a recorder over the rest
func NewMultiRecorder(recorders ...Recorder) Recorder {
	m := make(MultiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	switch len(m) {
	case 0:
		return NopRecorder{}
	case 1:
		return m[0]
	}
	return m
}

func (m MultiRecorder) RecordHandshake(ctx context.Context, client, outcome string, duration time.Duration) {
	for _, r := range m {
		r.RecordHandshake(ctx, client, outcome, duration)
	}
}

func (m MultiRecorder) RecordTokenIssued(ctx context.Context, client string) {
	for _, r := range m {
		r.RecordTokenIssued(ctx, client)
	}
}

func (m MultiRecorder) RecordStoreOperation(ctx context.Context, backend, operation string, duration time.Duration, err error) {
	for _, r := range m {
		r.RecordStoreOperation(ctx, backend, operation, duration, err)
	}
}

func (m MultiRecorder) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	for _, r := range m {
		r.RecordHTTPRequest(ctx, method, route, status, duration)
	}
}
