package tokenstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/platinummonkey/handoff/pkg/observability"
	"github.com/platinummonkey/handoff/pkg/sso"
)

type storeOp struct {
	backend   string
	operation string
	failed    bool
}

type spyRecorder struct {
	observability.NopRecorder
	mu  sync.Mutex
	ops []storeOp
}

func (r *spyRecorder) RecordStoreOperation(_ context.Context, backend, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, storeOp{backend: backend, operation: operation, failed: err != nil})
}

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, string, *sso.SSOToken, time.Duration) error { return f.err }
func (f failingStore) Get(context.Context, string) (*sso.SSOToken, error)             { return nil, f.err }
func (f failingStore) GetDel(context.Context, string) (*sso.SSOToken, error)          { return nil, f.err }

func newTracerProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)), recorder
}

func TestInstrumented_RecordsOperations(t *testing.T) {
	spy := &spyRecorder{}
	tp, spans := newTracerProvider()
	store := Instrument(NewMemoryStore(10, time.Hour), BackendMemory, spy, WithTracerProvider(tp))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sso_token.A", &sso.SSOToken{Token: "A", UID: "alice"}, time.Minute))
	got, err := store.Get(ctx, "sso_token.A")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UID)
	got, err = store.GetDel(ctx, "sso_token.missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, []storeOp{
		{backend: BackendMemory, operation: "put"},
		{backend: BackendMemory, operation: "get"},
		{backend: BackendMemory, operation: "getdel"},
	}, spy.ops)

	ended := spans.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "tokenstore.put", ended[0].Name())
	assert.Equal(t, "tokenstore.get", ended[1].Name())
	assert.Contains(t, ended[1].Attributes(), attribute.Bool("token_store.hit", true))
	assert.Contains(t, ended[2].Attributes(), attribute.Bool("token_store.hit", false))
	for _, span := range ended {
		assert.Contains(t, span.Attributes(), attribute.String("token_store.backend", BackendMemory))
		for _, attr := range span.Attributes() {
			assert.NotContains(t, attr.Value.Emit(), "sso_token.")
		}
	}
}

func TestInstrumented_RecordsErrors(t *testing.T) {
	spy := &spyRecorder{}
	tp, spans := newTracerProvider()
	store := Instrument(failingStore{err: errors.New("connection reset")}, BackendRedis, spy, WithTracerProvider(tp))

	_, err := store.Get(context.Background(), "sso_token.A")
	require.Error(t, err)

	require.Len(t, spy.ops, 1)
	assert.True(t, spy.ops[0].failed)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Events(), 1)
}

func TestInstrumented_PrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	store := Instrument(failingStore{err: errors.New("down")}, BackendPostgres, metrics)

	_, _ = store.Get(context.Background(), "k")
	_, _ = store.Get(context.Background(), "k")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StoreErrorsTotal.WithLabelValues("get", BackendPostgres)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StoreOperationsTotal.WithLabelValues("get", BackendPostgres, "error")))
}

func TestInstrumented_NilRecorder(t *testing.T) {
	store := Instrument(NewMemoryStore(1, time.Minute), BackendMemory, nil)
	assert.NoError(t, store.Put(context.Background(), "k", &sso.SSOToken{Token: "T", UID: "u"}, time.Second))
}
