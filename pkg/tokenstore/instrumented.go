package tokenstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/handoff/pkg/observability"
	"github.com/platinummonkey/handoff/pkg/sso"
)

const tracerName = "github.com/platinummonkey/handoff/pkg/tokenstore"

// Instrumented wraps a TokenStore with metrics and spans. Keys are never recorded
// because they embed the token.
type Instrumented struct {
	next     sso.TokenStore
	backend  string
	recorder observability.Recorder
	tracer   trace.Tracer
}

var _ sso.TokenStore = (*Instrumented)(nil)

// InstrumentOption customizes Instrumented
type InstrumentOption func(*Instrumented)

// WithTracerProvider creates spans from tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) InstrumentOption {
	return func(s *Instrumented) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// Instrument decorates next. A nil recorder records nothing.
func Instrument(next sso.TokenStore, backend string, recorder observability.Recorder, opts ...InstrumentOption) *Instrumented {
	if recorder == nil {
		recorder = observability.NopRecorder{}
	}
	s := &Instrumented{
		next:     next,
		backend:  backend,
		recorder: recorder,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Instrumented) Put(ctx context.Context, key string, tok *sso.SSOToken, ttl time.Duration) error {
	ctx, span := s.start(ctx, "put")
	defer span.End()

	start := time.Now()
	err := s.next.Put(ctx, key, tok, ttl)
	s.finish(ctx, span, "put", start, err)
	return err
}

func (s *Instrumented) Get(ctx context.Context, key string) (*sso.SSOToken, error) {
	ctx, span := s.start(ctx, "get")
	defer span.End()

	start := time.Now()
	tok, err := s.next.Get(ctx, key)
	span.SetAttributes(attribute.Bool("token_store.hit", tok != nil))
	s.finish(ctx, span, "get", start, err)
	return tok, err
}

func (s *Instrumented) GetDel(ctx context.Context, key string) (*sso.SSOToken, error) {
	ctx, span := s.start(ctx, "getdel")
	defer span.End()

	start := time.Now()
	tok, err := s.next.GetDel(ctx, key)
	span.SetAttributes(attribute.Bool("token_store.hit", tok != nil))
	s.finish(ctx, span, "getdel", start, err)
	return tok, err
}

func (s *Instrumented) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "tokenstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("token_store.backend", s.backend)))
}

func (s *Instrumented) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.recorder.RecordStoreOperation(ctx, s.backend, op, time.Since(start), err)
}
