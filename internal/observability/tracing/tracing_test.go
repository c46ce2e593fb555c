package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testTracer struct {
	starts int
}

func (t *testTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	t.starts++
	return ctx, noopSpan{}
}

func TestOrNoop(t *testing.T) {
	if _, span := OrNoop(nil).Start(context.Background(), "anything"); span == nil {
		t.Fatal("nil tracer should yield a usable noop span")
	}
	real := &testTracer{}
	OrNoop(real).Start(context.Background(), "operation")
	if real.starts != 1 {
		t.Fatalf("expected passthrough to the provided tracer, starts=%d", real.starts)
	}
}

func TestOTelTracer(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(spanRecorder))
	tracer := NewOTelTracer(tp, "test")
	ctx, span := tracer.Start(context.Background(), "db.query", String("sql", "select 1"))
	if ctx == nil {
		t.Fatalf("expected context from tracer")
	}
	span.End(errors.New("boom"))
	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span recorded, got %d", len(spans))
	}
	if spans[0].Name() != "db.query" {
		t.Fatalf("unexpected span name %q", spans[0].Name())
	}
}
