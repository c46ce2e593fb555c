package tracing

import "context"

// Attribute is a key/value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

// String attribute helper.
func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

// Int attribute helper.
func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

// Int64 attribute helper.
func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }

// Bool attribute helper.
func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

// Span represents an in-flight tracing span.
type Span interface {
	End(err error)
}

// Tracer starts spans around store and service operations.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// NoopTracer discards all tracing events.
type NoopTracer struct{}

// Start implements Tracer.
func (NoopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// OrNoop returns t, or a NoopTracer when t is nil, so callers never need a
// nil check before starting a span.
func OrNoop(t Tracer) Tracer {
	if t == nil {
		return NoopTracer{}
	}
	return t
}
