package kitabi

import "context"

// Tracer creates spans around pipeline stages. The observer package provides
// an OTEL-backed implementation via NewTracer(). A nil Tracer disables spans.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...SpanAttr) (context.Context, Span)
}

// Span is a traced operation. End must be called exactly once.
type Span interface {
	SetAttr(attrs ...SpanAttr)
	Event(name string, attrs ...SpanAttr)
	Error(err error)
	End()
}

// SpanAttr is a key-value attribute attached to a span or event.
type SpanAttr struct {
	Key   string
	Value any
}

func StringAttr(k, v string) SpanAttr        { return SpanAttr{Key: k, Value: v} }
func IntAttr(k string, v int) SpanAttr       { return SpanAttr{Key: k, Value: v} }
func BoolAttr(k string, v bool) SpanAttr     { return SpanAttr{Key: k, Value: v} }
func FloatAttr(k string, v float64) SpanAttr { return SpanAttr{Key: k, Value: v} }

type noopSpan struct{}

func (noopSpan) SetAttr(...SpanAttr)       {}
func (noopSpan) Event(string, ...SpanAttr) {}
func (noopSpan) Error(error)               {}
func (noopSpan) End()                      {}

// startSpan starts a span on t, or returns a no-op span when t is nil.
func startSpan(ctx context.Context, t Tracer, name string, attrs ...SpanAttr) (context.Context, Span) {
	if t == nil {
		return ctx, noopSpan{}
	}
	return t.Start(ctx, name, attrs...)
}
