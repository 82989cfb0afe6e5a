package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type spanTracer struct {
	tracer     trace.Tracer
	span       trace.Span
	tracerCtx  context.Context // used to create child spans
	spanName   string
	attributes *SpanAttributes

	started bool
}

func newSpanTracer(ctx context.Context, tracer trace.Tracer, spanName string) *spanTracer {
	return &spanTracer{
		tracer:     tracer,
		tracerCtx:  ctx,
		spanName:   spanName,
		attributes: EmptySpanAttributes(),
	}
}

func (t *spanTracer) Start() {
	t.tracerCtx, t.span = t.tracer.Start(t.tracerCtx,
		t.spanName,
		trace.WithAttributes(t.attributes.Attributes()...))
	t.started = true
}

func (t *spanTracer) SetStatus(code codes.Code, message string) {
	t.span.SetStatus(code, message)
}

func (t *spanTracer) WithAttributes(attributes *SpanAttributes) Tracer {
	t.attributes.Merge(attributes)
	if t.started {
		t.span.SetAttributes(t.attributes.Attributes()...)
	}
	return t
}

func (t *spanTracer) AddEvent(name string, e EventAttributes) {
	t.span.AddEvent(name, trace.WithAttributes(e...))
}

func (t *spanTracer) Spawn(spanName string) Tracer {
	child := newSpanTracer(t.tracerCtx, t.tracer, spanName)
	return child.WithAttributes(t.attributes)
}

func (t *spanTracer) End() {
	if !t.started {
		return // do not end if the span was never started
	}
	t.span.End()
}
