package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts a span covering one scheduler run.
	StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span)

	// StartTickSpan starts a span for one tick. It should be a child of
	// the run span.
	StartTickSpan(ctx context.Context, tick uint64) (context.Context, trace.Span)

	// StartDispatchSpan starts a span for delivering one event.
	StartDispatchSpan(ctx context.Context, eventType string, handlers int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager backed by provider.
// A nil provider uses the global OTel tracer provider.
func NewSpanManager(provider trace.TracerProvider) SpanManager {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &otelSpanManager{tracer: provider.Tracer(scopeName)}
}

// StartRunSpan implements SpanManager.
func (m *otelSpanManager) StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "tickengine.run",
		trace.WithAttributes(attribute.String("run.id", runID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartTickSpan implements SpanManager.
func (m *otelSpanManager) StartTickSpan(ctx context.Context, tick uint64) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "tickengine.tick",
		trace.WithAttributes(attribute.Int64("tick", int64(tick))),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartDispatchSpan implements SpanManager.
func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, eventType string, handlers int) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "tickengine.dispatch "+eventType,
		trace.WithAttributes(
			attribute.String("event.type", eventType),
			attribute.Int("event.handlers", handlers),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError implements SpanManager.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// AddSpanEvent implements SpanManager.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
