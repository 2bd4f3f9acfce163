package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation describes one AI call for telemetry purposes.
type Operation struct {
	Kind     string // Logical operation, e.g. "meeting-summary" (required)
	Model    string // Provider model name (optional)
	Provider string // Provider name (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: ai.<kind>
func (o Operation) SpanName() string {
	return "ai." + o.Kind
}

// Validate checks that the operation can be recorded.
func (o Operation) Validate() error {
	if o.Kind == "" {
		return ErrMissingKind
	}
	return nil
}

func (o Operation) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("ai.kind", o.Kind),
	}
	if o.Model != "" {
		attrs = append(attrs, attribute.String("ai.model", o.Model))
	}
	if o.Provider != "" {
		attrs = append(attrs, attribute.String("ai.provider", o.Provider))
	}
	return attrs
}

func (o Operation) fields() []Field {
	fields := []Field{{Key: "ai.kind", Value: o.Kind}}
	if o.Model != "" {
		fields = append(fields, Field{Key: "ai.model", Value: o.Model})
	}
	if o.Provider != "" {
		fields = append(fields, Field{Key: "ai.provider", Value: o.Provider})
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with AI operation spans.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an AI operation.
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)

	// EndSpan ends the span, recording the cache outcome and any error.
	EndSpan(span trace.Span, cached bool, err error)
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer. A nil tracer yields a no-op.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &otelTracer{tracer: t}
}

// StartSpan starts an internal span named ai.<kind>.
func (t *otelTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(op.attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *otelTracer) EndSpan(span trace.Span, cached bool, err error) {
	span.SetAttributes(
		attribute.Bool("ai.cached", cached),
		attribute.Bool("ai.error", err != nil),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
