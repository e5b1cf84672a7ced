package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer for node execute spans. A nil
// *Tracer behaves like the one NoopTracer returns (backed by the global
// otel tracer), so callers never need a nil check.
type Tracer struct {
	tracer oteltrace.Tracer
}

// NewTracer builds a Tracer backed by a fresh SDK TracerProvider,
// following graph/emit/otel.go's "Setup OpenTelemetry provider" example:
// the caller is expected to attach real span processors/exporters to the
// returned *trace.TracerProvider before traces are useful in production.
func NewTracer(serviceName string) (*Tracer, *sdktrace.TracerProvider) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return &Tracer{tracer: tp.Tracer(serviceName)}, tp
}

// NoopTracer builds a Tracer backed by the global (no-op by default)
// otel tracer, used when a Pipeline doesn't opt into tracing.
func NoopTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer("anacostia-noop")}
}

// StartExecuteSpan starts a span named "node.execute" for nodeName's
// Execute phase, attributing the node's name and
// kind as per graph/emit/otel.go's addStandardAttributes pattern.
func (t *Tracer) StartExecuteSpan(ctx context.Context, nodeName, kind string) (context.Context, oteltrace.Span) {
	if t == nil {
		t = NoopTracer()
	}
	ctx, span := t.tracer.Start(ctx, "node.execute")
	span.SetAttributes(
		attribute.String("anacostia.node", nodeName),
		attribute.String("anacostia.kind", kind),
	)
	return ctx, span
}

// EndSpan finalizes span, recording err as the span's error status when
// non-nil.
func EndSpan(span oteltrace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}
