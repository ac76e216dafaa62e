package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span names used by agent servers.
const (
	SpanSignal      = "agent.signal"
	SpanInstruction = "agent.instruction"
	SpanBatch       = "agent.batch"
)

// Attribute keys used on agent spans.
const (
	AttrAgentID       = attribute.Key("agent.id")
	AttrCorrelationID = attribute.Key("agent.correlation_id")
	AttrSignalType    = attribute.Key("agent.signal_type")
	AttrAction        = attribute.Key("agent.action")
	AttrInstructionID = attribute.Key("agent.instruction_id")
	AttrBatchSize     = attribute.Key("agent.batch_size")
)

// NoopTracer returns a tracer whose spans are discarded.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("agent-runtime")
}

// StartSpan starts an internal span with the given attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = NoopTracer()
	}
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on the span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
