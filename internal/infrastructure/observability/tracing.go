package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ai-chatbot2/chat-api"

// GetTracer returns the tracer for the chat service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartTurnSpan starts a span covering one turn's generation.
func StartTurnSpan(ctx context.Context, conversationID, streamID, model string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "turn.generate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("turn.conversation_id", conversationID),
			attribute.String("turn.stream_id", streamID),
			attribute.String("turn.model", model),
		),
	)
}

// StartToolSpan starts a span covering one tool invocation.
func StartToolSpan(ctx context.Context, callID, toolName string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "tool.invoke",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("tool.call_id", callID),
			attribute.String("tool.name", toolName),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
