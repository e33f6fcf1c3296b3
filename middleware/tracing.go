package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	automation "github.com/Pr0gCat/CodeHive-sub001"
)

// tracerName is the instrumentation scope name for engine tracing.
const tracerName = "github.com/Pr0gCat/CodeHive-sub001"

// Tracing returns middleware that wraps item dispatch in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop tracer
// is used and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: batchflow.operation.id, batchflow.item.index,
// batchflow.action, batchflow.target_type, batchflow.actor.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, item *automation.Item, next Handler) error {
		ctx, span := tracer.Start(ctx, "batchflow.item.dispatch",
			trace.WithAttributes(
				attribute.String("batchflow.operation.id", item.OperationID.String()),
				attribute.Int("batchflow.item.index", item.Index),
				attribute.String("batchflow.action", string(item.Action)),
				attribute.String("batchflow.target_type", string(item.TargetType)),
				attribute.String("batchflow.actor", item.Actor),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
