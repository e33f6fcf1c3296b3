package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	automation "github.com/Pr0gCat/CodeHive-sub001"
)

// meterName is the instrumentation scope name for engine metrics.
const meterName = "github.com/Pr0gCat/CodeHive-sub001"

// Metrics returns middleware that records per-item dispatch metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - batchflow.item.duration (Float64Histogram): dispatch time in seconds,
//     with attributes: action, target_type, status ("ok" or "error")
//   - batchflow.item.dispatches (Int64Counter): total dispatches,
//     with attributes: action, target_type, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"batchflow.item.duration",
		metric.WithDescription("Duration of batch item dispatch in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	dispatches, eErr := meter.Int64Counter(
		"batchflow.item.dispatches",
		metric.WithDescription("Total number of batch item dispatches"),
		metric.WithUnit("{dispatch}"),
	)
	_ = eErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, item *automation.Item, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("action", string(item.Action)),
			attribute.String("target_type", string(item.TargetType)),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		dispatches.Add(ctx, 1, attrs)

		return err
	}
}
