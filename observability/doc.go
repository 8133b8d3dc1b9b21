// Package observability provides OpenTelemetry tracing and metrics
// integration for the fetch client.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("fetchbridge"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanFetch)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("fetchbridge"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("fetchbridge"))
//	metrics.RecordRequestEnd(ctx, "socket", "GET", 200, duration)
package observability
