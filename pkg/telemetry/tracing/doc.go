// Package tracing provides OpenTelemetry tracing for exports.
//
// Each export produces an "export" span with one "export.batch" child per
// batch and an "export.persist" child for the save. Spans are sent to an
// OTLP gRPC collector when telemetry.tracing.enabled is set; otherwise a
// noop tracer is used.
//
// Incoming HTTP requests carry W3C trace context (traceparent), extracted
// by HTTPMiddleware. Detach keeps that trace for jobs that outlive the
// request.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "export")
//	defer span.End()
package tracing
