// Package telemetry groups the observability packages of tabula.
//
// # Components
//
//   - logging: slog setup from config, context ids (export, job, schedule,
//     trace) on every record, recipient and secret redaction
//   - metrics: Prometheus collector for exports, batches, persist retries,
//     jobs and scheduled runs
//   - tracing: OpenTelemetry spans for exports, batches and persist
//     attempts, exported over OTLP gRPC
//   - health: liveness, readiness and version handlers backed by
//     registered component checks
//
// # Usage
//
//	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stderr)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.Register("catalog", health.PingCheck(store), true)
package telemetry
