// Package server runs the HTTP side of `tabula serve`: the job API, the
// Prometheus metrics endpoint and the health probes.
//
// # Basic Usage
//
//	queue := jobs.NewQueue(exporter, jobs.ConfigFrom(&cfg.Export.Jobs))
//	srv := server.New(&cfg.Server, api.NewHandler(queue, scheduler, cfg.Server.MaxBodyBytes),
//	    server.WithHealth(checker, &cfg.Telemetry.Health),
//	    server.WithMetrics(collector, cfg.Telemetry.Metrics.Path),
//	)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until ctx is cancelled or Shutdown is called, then drains
// in-flight requests for up to ShutdownTimeout. Export jobs are not part of
// the HTTP drain; the caller closes the job queue after Start returns.
//
// # Middleware Chain
//
// Requests pass through, outermost first: Recovery, Logging, RequestID and
// trace context extraction.
package server
