// Package metrics provides Prometheus metrics collection for tabula.
//
// # Metrics
//
//   - Export metrics: finished exports by kind, format and status, export
//     duration, rows written, persisted file size, blanked projection cells
//     and persist retries
//   - Batch metrics: batches appended, batch duration, rows per batch
//   - Job metrics: running and queued exports, finished jobs by status,
//     scheduled submissions
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordBatch("product", 10000, 800*time.Millisecond)
//	http.Handle("/metrics", collector.Handler())
//
// All Collector methods are safe on a nil receiver and when metrics are
// disabled in configuration.
package metrics
