package metrics

import (
	"time"

	"mercator-hq/tabula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExportMetrics tracks whole-export outcomes.
//
// Metrics:
//   - tabula_export_exports_total: Finished exports by kind, format, status
//   - tabula_export_export_duration_seconds: Export duration histogram
//   - tabula_export_rows_total: Rows written by kind
//   - tabula_export_file_bytes: Size of persisted files
//   - tabula_export_projection_failures_total: Optional columns blanked by a failed projection
//   - tabula_export_persist_retries_total: Save attempts that were retried
type ExportMetrics struct {
	exportsTotal       *prometheus.CounterVec
	exportDuration     *prometheus.HistogramVec
	rowsTotal          *prometheus.CounterVec
	fileBytes          *prometheus.HistogramVec
	projectionFailures *prometheus.CounterVec
	persistRetries     *prometheus.CounterVec
}

// NewExportMetrics creates and registers export metrics with the provided registry.
func NewExportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExportMetrics {
	em := &ExportMetrics{
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exports_total",
				Help:      "Total number of finished exports",
			},
			[]string{"kind", "format", "status"},
		),

		exportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "export_duration_seconds",
				Help:      "Duration of exports in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"kind", "format"},
		),

		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rows_total",
				Help:      "Total number of rows written to export files",
			},
			[]string{"kind"},
		),

		fileBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "file_bytes",
				Help:      "Size of persisted export files in bytes",
				Buckets:   cfg.FileSizeBuckets,
			},
			[]string{"kind", "format"},
		),

		projectionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "projection_failures_total",
				Help:      "Optional cells left blank because projection failed",
			},
			[]string{"kind"},
		),

		persistRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "persist_retries_total",
				Help:      "Number of retried attempts to save a finished file",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		em.exportsTotal,
		em.exportDuration,
		em.rowsTotal,
		em.fileBytes,
		em.projectionFailures,
		em.persistRetries,
	)

	return em
}

// RecordExport records a finished export.
func (em *ExportMetrics) RecordExport(kind, format, status string, duration time.Duration, rows int64) {
	em.exportsTotal.WithLabelValues(kind, format, status).Inc()
	em.exportDuration.WithLabelValues(kind, format).Observe(duration.Seconds())
	if rows > 0 {
		em.rowsTotal.WithLabelValues(kind).Add(float64(rows))
	}
}

// RecordFileSize records the size of a persisted file.
func (em *ExportMetrics) RecordFileSize(kind, format string, size int64) {
	em.fileBytes.WithLabelValues(kind, format).Observe(float64(size))
}

// RecordProjectionFailures adds n blanked cells.
func (em *ExportMetrics) RecordProjectionFailures(kind string, n int64) {
	if n > 0 {
		em.projectionFailures.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordPersistRetry records one retried save.
func (em *ExportMetrics) RecordPersistRetry(kind string) {
	em.persistRetries.WithLabelValues(kind).Inc()
}
