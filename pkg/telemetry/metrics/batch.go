package metrics

import (
	"time"

	"mercator-hq/tabula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics tracks the fetch, project and append cycle of each batch.
type BatchMetrics struct {
	batchesTotal  *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batchRows     *prometheus.HistogramVec
}

// NewBatchMetrics creates and registers batch metrics with the provided registry.
func NewBatchMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BatchMetrics {
	bm := &BatchMetrics{
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batches_total",
				Help:      "Total number of batches appended",
			},
			[]string{"kind"},
		),

		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_duration_seconds",
				Help:      "Duration of one batch from id fetch to append",
				Buckets:   cfg.BatchDurationBuckets,
			},
			[]string{"kind"},
		),

		batchRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_rows",
				Help:      "Rows appended per batch",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		bm.batchesTotal,
		bm.batchDuration,
		bm.batchRows,
	)

	return bm
}

// RecordBatch records one appended batch.
func (bm *BatchMetrics) RecordBatch(kind string, rows int, duration time.Duration) {
	bm.batchesTotal.WithLabelValues(kind).Inc()
	bm.batchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	bm.batchRows.WithLabelValues(kind).Observe(float64(rows))
}
