package metrics

import (
	"mercator-hq/tabula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics tracks the background job queue.
type JobMetrics struct {
	inFlight  prometheus.Gauge
	queued    prometheus.Gauge
	jobsTotal *prometheus.CounterVec
	scheduled *prometheus.CounterVec
}

// NewJobMetrics creates and registers job queue metrics with the provided registry.
func NewJobMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *JobMetrics {
	jm := &JobMetrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "jobs_in_flight",
			Help:      "Number of exports currently running",
		}),

		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "jobs_queued",
			Help:      "Number of exports waiting for a worker",
		}),

		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "jobs_total",
				Help:      "Total number of finished jobs by status",
			},
			[]string{"status"},
		),

		scheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scheduled_runs_total",
				Help:      "Total number of scheduled export submissions",
			},
			[]string{"schedule", "result"},
		),
	}

	registry.MustRegister(jm.inFlight, jm.queued, jm.jobsTotal, jm.scheduled)

	return jm
}
