package metrics

import (
	"sync"
	"time"

	"mercator-hq/tabula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the entry point for all Prometheus metrics recorded by tabula.
// It owns the registry and forwards to the per-area metric groups.
//
// A nil *Collector is valid and records nothing, so components can take an
// optional collector without guarding every call.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	exportMetrics *ExportMetrics
	batchMetrics  *BatchMetrics
	jobMetrics    *JobMetrics

	// Schedule names come from configuration that can be reloaded at runtime.
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "tabula", Subsystem: "export"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}
	if len(cfg.BatchDurationBuckets) == 0 {
		cfg.BatchDurationBuckets = config.DefaultBatchDurationBuckets
	}
	if len(cfg.FileSizeBuckets) == 0 {
		cfg.FileSizeBuckets = config.DefaultFileSizeBuckets
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		exportMetrics:      NewExportMetrics(cfg, registry),
		batchMetrics:       NewBatchMetrics(cfg, registry),
		jobMetrics:         NewJobMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(100),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordExport records a finished export.
//
// Parameters:
//   - kind: export kind ("product", "gift_card")
//   - format: file type ("csv", "xlsx")
//   - status: "success" or the failure kind (e.g. "persist_failure")
//   - duration: time from request to terminal state
//   - rows: data rows written
func (c *Collector) RecordExport(kind, format, status string, duration time.Duration, rows int64) {
	if !c.enabled() {
		return
	}
	c.exportMetrics.RecordExport(kind, format, status, duration, rows)
}

// RecordBatch records one appended batch.
func (c *Collector) RecordBatch(kind string, rows int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.batchMetrics.RecordBatch(kind, rows, duration)
}

// RecordFileSize records the size of a persisted file.
func (c *Collector) RecordFileSize(kind, format string, size int64) {
	if !c.enabled() {
		return
	}
	c.exportMetrics.RecordFileSize(kind, format, size)
}

// RecordProjectionFailures adds n optional cells blanked by failed projections.
func (c *Collector) RecordProjectionFailures(kind string, n int64) {
	if !c.enabled() {
		return
	}
	c.exportMetrics.RecordProjectionFailures(kind, n)
}

// RecordPersistRetry records one retried save of a finished file.
func (c *Collector) RecordPersistRetry(kind string) {
	if !c.enabled() {
		return
	}
	c.exportMetrics.RecordPersistRetry(kind)
}

// JobStarted marks a queued job as running.
func (c *Collector) JobStarted() {
	if !c.enabled() {
		return
	}
	c.jobMetrics.queued.Dec()
	c.jobMetrics.inFlight.Inc()
}

// JobQueued marks a job as accepted and waiting.
func (c *Collector) JobQueued() {
	if !c.enabled() {
		return
	}
	c.jobMetrics.queued.Inc()
}

// JobFinished marks a running job as done with the given status.
func (c *Collector) JobFinished(status string) {
	if !c.enabled() {
		return
	}
	c.jobMetrics.inFlight.Dec()
	c.jobMetrics.jobsTotal.WithLabelValues(status).Inc()
}

// RecordScheduledRun records a cron-triggered submission.
func (c *Collector) RecordScheduledRun(schedule string, submitted bool) {
	if !c.enabled() {
		return
	}
	if !c.cardinalityLimiter.Allow(schedule) {
		schedule = "other"
	}
	result := "submitted"
	if !submitted {
		result = "rejected"
	}
	c.jobMetrics.scheduled.WithLabelValues(schedule, result).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// CardinalityLimiter bounds the number of distinct values of a label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already tracked or fits under the limit.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
