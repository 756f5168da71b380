package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/export/pipeline"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/telemetry/metrics"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

// Config contains configuration for the job queue.
type Config struct {
	// Workers is the number of exports run at the same time.
	// Default: 2
	Workers int

	// QueueSize is the number of jobs waiting for a worker before Submit
	// returns ErrQueueFull.
	// Default: 100
	QueueSize int

	// Timeout bounds one export. Zero means no limit.
	Timeout time.Duration

	// Retain is how long finished jobs can be looked up.
	// Default: 24h
	Retain time.Duration
}

// DefaultConfig returns the default queue configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers:   config.DefaultJobsWorkers,
		QueueSize: config.DefaultJobsQueueSize,
		Timeout:   config.DefaultJobsTimeout,
		Retain:    config.DefaultJobsRetain,
	}
}

// ConfigFrom converts the jobs section of the application config.
func ConfigFrom(cfg *config.JobsConfig) *Config {
	return &Config{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Timeout:   cfg.Timeout,
		Retain:    cfg.Retain,
	}
}

// Option configures a Queue.
type Option func(*Queue)

// WithMetrics records queue metrics to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(q *Queue) { q.metrics = c }
}

// WithClock replaces the clock used for job timestamps and pruning.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Queue runs submitted exports on a pool of workers.
type Queue struct {
	runner  Runner
	config  *Config
	metrics *metrics.Collector
	now     func() time.Time

	pending chan *entry
	mu      sync.RWMutex
	jobs    map[string]*entry
	closed  bool

	// base is the parent of every job context; cancelled by a forced Close.
	base       context.Context
	cancelBase context.CancelFunc

	workers sync.WaitGroup
	stop    chan struct{}
	janitor sync.WaitGroup
	logger  *slog.Logger
}

// NewQueue creates a queue and starts its workers.
func NewQueue(runner Runner, cfg *Config, opts ...Option) *Queue {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.Workers < 1 {
		c.Workers = config.DefaultJobsWorkers
	}
	if c.QueueSize < 1 {
		c.QueueSize = config.DefaultJobsQueueSize
	}
	if c.Retain <= 0 {
		c.Retain = config.DefaultJobsRetain
	}

	base, cancel := context.WithCancel(context.Background())
	q := &Queue{
		runner:     runner,
		config:     &c,
		now:        time.Now,
		pending:    make(chan *entry, c.QueueSize),
		jobs:       make(map[string]*entry),
		base:       base,
		cancelBase: cancel,
		stop:       make(chan struct{}),
		logger:     slog.Default().With("component", "export.jobs"),
	}
	for _, opt := range opts {
		opt(q)
	}

	for i := 0; i < c.Workers; i++ {
		q.workers.Add(1)
		go q.worker(i)
	}
	q.janitor.Add(1)
	go q.pruneLoop()

	q.logger.Info("export queue started",
		"workers", c.Workers,
		"queue_size", c.QueueSize,
		"timeout", c.Timeout,
		"retain", c.Retain,
	)
	return q
}

// Submit enqueues req and returns the queued job. The request is copied.
// The job runs detached from ctx but stays in its trace, and the schedule
// name in ctx, if any, is recorded on the job.
func (q *Queue) Submit(ctx context.Context, req *export.Request) (Job, error) {
	if req == nil {
		return Job{}, export.NewError(export.InvalidRequest, export.StateCreated, errNilRequest)
	}
	req = req.Clone()
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return Job{}, err
	}

	id := uuid.New().String()
	if req.ID == "" {
		req.ID = id
	}

	jobCtx := tracing.Detach(ctx)
	jobCtx = logging.WithJobID(jobCtx, id)
	schedule := logging.Schedule(ctx)
	if schedule != "" {
		jobCtx = logging.WithSchedule(jobCtx, schedule)
	}

	e := &entry{
		job: Job{
			ID:          id,
			Status:      StatusQueued,
			Kind:        req.Kind,
			FileType:    req.FileType,
			Schedule:    schedule,
			SubmittedAt: q.now(),
		},
		req:  req,
		ctx:  jobCtx,
		done: make(chan struct{}),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Job{}, ErrClosed
	}
	select {
	case q.pending <- e:
	default:
		q.logger.Warn("export queue full, rejecting job",
			"kind", req.Kind,
			"queue_size", q.config.QueueSize,
		)
		return Job{}, ErrQueueFull
	}
	q.jobs[id] = e
	q.metrics.JobQueued()

	q.logger.InfoContext(jobCtx, "export job queued",
		"kind", req.Kind,
		"file_type", req.FileType,
		"pending", len(q.pending),
	)
	return e.job, nil
}

// Get returns a snapshot of the job with the given id.
func (q *Queue) Get(id string) (Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	e, ok := q.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return e.job, nil
}

// List returns snapshots of all known jobs, oldest first.
func (q *Queue) List() []Job {
	q.mu.RLock()
	list := make([]Job, 0, len(q.jobs))
	for _, e := range q.jobs {
		list = append(list, e.job)
	}
	q.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].SubmittedAt.Equal(list[j].SubmittedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].SubmittedAt.Before(list[j].SubmittedAt)
	})
	return list
}

// Wait blocks until the job finishes or ctx is done.
func (q *Queue) Wait(ctx context.Context, id string) (Job, error) {
	q.mu.RLock()
	e, ok := q.jobs[id]
	q.mu.RUnlock()
	if !ok {
		return Job{}, ErrNotFound
	}

	select {
	case <-e.done:
		return q.Get(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Cancel stops a queued or running job. It reports whether the job was
// still unfinished.
func (q *Queue) Cancel(id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	switch e.job.Status {
	case StatusQueued:
		q.finishLocked(e, StatusCanceled, nil, context.Canceled)
		return true, nil
	case StatusRunning:
		e.cancel()
		return true, nil
	default:
		return false, nil
	}
}

// Prune forgets finished jobs older than the retention period and returns
// how many were removed.
func (q *Queue) Prune() int {
	cutoff := q.now().Add(-q.config.Retain)

	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for id, e := range q.jobs {
		if e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff) {
			delete(q.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		q.logger.Debug("pruned finished jobs", "removed", removed, "remaining", len(q.jobs))
	}
	return removed
}

// Close stops accepting jobs and waits for queued and running jobs to
// finish. When ctx ends first, running exports are cancelled and Close
// returns ctx.Err() once the workers have exited.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.pending)
	q.mu.Unlock()

	q.logger.Info("shutting down export queue", "pending", len(q.pending))

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		q.logger.Warn("export queue shutdown timed out, cancelling running exports")
		q.cancelBase()
		<-done
		err = ctx.Err()
	}

	close(q.stop)
	q.janitor.Wait()
	q.cancelBase()
	q.logger.Info("export queue shut down complete")
	return err
}

func (q *Queue) worker(n int) {
	defer q.workers.Done()
	for e := range q.pending {
		q.run(e)
	}
	q.logger.Debug("export worker stopped", "worker", n)
}

// run executes one job. A job cancelled while queued is skipped.
func (q *Queue) run(e *entry) {
	q.mu.Lock()
	q.metrics.JobStarted()
	if e.job.Status != StatusQueued {
		q.metrics.JobFinished(string(e.job.Status))
		q.mu.Unlock()
		return
	}

	ctx, cancel := q.jobContext(e.ctx)
	defer cancel()
	started := q.now()
	e.job.Status = StatusRunning
	e.job.StartedAt = &started
	e.cancel = cancel
	q.mu.Unlock()

	q.logger.InfoContext(ctx, "export job started", "kind", e.req.Kind)

	result, err := q.runner.Export(ctx, e.req)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	q.mu.Lock()
	q.finishLocked(e, statusOf(result, err), result, err)
	q.mu.Unlock()
}

// jobContext derives the context of a running job from its submission
// context and the queue's base context.
func (q *Queue) jobContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(q.base, cancel)
	if q.config.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, q.config.Timeout)
		return ctx, func() {
			cancelTimeout()
			stop()
			cancel()
		}
	}
	return ctx, func() {
		stop()
		cancel()
	}
}

// finishLocked records the outcome of a job. q.mu must be held.
func (q *Queue) finishLocked(e *entry, status Status, result *pipeline.Result, err error) {
	finished := q.now()
	e.job.Status = status
	e.job.FinishedAt = &finished
	e.job.Result = result
	if err != nil {
		e.job.Error = err.Error()
		e.job.ErrorKind = export.KindOf(err)
	}
	if e.job.StartedAt != nil {
		q.metrics.JobFinished(string(status))
	}
	close(e.done)

	attrs := []any{"status", status, "kind", e.job.Kind}
	if e.job.Result != nil {
		attrs = append(attrs, "rows", e.job.Result.Rows, "file", e.job.Result.Reference.Name)
	}
	switch status {
	case StatusSucceeded:
		if err != nil {
			attrs = append(attrs, "error", err)
			q.logger.WarnContext(e.ctx, "export job finished with warnings", attrs...)
			return
		}
		q.logger.InfoContext(e.ctx, "export job finished", attrs...)
	case StatusCanceled:
		q.logger.WarnContext(e.ctx, "export job canceled", attrs...)
	default:
		attrs = append(attrs, "error_kind", e.job.ErrorKind, "error", err)
		q.logger.ErrorContext(e.ctx, "export job failed", attrs...)
	}
}

// pruneLoop forgets old finished jobs until Close.
func (q *Queue) pruneLoop() {
	defer q.janitor.Done()

	interval := q.config.Retain / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.Prune()
		case <-q.stop:
			return
		}
	}
}
