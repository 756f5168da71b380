package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/export/pipeline"
	"mercator-hq/tabula/pkg/filestore"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/telemetry/metrics"
)

// fakeRunner returns canned outcomes. When block is set, Export waits for
// it to close or for ctx to end.
type fakeRunner struct {
	mu      sync.Mutex
	block   chan struct{}
	started chan string
	err     error
	result  *pipeline.Result
	seen    []*export.Request
	ctxs    []context.Context
}

func (r *fakeRunner) Export(ctx context.Context, req *export.Request) (*pipeline.Result, error) {
	r.mu.Lock()
	r.seen = append(r.seen, req)
	r.ctxs = append(r.ctxs, ctx)
	block, started := r.block, r.started
	r.mu.Unlock()

	if started != nil {
		started <- req.ID
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, export.NewError(export.FetchFailure, export.StateAppending, ctx.Err())
		}
	}
	if r.result != nil {
		res := *r.result
		res.ExportID = req.ID
		return &res, r.err
	}
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.Result{ExportID: req.ID, Kind: req.Kind, Rows: 3,
		Reference: filestore.Reference{Name: "product_data_x.csv"}}, nil
}

func newQueue(t *testing.T, runner Runner, cfg *Config, opts ...Option) *Queue {
	t.Helper()
	q := NewQueue(runner, cfg, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = q.Close(ctx)
	})
	return q
}

func request() *export.Request {
	return &export.Request{Kind: export.KindProduct, Info: export.ExportInfo{Fields: []string{"name"}}}
}

func wait(t *testing.T, q *Queue, id string) Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := q.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	return job
}

func TestQueue_RunsJob(t *testing.T) {
	runner := &fakeRunner{}
	q := newQueue(t, runner, &Config{Workers: 1, QueueSize: 4})

	job, err := q.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if job.Status != StatusQueued {
		t.Errorf("status = %q, want queued", job.Status)
	}

	done := wait(t, q, job.ID)
	if done.Status != StatusSucceeded {
		t.Fatalf("status = %q, want succeeded (%s)", done.Status, done.Error)
	}
	if done.Result == nil || done.Result.Rows != 3 {
		t.Errorf("unexpected result %+v", done.Result)
	}
	if done.StartedAt == nil || done.FinishedAt == nil {
		t.Error("expected start and finish times")
	}
	if runner.seen[0].ID != job.ID {
		t.Errorf("export id = %q, want job id %q", runner.seen[0].ID, job.ID)
	}
	if logging.JobID(runner.ctxs[0]) != job.ID {
		t.Error("job id missing from export context")
	}
}

func TestQueue_FailureAndNotifyWarning(t *testing.T) {
	tests := []struct {
		name     string
		runner   *fakeRunner
		want     Status
		wantKind export.ErrorKind
	}{
		{
			name:     "persist failure",
			runner:   &fakeRunner{err: export.NewError(export.PersistFailure, export.StateFinalizing, errors.New("denied"))},
			want:     StatusFailed,
			wantKind: export.PersistFailure,
		},
		{
			name: "notify failure keeps result",
			runner: &fakeRunner{
				result: &pipeline.Result{Rows: 1},
				err:    export.NewError(export.NotifyFailure, export.StatePersisted, errors.New("bounced")),
			},
			want:     StatusSucceeded,
			wantKind: export.NotifyFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newQueue(t, tt.runner, &Config{Workers: 1})
			job, err := q.Submit(context.Background(), request())
			if err != nil {
				t.Fatal(err)
			}
			done := wait(t, q, job.ID)
			if done.Status != tt.want || done.ErrorKind != tt.wantKind {
				t.Errorf("got status=%q kind=%q, want %q %q", done.Status, done.ErrorKind, tt.want, tt.wantKind)
			}
			if done.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestQueue_SubmitValidates(t *testing.T) {
	q := newQueue(t, &fakeRunner{}, nil)

	_, err := q.Submit(context.Background(), &export.Request{Kind: "invoice"})
	if !export.IsKind(err, export.InvalidRequest) {
		t.Errorf("expected invalid request, got %v", err)
	}
	if _, err := q.Submit(context.Background(), nil); !export.IsKind(err, export.InvalidRequest) {
		t.Errorf("expected invalid request for nil, got %v", err)
	}
	if len(q.List()) != 0 {
		t.Error("rejected requests must not create jobs")
	}
}

func TestQueue_Full(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan string, 4)}
	defer close(runner.block)
	q := newQueue(t, runner, &Config{Workers: 1, QueueSize: 1})

	if _, err := q.Submit(context.Background(), request()); err != nil {
		t.Fatal(err)
	}
	<-runner.started // first job occupies the worker
	if _, err := q.Submit(context.Background(), request()); err != nil {
		t.Fatalf("second job should fit in the queue: %v", err)
	}
	if _, err := q.Submit(context.Background(), request()); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestQueue_Timeout(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	defer close(runner.block)
	q := newQueue(t, runner, &Config{Workers: 1, Timeout: 20 * time.Millisecond})

	job, _ := q.Submit(context.Background(), request())
	done := wait(t, q, job.ID)
	if done.Status != StatusFailed {
		t.Errorf("status = %q, want failed", done.Status)
	}
	if done.ErrorKind != export.FetchFailure {
		t.Errorf("error kind = %q", done.ErrorKind)
	}
}

func TestQueue_Cancel(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan string, 4)}
	defer close(runner.block)
	q := newQueue(t, runner, &Config{Workers: 1, QueueSize: 4})

	running, _ := q.Submit(context.Background(), request())
	<-runner.started
	queued, _ := q.Submit(context.Background(), request())

	if ok, err := q.Cancel(queued.ID); err != nil || !ok {
		t.Fatalf("Cancel(queued) = %v, %v", ok, err)
	}
	if got := wait(t, q, queued.ID); got.Status != StatusCanceled || got.StartedAt != nil {
		t.Errorf("queued job: %+v", got)
	}

	if ok, err := q.Cancel(running.ID); err != nil || !ok {
		t.Fatalf("Cancel(running) = %v, %v", ok, err)
	}
	if got := wait(t, q, running.ID); got.Status != StatusCanceled {
		t.Errorf("running job status = %q, want canceled", got.Status)
	}

	if ok, _ := q.Cancel(running.ID); ok {
		t.Error("cancelling a finished job should report false")
	}
	if _, err := q.Cancel("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueue_ScheduleFromContext(t *testing.T) {
	q := newQueue(t, &fakeRunner{}, nil)
	ctx := logging.WithSchedule(context.Background(), "daily-gift-cards")

	job, err := q.Submit(ctx, request())
	if err != nil {
		t.Fatal(err)
	}
	if job.Schedule != "daily-gift-cards" {
		t.Errorf("schedule = %q", job.Schedule)
	}
}

func TestQueue_Prune(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	q := newQueue(t, &fakeRunner{}, &Config{Workers: 1, Retain: time.Hour}, WithClock(clock))

	job, _ := q.Submit(context.Background(), request())
	wait(t, q, job.ID)

	if n := q.Prune(); n != 0 {
		t.Errorf("fresh job pruned (%d)", n)
	}
	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()
	if n := q.Prune(); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, err := q.Get(job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected pruned job to be gone, got %v", err)
	}
}

func TestQueue_CloseDrainsAndRejects(t *testing.T) {
	runner := &fakeRunner{}
	q := NewQueue(runner, &Config{Workers: 1, QueueSize: 8})

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := q.Submit(context.Background(), request())
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, job.ID)
	}
	if err := q.Close(context.Background()); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	for _, id := range ids {
		if job, _ := q.Get(id); job.Status != StatusSucceeded {
			t.Errorf("job %s status %q after drain", id, job.Status)
		}
	}
	if _, err := q.Submit(context.Background(), request()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.Close(context.Background()); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestQueue_CloseDeadlineCancelsRunning(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan string, 1)}
	defer close(runner.block)
	q := NewQueue(runner, &Config{Workers: 1})

	job, _ := q.Submit(context.Background(), request())
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close() = %v, want deadline exceeded", err)
	}
	if got, _ := q.Get(job.ID); got.Status != StatusCanceled {
		t.Errorf("status = %q, want canceled", got.Status)
	}
}

func TestQueue_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "tabula", Subsystem: "export"}, registry)
	q := newQueue(t, &fakeRunner{}, &Config{Workers: 1}, WithMetrics(collector))

	job, _ := q.Submit(context.Background(), request())
	wait(t, q, job.ID)

	if n, err := testutil.GatherAndCount(registry, "tabula_export_jobs_total"); err != nil || n != 1 {
		t.Errorf("expected one jobs_total series, got %d (%v)", n, err)
	}
}
