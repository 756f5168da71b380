package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/export/jobs"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/telemetry/metrics"
)

// ErrUnknownSchedule is returned by Trigger for a name that is not scheduled.
var ErrUnknownSchedule = errors.New("unknown schedule")

// Submitter accepts export requests. *jobs.Queue implements it.
type Submitter interface {
	Submit(ctx context.Context, req *export.Request) (jobs.Job, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics records scheduled runs to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Scheduler) { s.metrics = c }
}

// WithLocation sets the time zone cron expressions are evaluated in.
// Default: UTC
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// WithClock replaces the clock used to stamp manual runs.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler submits exports when their cron schedule fires.
type Scheduler struct {
	submitter Submitter
	metrics   *metrics.Collector
	location  *time.Location
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]scheduled
	ctx     context.Context
	running bool
	logger  *slog.Logger
}

type scheduled struct {
	entry Entry
	id    cron.EntryID
}

// NewScheduler creates a scheduler. Call Apply to add entries and Start to
// run them.
func NewScheduler(submitter Submitter, opts ...Option) *Scheduler {
	s := &Scheduler{
		submitter: submitter,
		location:  time.UTC,
		now:       time.Now,
		entries:   make(map[string]scheduled),
		ctx:       context.Background(),
		logger:    slog.Default().With("component", "export.schedule"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithLocation(s.location))
	return s
}

// Apply replaces the scheduled entries. Unchanged entries keep their
// position in the cron table. Names must be unique.
func (s *Scheduler) Apply(entries []Entry) error {
	next := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return fmt.Errorf("schedule entry has no name")
		}
		if _, dup := next[e.Name]; dup {
			return fmt.Errorf("duplicate schedule %q", e.Name)
		}
		if e.Request == nil {
			return fmt.Errorf("schedule %q has no request", e.Name)
		}
		if e.schedule == nil {
			sched, err := cron.ParseStandard(e.Spec)
			if err != nil {
				return fmt.Errorf("schedule %q: invalid cron expression %q: %w", e.Name, e.Spec, err)
			}
			e.schedule = sched
		}
		next[e.Name] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added, removed, kept int
	for name, cur := range s.entries {
		want, ok := next[name]
		if ok && want.Spec == cur.entry.Spec && sameRequest(want, cur.entry) {
			kept++
			delete(next, name)
			continue
		}
		s.cron.Remove(cur.id)
		delete(s.entries, name)
		if !ok {
			removed++
		}
	}
	for name, e := range next {
		e := e
		id := s.cron.Schedule(e.schedule, cron.FuncJob(func() { s.fire(e) }))
		s.entries[name] = scheduled{entry: e, id: id}
		added++
	}

	s.logger.Info("schedules applied",
		"added", added,
		"removed", removed,
		"unchanged", kept,
		"total", len(s.entries),
	)
	return nil
}

// ApplyConfig converts and applies configured schedules.
func (s *Scheduler) ApplyConfig(cfgs []config.ScheduleConfig) error {
	entries, err := EntriesFrom(cfgs)
	if err != nil {
		return err
	}
	return s.Apply(entries)
}

// Start runs the cron loop until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx = ctx
	s.cron.Start()
	s.running = true
	s.logger.Info("export scheduler started", "entries", len(s.entries))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop stops the cron loop and waits for submissions in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("export scheduler stopped")
}

// Running reports whether the cron loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger submits the named entry immediately.
func (s *Scheduler) Trigger(ctx context.Context, name string) (jobs.Job, error) {
	s.mu.Lock()
	cur, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return jobs.Job{}, fmt.Errorf("%w %q", ErrUnknownSchedule, name)
	}
	return s.submit(ctx, cur.entry, s.now())
}

// Status describes a scheduled entry.
type Status struct {
	Name string    `json:"name"`
	Spec string    `json:"cron"`
	Kind string    `json:"kind"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitempty"`
}

// Entries returns the scheduled entries sorted by name.
func (s *Scheduler) Entries() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]Status, 0, len(s.entries))
	for name, cur := range s.entries {
		st := Status{Name: name, Spec: cur.entry.Spec, Kind: string(cur.entry.Request.Kind)}
		if ce := s.cron.Entry(cur.id); ce.Valid() {
			st.Next, st.Prev = ce.Next, ce.Prev
		}
		if st.Next.IsZero() {
			st.Next = cur.entry.Next(s.now().In(s.location))
		}
		list = append(list, st)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (s *Scheduler) fire(e Entry) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	_, _ = s.submit(ctx, e, s.now())
}

func (s *Scheduler) submit(ctx context.Context, e Entry, at time.Time) (jobs.Job, error) {
	ctx = logging.WithSchedule(ctx, e.Name)
	job, err := s.submitter.Submit(ctx, e.RequestAt(at.In(s.location)))
	s.metrics.RecordScheduledRun(e.Name, err == nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled export rejected", "kind", e.Request.Kind, "error", err)
		return jobs.Job{}, err
	}
	s.logger.InfoContext(ctx, "scheduled export submitted", "kind", e.Request.Kind, "job_id", job.ID)
	return job, nil
}

func sameRequest(a, b Entry) bool {
	if a.CreatedToday != b.CreatedToday {
		return false
	}
	x, y := a.Request, b.Request
	if x.Kind != y.Kind || x.FileType != y.FileType || x.Delimiter != y.Delimiter || x.Recipient != y.Recipient {
		return false
	}
	if len(x.Info.Fields) != len(y.Info.Fields) {
		return false
	}
	for i := range x.Info.Fields {
		if x.Info.Fields[i] != y.Info.Fields[i] {
			return false
		}
	}
	return true
}
