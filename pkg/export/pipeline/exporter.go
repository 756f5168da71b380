package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/export/cursor"
	"mercator-hq/tabula/pkg/export/fields"
	"mercator-hq/tabula/pkg/export/scope"
	"mercator-hq/tabula/pkg/export/tabular"
	"mercator-hq/tabula/pkg/filestore"
	"mercator-hq/tabula/pkg/notify"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/telemetry/metrics"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

// StatusSuccess is the metrics status of an export that persisted and
// notified. Failed exports report their error kind.
const StatusSuccess = "success"

// Result describes a persisted export.
type Result struct {
	ExportID           string              `json:"export_id"`
	Kind               export.TargetKind   `json:"kind"`
	FileType           export.FileType     `json:"file_type"`
	Reference          filestore.Reference `json:"reference"`
	Headers            []string            `json:"headers"`
	Rows               int                 `json:"rows"`
	Batches            int                 `json:"batches"`
	ProjectionFailures int64               `json:"projection_failures"`
	StartedAt          time.Time           `json:"started_at"`
	CompletedAt        time.Time           `json:"completed_at"`
}

// Duration returns how long the export ran.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Observer follows the progress of exports. Calls are made from the
// export's goroutine and must not block.
type Observer interface {
	// Started is called once the scope is resolved with the number of
	// records matching it at that moment.
	Started(exportID string, expected int64)

	// StateChanged is called after every state transition.
	StateChanged(exportID string, from, to export.State)

	// BatchWritten is called after each batch is appended to the file.
	BatchWritten(exportID string, rows, total int)
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithMetrics records export metrics to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Exporter) { e.metrics = c }
}

// WithTracer records export spans with t.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Exporter) { e.tracer = t }
}

// WithClock replaces the clock used for file names and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithObserver reports progress to o.
func WithObserver(o Observer) Option {
	return func(e *Exporter) { e.observer = o }
}

// Exporter runs exports against a catalog store. It is safe for
// concurrent use; each call to Export is independent.
type Exporter struct {
	store    catalog.Store
	files    filestore.Store
	notifier notify.Notifier
	resolver *scope.Resolver
	config   *Config
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	observer Observer
	now      func() time.Time
	create   createFunc
	logger   *slog.Logger
}

// tempFile is the part of *tabular.File an export uses.
type tempFile interface {
	Append(rows []export.Row) error
	Finish() error
	Size() (int64, error)
	Open() (io.ReadCloser, error)
	Path() string
	Close() error
}

type createFunc func(dir string, headers []string, format export.FileType, delimiter rune) (tempFile, error)

func createTabular(dir string, headers []string, format export.FileType, delimiter rune) (tempFile, error) {
	f, err := tabular.Create(dir, headers, format, delimiter)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// New creates an exporter. A nil notifier skips notification.
func New(store catalog.Store, files filestore.Store, notifier notify.Notifier, cfg *Config, opts ...Option) *Exporter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.applyDefaults()

	e := &Exporter{
		store:    store,
		files:    files,
		notifier: notifier,
		resolver: scope.NewResolver(),
		config:   &c,
		now:      time.Now,
		create:   createTabular,
		logger:   slog.Default().With("component", "export.pipeline"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = tracing.Noop()
	}

	e.logger.Debug("exporter initialized",
		"batch_size", c.BatchSize,
		"unknown_fields", c.UnknownFields,
		"persist_retries", c.PersistRetries,
	)
	return e
}

// Export runs one export to completion.
//
// On success the file has been saved and the recipient notified. When
// only the notification fails the Result is returned together with a
// NotifyFailure error, since the file is already persisted. Every other
// failure returns a nil Result and an *export.Error, and nothing is saved.
func (e *Exporter) Export(ctx context.Context, req *export.Request) (*Result, error) {
	if req == nil {
		return nil, export.NewError(export.InvalidRequest, export.StateCreated, errors.New("nil request"))
	}
	req = req.Clone()
	req.ApplyDefaults()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	ctx = logging.WithExportID(ctx, req.ID)
	ctx, span := e.tracer.Start(ctx, "export",
		trace.WithAttributes(tracing.ExportAttributes(req.ID, string(req.Kind), string(req.FileType))...))
	defer span.End()

	r := &run{
		exporter: e,
		req:      req,
		state:    export.StateCreated,
		span:     span,
		started:  e.now(),
		logger:   e.logger.With("kind", string(req.Kind), "file_type", string(req.FileType)),
	}
	r.logger.InfoContext(ctx, "export started",
		"by_id", req.Scope.HasIDs(),
		"filter_keys", len(req.Scope.Filter),
		"fields", len(req.Info.Fields),
	)

	result, err := r.execute(ctx)

	status := StatusSuccess
	if err != nil {
		status = string(export.KindOf(err))
	}
	e.metrics.RecordExport(string(req.Kind), string(req.FileType), status, e.now().Sub(r.started), int64(r.rows))
	span.SetAttributes(tracing.AttrRows.Int(r.rows), tracing.AttrState.String(string(r.state)))
	tracing.SetError(span, err)

	if err == nil {
		r.logger.InfoContext(ctx, "export completed",
			"rows", r.rows,
			"batches", r.batches,
			"file", result.Reference.Name,
			"duration", result.Duration(),
		)
	}
	return result, err
}

// run carries the state of a single export.
type run struct {
	exporter *Exporter
	req      *export.Request
	state    export.State
	span     trace.Span
	started  time.Time
	rows     int
	batches  int
	logger   *slog.Logger
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	e := r.exporter

	if err := r.req.Validate(); err != nil {
		return nil, r.fail(ctx, export.InvalidRequest, err)
	}

	query, err := e.resolver.Resolve(ctx, r.req.Kind, r.req.Scope)
	if err != nil {
		kind := export.MalformedScope
		if ctx.Err() != nil {
			kind = export.FetchFailure
		}
		return nil, r.fail(ctx, kind, err)
	}
	r.transition(ctx, export.StateScopeResolved)

	projector, err := fields.Build(r.req.Kind, r.req.Info, e.config.UnknownFields)
	if err != nil {
		return nil, r.fail(ctx, export.InvalidRequest, err)
	}

	if e.observer != nil {
		expected, err := e.store.Count(ctx, query)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to count matching records", "error", err)
			expected = -1
		}
		e.observer.Started(r.req.ID, expected)
	}

	file, err := e.create(e.config.TempDir, projector.Headers(), r.req.FileType, r.req.Delimiter)
	if err != nil {
		return nil, r.fail(ctx, export.WriteFailure, err)
	}
	defer r.closeFile(ctx, file)
	r.transition(ctx, export.StateFileInitialized)

	cur := cursor.New(e.store, query, e.config.BatchSize)
	for index := 0; ; index++ {
		after := cur.After()
		batch, err := cur.Next(ctx)
		if errors.Is(err, cursor.Done) {
			break
		}
		if err != nil {
			return nil, r.fail(ctx, export.FetchFailure, err)
		}
		r.transition(ctx, export.StateAppending)
		if err := r.writeBatch(ctx, projector, file, batch, index, after); err != nil {
			return nil, err
		}
	}

	r.transition(ctx, export.StateFinalizing)
	if n := projector.Failures(); n > 0 {
		e.metrics.RecordProjectionFailures(string(r.req.Kind), n)
		r.logger.WarnContext(ctx, "some cells could not be projected", "failures", n)
	}
	if err := file.Finish(); err != nil {
		return nil, r.fail(ctx, export.WriteFailure, err)
	}
	if size, err := file.Size(); err == nil {
		e.metrics.RecordFileSize(string(r.req.Kind), string(r.req.FileType), size)
	}

	ref, err := r.persist(ctx, file)
	if err != nil {
		return nil, r.fail(ctx, export.PersistFailure, err)
	}
	r.closeFile(ctx, file)
	r.transition(ctx, export.StatePersisted)

	result := &Result{
		ExportID:           r.req.ID,
		Kind:               r.req.Kind,
		FileType:           r.req.FileType,
		Reference:          *ref,
		Headers:            projector.Headers(),
		Rows:               r.rows,
		Batches:            r.batches,
		ProjectionFailures: projector.Failures(),
		StartedAt:          r.started,
		CompletedAt:        e.now(),
	}

	if err := r.notify(ctx, result); err != nil {
		r.logger.ErrorContext(ctx, "export persisted but notification failed",
			"file", ref.Name,
			"recipient", r.req.Recipient,
			"error", err,
		)
		return result, export.NewError(export.NotifyFailure, export.StatePersisted, err)
	}
	return result, nil
}

// writeBatch loads, projects and appends one batch of records.
func (r *run) writeBatch(ctx context.Context, projector *fields.Projector, file tempFile, batch cursor.Batch, index int, after int64) error {
	e := r.exporter
	ctx, span := e.tracer.Start(ctx, "export.batch")
	defer span.End()
	tracing.SetBatchAttributes(span, index, len(batch), after)

	start := time.Now()
	records, err := r.fetch(ctx, batch)
	if err != nil {
		tracing.SetError(span, err)
		return r.fail(ctx, export.FetchFailure, err)
	}

	rows := make([]export.Row, 0, len(records))
	for _, record := range records {
		row, err := projector.Project(record)
		if err != nil {
			tracing.SetError(span, err)
			return r.fail(ctx, export.ProjectionFailure, err)
		}
		rows = append(rows, row)
	}

	if err := file.Append(rows); err != nil {
		tracing.SetError(span, err)
		return r.fail(ctx, export.WriteFailure, err)
	}

	r.rows += len(rows)
	r.batches++
	e.metrics.RecordBatch(string(r.req.Kind), len(rows), time.Since(start))
	span.SetAttributes(tracing.AttrRows.Int(len(rows)))

	r.logger.DebugContext(ctx, "batch written",
		"batch", index,
		"ids", len(batch),
		"rows", len(rows),
		"last_id", batch.Last(),
		"total_rows", r.rows,
	)
	if e.observer != nil {
		e.observer.BatchWritten(r.req.ID, len(rows), r.rows)
	}
	return nil
}

// fetch loads the records of a batch with their relations. Ids deleted
// since the batch was paged are skipped by the store.
func (r *run) fetch(ctx context.Context, ids []int64) ([]any, error) {
	switch r.req.Kind.CatalogKind() {
	case catalog.KindProduct:
		products, err := r.exporter.store.Products(ctx, ids)
		if err != nil {
			return nil, err
		}
		records := make([]any, len(products))
		for i, p := range products {
			records[i] = p
		}
		return records, nil
	case catalog.KindOrder:
		orders, err := r.exporter.store.Orders(ctx, ids)
		if err != nil {
			return nil, err
		}
		records := make([]any, len(orders))
		for i, o := range orders {
			records[i] = o
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unknown export kind %q", r.req.Kind)
	}
}

func (r *run) notify(ctx context.Context, result *Result) error {
	if r.exporter.notifier == nil {
		return nil
	}
	return r.exporter.notifier.Notify(ctx, notify.Event{
		ExportID:    result.ExportID,
		Kind:        string(result.Kind),
		Label:       result.Kind.Label(),
		Recipient:   r.req.Recipient,
		Reference:   result.Reference,
		Rows:        result.Rows,
		CompletedAt: result.CompletedAt,
	})
}

// transition moves the export to state to. Transitions are fixed by the
// control flow of execute, so an invalid one is a bug.
func (r *run) transition(ctx context.Context, to export.State) {
	from := r.state
	if !from.CanTransitionTo(to) {
		panic(fmt.Sprintf("pipeline: invalid state transition %s -> %s", from, to))
	}
	r.state = to

	level := slog.LevelInfo
	if from == to {
		level = slog.LevelDebug
	}
	r.logger.Log(ctx, level, "export state transition", "from", from, "to", to)
	tracing.AddStateEvent(r.span, string(from), string(to))
	if obs := r.exporter.observer; obs != nil {
		obs.StateChanged(r.req.ID, from, to)
	}
}

// fail aborts the export. Errors already classified keep their kind.
func (r *run) fail(ctx context.Context, kind export.ErrorKind, err error) error {
	var xerr *export.Error
	if !errors.As(err, &xerr) {
		xerr = export.NewError(kind, r.state, err)
	}
	if !r.state.Terminal() {
		r.transition(ctx, export.StateAborted)
	}
	r.logger.ErrorContext(ctx, "export aborted",
		"error_kind", xerr.Kind,
		"state", xerr.State,
		"rows_written", r.rows,
		"store_failure", catalog.IsStorageError(xerr.Cause),
		"error", xerr.Cause,
	)
	return xerr
}

func (r *run) closeFile(ctx context.Context, file tempFile) {
	if err := file.Close(); err != nil {
		r.logger.WarnContext(ctx, "failed to remove temporary file", "path", file.Path(), "error", err)
	}
}
