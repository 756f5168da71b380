package jobs

import (
	"context"
	"errors"
	"time"

	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/export/pipeline"
)

// Status is the lifecycle stage of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Finished reports whether the job will not change again.
func (s Status) Finished() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

var (
	// ErrQueueFull is returned by Submit when no slot is free.
	ErrQueueFull = errors.New("export queue is full")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("export queue is closed")

	// ErrNotFound is returned for unknown or pruned job ids.
	ErrNotFound = errors.New("job not found")

	errNilRequest = errors.New("nil request")
)

// Runner runs a single export. *pipeline.Exporter implements it.
type Runner interface {
	Export(ctx context.Context, req *export.Request) (*pipeline.Result, error)
}

// Job is a snapshot of a submitted export.
type Job struct {
	ID          string            `json:"id"`
	Status      Status            `json:"status"`
	Kind        export.TargetKind `json:"kind"`
	FileType    export.FileType   `json:"file_type"`
	Schedule    string            `json:"schedule,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	Result      *pipeline.Result  `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	ErrorKind   export.ErrorKind  `json:"error_kind,omitempty"`
}

// entry is the mutable record behind a Job.
type entry struct {
	job    Job
	req    *export.Request
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// statusOf maps the outcome of an export to a job status. A persisted
// export whose notification failed still succeeded.
func statusOf(result *pipeline.Result, err error) Status {
	switch {
	case err == nil:
		return StatusSucceeded
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case result != nil:
		return StatusSucceeded
	default:
		return StatusFailed
	}
}
