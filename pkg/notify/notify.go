// Package notify tells a downstream collaborator that an export file is
// ready.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/tabula/pkg/filestore"
)

// Event announces a persisted export file.
type Event struct {
	ExportID    string
	Kind        string
	Label       string // "products" or "gift cards"
	Recipient   string
	Reference   filestore.Reference
	Rows        int
	CompletedAt time.Time
}

// Notifier delivers completion events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// DeliveryError represents a failed notification.
type DeliveryError struct {
	Backend   string // Notification backend ("sendgrid", "log")
	Recipient string // Intended recipient
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery error [backend=%s, recipient=%s]: %v", e.Backend, e.Recipient, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// LogNotifier writes events to the log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging through slog.Default.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{
		logger: slog.Default().With("component", "notify.log"),
	}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	n.logger.Info("export file ready",
		"export_id", event.ExportID,
		"label", event.Label,
		"file", event.Reference.Name,
		"location", event.Reference.Location,
		"rows", event.Rows,
		"recipient", event.Recipient,
	)
	return nil
}

// Recorder keeps delivered events in memory.
type Recorder struct {
	events   []Event
	failures int
	err      error
	mu       sync.Mutex
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailNext makes the next n calls to Notify fail with err.
func (r *Recorder) FailNext(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
	r.err = err
}

// Notify records the event.
func (r *Recorder) Notify(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return &DeliveryError{Backend: "memory", Recipient: event.Recipient, Cause: r.err}
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Multi delivers every event to all notifiers and joins their errors.
type Multi []Notifier

// Notify calls each notifier in order.
func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
