package export

import (
	"errors"
	"fmt"
)

// ErrorKind classifies export failures.
type ErrorKind string

const (
	// MalformedScope means the scope filter could not be parsed or coerced.
	MalformedScope ErrorKind = "malformed_scope"

	// InvalidRequest means the request itself is unusable, such as an
	// unknown field identifier or file type.
	InvalidRequest ErrorKind = "invalid_request"

	// ProjectionFailure means a record could not be turned into a row.
	ProjectionFailure ErrorKind = "projection_failure"

	// WriteFailure means the temporary file could not be created or
	// appended to.
	WriteFailure ErrorKind = "write_failure"

	// PersistFailure means the file store rejected the finished file.
	PersistFailure ErrorKind = "persist_failure"

	// FetchFailure means the record store failed while paging or loading.
	FetchFailure ErrorKind = "fetch_failure"

	// NotifyFailure means the file was persisted but the notification
	// could not be delivered.
	NotifyFailure ErrorKind = "notify_failure"
)

// Error is returned by every export stage. State is the state the export
// was in when it failed.
type Error struct {
	Kind  ErrorKind
	State State
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("export error [kind=%s, state=%s]: %v", e.Kind, e.State, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(kind ErrorKind, state State, cause error) *Error {
	return &Error{
		Kind:  kind,
		State: state,
		Cause: cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an export error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
