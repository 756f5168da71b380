package catalog

import (
	"errors"
	"fmt"
)

// StorageError is returned by a Store when its backend fails.
type StorageError struct {
	Backend   string // "sqlite" or "memory"
	Operation string // e.g. "ids_after", "products"
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("catalog %s: %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError wraps cause as a failure of operation on backend.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// QueryError reports a Query that cannot be run against any store.
type QueryError struct {
	Query *Query // nil when the query itself was missing
	Cause error
}

func (e *QueryError) Error() string {
	if e.Query == nil || e.Query.Kind == "" {
		return fmt.Sprintf("invalid catalog query: %v", e.Cause)
	}
	return fmt.Sprintf("invalid %s query: %v", e.Query.Kind, e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError reports why query is invalid.
func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{Query: query, Cause: cause}
}

// IsStorageError reports whether err came from a store backend.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
