package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Reference describes a persisted file.
type Reference struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Backend     string `json:"backend"`
}

// Store persists files under a name.
type Store interface {
	// Save reads r to EOF and stores the bytes under name.
	Save(ctx context.Context, name string, r io.Reader, contentType string) (*Reference, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// SaveError represents a failed save.
type SaveError struct {
	Backend string // Storage backend ("local", "s3", "memory")
	Name    string // File name
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *SaveError) Error() string {
	return fmt.Sprintf("save error [backend=%s, name=%s]: %v", e.Backend, e.Name, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SaveError) Unwrap() error {
	return e.Cause
}

// NewSaveError creates a new SaveError.
func NewSaveError(backend, name string, cause error) *SaveError {
	return &SaveError{
		Backend: backend,
		Name:    name,
		Cause:   cause,
	}
}

// validateName rejects names that could escape the store's namespace.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty file name")
	}
	if strings.ContainsAny(name, `/\`) || name != path.Clean(name) || name == ".." || name == "." {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
