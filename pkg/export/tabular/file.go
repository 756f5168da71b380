package tabular

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"mercator-hq/tabula/pkg/export"
)

// ErrClosed is returned when a closed file is used.
var ErrClosed = errors.New("tabular file is closed")

// ErrFinished is returned when rows are appended to a finished file.
var ErrFinished = errors.New("tabular file is finished")

// WriteError represents a failed create or append.
type WriteError struct {
	Format    export.FileType // File format
	Operation string          // "create", "append" or "finish"
	Cause     error           // Underlying error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("write error [format=%s, operation=%s]: %v", e.Format, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *WriteError) Unwrap() error {
	return e.Cause
}

// appender writes rows of one format.
type appender interface {
	writeHeader(headers []string) error
	appendRows(rows [][]string) error
	// finish completes the file on disk; no rows follow it.
	finish() error
	close() error
}

// File is a temporary tabular file under construction.
type File struct {
	path     string
	format   export.FileType
	headers  []string
	w        appender
	rows     int
	finished bool
	closed   bool
	mu       sync.Mutex
	logger   *slog.Logger
}

// Create creates a temporary file in dir (the OS temp dir when empty)
// holding exactly the header row. The delimiter only applies to csv.
func Create(dir string, headers []string, format export.FileType, delimiter rune) (*File, error) {
	if len(headers) == 0 {
		return nil, &WriteError{Format: format, Operation: "create", Cause: errors.New("no headers")}
	}

	f := &File{
		format:  format,
		headers: append([]string(nil), headers...),
		logger:  slog.Default().With("component", "export.tabular", "format", string(format)),
	}

	var err error
	switch format {
	case export.FileCSV:
		if err := export.ValidateDelimiter(delimiter); err != nil {
			return nil, &WriteError{Format: format, Operation: "create", Cause: err}
		}
		f.path, f.w, err = newCSVAppender(dir, delimiter)
	case export.FileXLSX:
		f.path, f.w, err = newXLSXAppender(dir)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &WriteError{Format: format, Operation: "create", Cause: err}
	}

	if err := f.w.writeHeader(f.headers); err != nil {
		f.w.close()
		os.Remove(f.path)
		return nil, &WriteError{Format: format, Operation: "create", Cause: err}
	}

	f.logger.Debug("temporary export file created", "path", f.path, "columns", len(headers))
	return f, nil
}

// Append writes rows after the existing content. Every row must have one
// value per header.
func (f *File) Append(rows []export.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return &WriteError{Format: f.format, Operation: "append", Cause: ErrClosed}
	}
	if f.finished {
		return &WriteError{Format: f.format, Operation: "append", Cause: ErrFinished}
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != len(f.headers) {
			return &WriteError{Format: f.format, Operation: "append",
				Cause: fmt.Errorf("row %d has %d values, header has %d", i, len(row), len(f.headers))}
		}
		records[i] = row.Strings()
	}

	if err := f.w.appendRows(records); err != nil {
		return &WriteError{Format: f.format, Operation: "append", Cause: err}
	}
	f.rows += len(rows)
	return nil
}

// Finish completes the file so that its bytes can be read. Appends are
// rejected afterwards. It is safe to call more than once.
func (f *File) Finish() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishLocked()
}

func (f *File) finishLocked() error {
	if f.closed {
		return &WriteError{Format: f.format, Operation: "finish", Cause: ErrClosed}
	}
	if f.finished {
		return nil
	}
	if err := f.w.finish(); err != nil {
		return &WriteError{Format: f.format, Operation: "finish", Cause: err}
	}
	f.finished = true
	return nil
}

// Open returns a reader over the file contents, finishing the file first
// if needed.
func (f *File) Open() (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.finishLocked(); err != nil {
		return nil, err
	}
	return os.Open(f.path)
}

// Size returns the current file size in bytes.
func (f *File) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Rows returns the number of data rows appended.
func (f *File) Rows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows
}

// Headers returns the header row.
func (f *File) Headers() []string {
	return append([]string(nil), f.headers...)
}

// Path returns the temporary file path.
func (f *File) Path() string {
	return f.path
}

// Format returns the file format.
func (f *File) Format() export.FileType {
	return f.format
}

// Close releases and deletes the temporary file. It is safe to call more
// than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	closeErr := f.w.close()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	f.logger.Debug("temporary export file removed", "path", f.path, "rows", f.rows)
	return closeErr
}
