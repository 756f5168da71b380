package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"mercator-hq/tabula/pkg/export/pipeline"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat parses the --output flag.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter formats output as plain text. Values implementing
// fmt.Stringer print their String form.
type TextFormatter struct{}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	return &TextFormatter{}
}

// Summary is the printed outcome of `tabula export`.
type Summary struct {
	ExportID           string   `json:"export_id"`
	Kind               string   `json:"kind"`
	File               string   `json:"file"`
	Location           string   `json:"location"`
	Bytes              int64    `json:"bytes"`
	Rows               int      `json:"rows"`
	Batches            int      `json:"batches"`
	Columns            []string `json:"columns"`
	ProjectionFailures int64    `json:"projection_failures,omitempty"`
	Duration           string   `json:"duration"`
	Warning            string   `json:"warning,omitempty"`
}

// NewSummary summarizes a finished export. warning is set when the file
// was saved but a later step, such as the notification, failed.
func NewSummary(r *pipeline.Result, warning error) Summary {
	s := Summary{
		ExportID:           r.ExportID,
		Kind:               string(r.Kind),
		File:               r.Reference.Name,
		Location:           r.Reference.Location,
		Bytes:              r.Reference.Size,
		Rows:               r.Rows,
		Batches:            r.Batches,
		Columns:            r.Headers,
		ProjectionFailures: r.ProjectionFailures,
		Duration:           r.Duration().Round(time.Millisecond).String(),
	}
	if warning != nil {
		s.Warning = warning.Error()
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Export %s (%s)\n", s.ExportID, s.Kind)
	fmt.Fprintf(&b, "  file:     %s\n", s.File)
	fmt.Fprintf(&b, "  location: %s\n", s.Location)
	fmt.Fprintf(&b, "  rows:     %d in %d batches (%d bytes)\n", s.Rows, s.Batches, s.Bytes)
	fmt.Fprintf(&b, "  columns:  %d\n", len(s.Columns))
	if s.ProjectionFailures > 0 {
		fmt.Fprintf(&b, "  failures: %d\n", s.ProjectionFailures)
	}
	fmt.Fprintf(&b, "  took:     %s", s.Duration)
	if s.Warning != "" {
		fmt.Fprintf(&b, "\n  warning:  %s", s.Warning)
	}
	return b.String()
}
