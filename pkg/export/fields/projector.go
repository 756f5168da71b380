package fields

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"mercator-hq/tabula/pkg/export"
)

// UnknownFieldPolicy decides what happens to requested field identifiers
// that are not in the registry.
type UnknownFieldPolicy string

const (
	// RejectUnknown fails Build with ErrUnknownField.
	RejectUnknown UnknownFieldPolicy = "reject"

	// BlankUnknown keeps the column and renders it as export.Missing.
	BlankUnknown UnknownFieldPolicy = "blank"
)

// ParsePolicy parses an unknown field policy. An empty string selects
// RejectUnknown.
func ParsePolicy(s string) (UnknownFieldPolicy, error) {
	switch UnknownFieldPolicy(s) {
	case "", RejectUnknown:
		return RejectUnknown, nil
	case BlankUnknown:
		return BlankUnknown, nil
	}
	return "", fmt.Errorf("unknown field policy %q", s)
}

var (
	// ErrUnknownField is returned by Build for an unregistered identifier.
	ErrUnknownField = errors.New("unknown field")

	// ErrNoColumns is returned by Build when nothing would be exported.
	ErrNoColumns = errors.New("no columns requested")

	// ErrWrongRecord is returned by Project for a record that does not
	// belong to the projector's kind.
	ErrWrongRecord = errors.New("record does not match export kind")
)

// Descriptor describes one column: its identifier, header label and the
// function rendering a record into the cell value.
type Descriptor struct {
	ID     string
	Header string

	// Required columns abort the export when projection fails; all other
	// columns degrade to export.Missing.
	Required bool

	project func(record any) (export.Value, error)
}

// ProjectionError reports a failed projection of a required column.
type ProjectionError struct {
	Field string
	Cause error
}

// Error implements the error interface.
func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection error [field=%s]: %v", e.Field, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ProjectionError) Unwrap() error {
	return e.Cause
}

// Projector renders records of one kind into rows with a fixed header.
type Projector struct {
	kind     export.TargetKind
	columns  []Descriptor
	accepts  func(record any) bool
	failures atomic.Int64
	logger   *slog.Logger
}

// Headers returns the header labels in column order.
func (p *Projector) Headers() []string {
	headers := make([]string, len(p.columns))
	for i, c := range p.columns {
		headers[i] = c.Header
	}
	return headers
}

// Kind returns the export kind the projector renders.
func (p *Projector) Kind() export.TargetKind {
	return p.kind
}

// Failures returns the number of cells degraded to Missing because their
// projection failed.
func (p *Projector) Failures() int64 {
	return p.failures.Load()
}

// Project renders one record. The record is never modified.
func (p *Projector) Project(record any) (export.Row, error) {
	if !p.accepts(record) {
		return nil, &ProjectionError{Field: "*", Cause: fmt.Errorf("%w: %T", ErrWrongRecord, record)}
	}

	row := make(export.Row, len(p.columns))
	for i, c := range p.columns {
		v, err := c.safeProject(record)
		if err != nil {
			if c.Required {
				return nil, &ProjectionError{Field: c.ID, Cause: err}
			}
			p.failures.Add(1)
			p.logger.Debug("field projection degraded to missing",
				"field", c.ID,
				"error", err,
			)
			v = export.Missing
		}
		row[i] = v
	}
	return row, nil
}

// safeProject converts a panicking projection into an error.
func (d Descriptor) safeProject(record any) (v export.Value, err error) {
	if d.project == nil {
		return export.Missing, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.project(record)
}

// Build creates the projector for an export of kind. Requested field
// identifiers keep their order; duplicates are dropped.
func Build(kind export.TargetKind, info export.ExportInfo, policy UnknownFieldPolicy) (*Projector, error) {
	if policy == "" {
		policy = RejectUnknown
	}

	var (
		columns []Descriptor
		err     error
		p       = &Projector{kind: kind}
	)

	switch kind {
	case export.KindProduct:
		columns, err = productColumns(info, policy)
		p.accepts = isProduct
	case export.KindGiftCard:
		columns, err = orderColumns(info, policy)
		p.accepts = isOrder
	default:
		return nil, fmt.Errorf("unknown export kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	p.columns = columns
	p.logger = slog.Default().With("component", "export.fields", "kind", string(kind))
	return p, nil
}

// resolveStatic resolves requested identifiers against a registry.
func resolveStatic(requested []string, registry map[string]Descriptor, policy UnknownFieldPolicy) ([]Descriptor, error) {
	seen := make(map[string]bool, len(requested))
	columns := make([]Descriptor, 0, len(requested))
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true

		d, ok := registry[id]
		if !ok {
			if policy != BlankUnknown {
				return nil, fmt.Errorf("%w %q", ErrUnknownField, id)
			}
			d = Descriptor{ID: id, Header: id}
		}
		columns = append(columns, d)
	}
	return columns, nil
}
