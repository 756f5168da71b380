package export

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"mercator-hq/tabula/pkg/catalog"
)

// TargetKind is the kind of artifact an export produces.
type TargetKind string

const (
	// KindProduct exports products.
	KindProduct TargetKind = "product"

	// KindGiftCard exports orders in the gift card layout.
	KindGiftCard TargetKind = "gift_card"
)

// ParseKind parses a target kind. "order" is accepted as an alias of
// gift_card.
func ParseKind(s string) (TargetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "product", "products":
		return KindProduct, nil
	case "gift_card", "gift_cards", "order", "orders":
		return KindGiftCard, nil
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

// Valid reports whether k is a known kind.
func (k TargetKind) Valid() bool {
	return k == KindProduct || k == KindGiftCard
}

// Label is the human readable artifact label passed to notifications.
func (k TargetKind) Label() string {
	if k == KindGiftCard {
		return "gift cards"
	}
	return "products"
}

// CatalogKind returns the record kind the export reads.
func (k TargetKind) CatalogKind() catalog.Kind {
	if k == KindGiftCard {
		return catalog.KindOrder
	}
	return catalog.KindProduct
}

// FileType is the output file format.
type FileType string

const (
	FileCSV  FileType = "csv"
	FileXLSX FileType = "xlsx"
)

// ParseFileType parses a file type, case-insensitively.
func ParseFileType(s string) (FileType, error) {
	switch FileType(strings.ToLower(strings.TrimSpace(s))) {
	case FileCSV:
		return FileCSV, nil
	case FileXLSX:
		return FileXLSX, nil
	}
	return "", fmt.Errorf("unknown file type %q", s)
}

// Extension returns the file name extension without the dot.
func (f FileType) Extension() string {
	return string(f)
}

// ContentType returns the MIME type of the format.
func (f FileType) ContentType() string {
	if f == FileXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Scope selects the records to export: explicit ids or a filter. A nil IDs
// slice and an empty filter select every record. A non-nil, empty IDs slice
// selects nothing.
type Scope struct {
	IDs    []int64        `json:"ids,omitempty"`
	Filter map[string]any `json:"filter,omitempty"`
}

// HasIDs reports whether the scope lists explicit ids.
func (s Scope) HasIDs() bool {
	return s.IDs != nil
}

// ExportInfo lists the columns requested for an export. Attributes,
// Warehouses and Channels are slugs that each produce dynamic columns.
type ExportInfo struct {
	Fields     []string `json:"fields,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Warehouses []string `json:"warehouses,omitempty"`
	Channels   []string `json:"channels,omitempty"`
}

// DefaultDelimiter separates csv columns when a request sets none.
const DefaultDelimiter = ','

// Request describes one export. Treat it as immutable once validated.
type Request struct {
	// ID identifies the export in logs and traces. Generated when empty.
	ID        string
	Kind      TargetKind
	Scope     Scope
	Info      ExportInfo
	FileType  FileType
	Delimiter rune

	// Recipient is the e-mail address notified when the export completes.
	Recipient string
}

// ApplyDefaults fills unset optional fields.
func (r *Request) ApplyDefaults() {
	if r.FileType == "" {
		r.FileType = FileCSV
	}
	if r.Delimiter == 0 {
		r.Delimiter = DefaultDelimiter
	}
}

// Validate checks the request. Scope contents are checked by the scope
// resolver. The delimiter is only checked for csv; xlsx ignores it.
func (r *Request) Validate() error {
	if !r.Kind.Valid() {
		return NewError(InvalidRequest, StateCreated, fmt.Errorf("unknown export kind %q", r.Kind))
	}
	if r.FileType != FileCSV && r.FileType != FileXLSX {
		return NewError(InvalidRequest, StateCreated, fmt.Errorf("unknown file type %q", r.FileType))
	}
	if r.Scope.HasIDs() && len(r.Scope.Filter) > 0 {
		return NewError(MalformedScope, StateCreated, errors.New("scope sets both ids and filter"))
	}
	if r.FileType == FileCSV {
		if err := ValidateDelimiter(r.Delimiter); err != nil {
			return NewError(InvalidRequest, StateCreated, err)
		}
	}
	return nil
}

// ValidateDelimiter checks that d can separate csv columns.
func ValidateDelimiter(d rune) error {
	if d == '"' || d == '\r' || d == '\n' || !utf8.ValidRune(d) || d == utf8.RuneError {
		return fmt.Errorf("invalid delimiter %q", d)
	}
	return nil
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	c := *r
	if r.Scope.IDs != nil {
		c.Scope.IDs = append([]int64{}, r.Scope.IDs...)
	}
	if r.Scope.Filter != nil {
		c.Scope.Filter = make(map[string]any, len(r.Scope.Filter))
		for k, v := range r.Scope.Filter {
			c.Scope.Filter[k] = v
		}
	}
	c.Info.Fields = append([]string(nil), r.Info.Fields...)
	c.Info.Attributes = append([]string(nil), r.Info.Attributes...)
	c.Info.Warehouses = append([]string(nil), r.Info.Warehouses...)
	c.Info.Channels = append([]string(nil), r.Info.Channels...)
	return &c
}
