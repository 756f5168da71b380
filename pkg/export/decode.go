package export

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// payload is the JSON task payload accepted by DecodeRequest.
type payload struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Scope struct {
		IDs    []any          `json:"ids"`
		Filter map[string]any `json:"filter"`
	} `json:"scope"`
	ExportInfo ExportInfo `json:"export_info"`
	FileType   string     `json:"file_type"`
	Delimiter  string     `json:"delimiter"`
	Recipient  string     `json:"recipient"`
}

// DecodeRequest parses a JSON task payload into a validated request with
// defaults applied. Ids may be numbers or numeric strings.
func DecodeRequest(data []byte) (*Request, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, NewError(InvalidRequest, StateCreated, fmt.Errorf("failed to decode payload: %w", err))
	}

	kind, err := ParseKind(p.Kind)
	if err != nil {
		return nil, NewError(InvalidRequest, StateCreated, err)
	}

	req := &Request{
		ID:        p.ID,
		Kind:      kind,
		Info:      p.ExportInfo,
		Recipient: p.Recipient,
	}

	if p.FileType != "" {
		if req.FileType, err = ParseFileType(p.FileType); err != nil {
			return nil, NewError(InvalidRequest, StateCreated, err)
		}
	}

	if p.Delimiter != "" && req.FileType != FileXLSX {
		if utf8.RuneCountInString(p.Delimiter) != 1 {
			return nil, NewError(InvalidRequest, StateCreated, fmt.Errorf("delimiter must be a single character, got %q", p.Delimiter))
		}
		req.Delimiter, _ = utf8.DecodeRuneInString(p.Delimiter)
	}

	if p.Scope.IDs != nil {
		req.Scope.IDs, err = CoerceIDs(p.Scope.IDs)
		if err != nil {
			return nil, NewError(MalformedScope, StateCreated, err)
		}
	}
	req.Scope.Filter = p.Scope.Filter

	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// CoerceIDs converts JSON ids (numbers or numeric strings) to int64. The
// result is non-nil even when raw is empty.
func CoerceIDs(raw []any) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case float64:
			if x != float64(int64(x)) {
				return nil, fmt.Errorf("id at index %d is not an integer: %v", i, v)
			}
		case bool, nil:
			return nil, fmt.Errorf("id at index %d is not a number: %v", i, v)
		}
		id, err := cast.ToInt64E(v)
		if err != nil {
			return nil, fmt.Errorf("id at index %d: %w", i, err)
		}
		if id <= 0 {
			return nil, fmt.Errorf("id at index %d must be positive, got %d", i, id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
