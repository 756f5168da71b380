package scope

import (
	"fmt"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
	"github.com/spf13/cast"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/export"
)

// asMap returns v as a string-keyed map.
func asMap(key string, v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected an object, got %T", key, v)
	}
	return m, nil
}

// asList returns v as a list. A scalar is treated as a one-element list.
func asList(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case []int64:
		out := make([]any, len(x))
		for i, id := range x {
			out[i] = id
		}
		return out
	}
	return []any{v}
}

func stringList(key string, v any) ([]string, error) {
	raw := asList(v)
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		switch item.(type) {
		case map[string]any, []any, nil:
			return nil, fmt.Errorf("%s[%d]: expected a string, got %T", key, i, item)
		}
		s, err := cast.ToStringE(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func idList(key string, v any) ([]int64, error) {
	ids, err := export.CoerceIDs(asList(v))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return ids, nil
}

func floatRange(key string, v any) (*catalog.FloatRange, error) {
	m, err := asMap(key, v)
	if err != nil {
		return nil, err
	}
	r := &catalog.FloatRange{}
	for k, raw := range m {
		if blankBound(raw) {
			continue
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", key, k, err)
		}
		switch k {
		case "gte":
			r.Gte = &f
		case "lte":
			r.Lte = &f
		default:
			return nil, fmt.Errorf("%s: unknown bound %q", key, k)
		}
	}
	return r, nil
}

// blankBound reports whether a range bound is unset. Null and blank
// strings leave that side of the range open.
func blankBound(raw any) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	return ok && strings.TrimSpace(s) == ""
}

// timeRange parses the gte/lte bounds of a range with parse.
func timeRange(key string, v any, parse func(string) (time.Time, error)) (*catalog.TimeRange, error) {
	m, err := asMap(key, v)
	if err != nil {
		return nil, err
	}
	r := &catalog.TimeRange{}
	for k, raw := range m {
		if blankBound(raw) {
			continue
		}
		var t time.Time
		switch x := raw.(type) {
		case time.Time:
			t = x
		case string:
			t, err = parse(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", key, k, err)
			}
		default:
			return nil, fmt.Errorf("%s.%s: expected a string, got %T", key, k, raw)
		}
		switch k {
		case "gte":
			r.Gte = &t
		case "lte":
			r.Lte = &t
		default:
			return nil, fmt.Errorf("%s: unknown bound %q", key, k)
		}
	}
	if r.Gte != nil && r.Lte != nil && r.Gte.After(*r.Lte) {
		return nil, fmt.Errorf("%s: gte is after lte", key)
	}
	return r, nil
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(catalog.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseDateTime parses an ISO-8601 date-time. Values without a zone are
// taken as UTC.
func ParseDateTime(s string) (time.Time, error) {
	t, err := iso8601.ParseString(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date time %q: %w", s, err)
	}
	return t.UTC(), nil
}
