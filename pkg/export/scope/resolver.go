package scope

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/export"
)

// Resolver converts request scopes into catalog queries.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		logger: slog.Default().With("component", "export.scope"),
	}
}

// Resolve builds the query selecting the records of kind described by s.
// Explicit ids take precedence; an empty scope selects every record.
func (r *Resolver) Resolve(ctx context.Context, kind export.TargetKind, s export.Scope) (*catalog.Query, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, export.NewError(export.InvalidRequest, export.StateCreated, fmt.Errorf("unknown export kind %q", kind))
	}
	if s.HasIDs() && len(s.Filter) > 0 {
		return nil, malformed(fmt.Errorf("scope sets both ids and filter"))
	}

	q := &catalog.Query{Kind: kind.CatalogKind()}

	switch {
	case s.HasIDs():
		q.ByID = true
		q.IDs = append([]int64{}, s.IDs...)
	case len(s.Filter) > 0:
		var err error
		switch q.Kind {
		case catalog.KindProduct:
			q.Products, err = parseProductFilter(s.Filter)
		case catalog.KindOrder:
			q.Orders, err = parseOrderFilter(s.Filter)
		}
		if err != nil {
			return nil, malformed(err)
		}
	}

	if err := q.Validate(); err != nil {
		return nil, malformed(err)
	}

	r.logger.Debug("scope resolved",
		"kind", kind,
		"by_id", q.ByID,
		"ids", len(q.IDs),
		"filter_keys", len(s.Filter),
	)
	return q, nil
}

func malformed(err error) error {
	return export.NewError(export.MalformedScope, export.StateCreated, err)
}

func parseProductFilter(raw map[string]any) (*catalog.ProductFilter, error) {
	f := &catalog.ProductFilter{}
	var err error
	for key, v := range raw {
		switch key {
		case "search":
			f.Search, err = searchTerm(key, v)
		case "ids":
			f.IDs, err = idList(key, v)
		case "categories":
			f.Categories, err = stringList(key, v)
		case "collections":
			f.Collections, err = stringList(key, v)
		case "product_types":
			f.ProductTypes, err = stringList(key, v)
		case "price":
			f.Price, err = floatRange(key, v)
		case "updated_at":
			f.UpdatedAt, err = timeRange(key, v, ParseDateTime)
		case "attributes":
			f.Attributes, err = attributeFilters(key, v)
		default:
			err = fmt.Errorf("unknown product filter %q", key)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func parseOrderFilter(raw map[string]any) (*catalog.OrderFilter, error) {
	f := &catalog.OrderFilter{}
	var err error
	for key, v := range raw {
		switch key {
		case "ids":
			f.IDs, err = idList(key, v)
		case "numbers":
			f.Numbers, err = stringList(key, v)
		case "status":
			f.Status, err = stringList(key, v)
		case "customer":
			f.Customer, err = searchTerm(key, v)
		case "created":
			f.Created, err = timeRange(key, v, ParseDate)
		default:
			err = fmt.Errorf("unknown order filter %q", key)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func searchTerm(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected a string, got %T", key, v)
	}
	return strings.TrimSpace(s), nil
}

// attributeFilters parses [{slug, values | date | date_time}].
func attributeFilters(key string, v any) ([]catalog.AttributeFilter, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected a list, got %T", key, v)
	}

	filters := make([]catalog.AttributeFilter, 0, len(items))
	for i, item := range items {
		itemKey := fmt.Sprintf("%s[%d]", key, i)
		m, err := asMap(itemKey, item)
		if err != nil {
			return nil, err
		}

		var af catalog.AttributeFilter
		for k, raw := range m {
			field := itemKey + "." + k
			switch k {
			case "slug":
				af.Slug, err = searchTerm(field, raw)
			case "values":
				af.Values, err = stringList(field, raw)
			case "date":
				af.Date, err = timeRange(field, raw, ParseDate)
			case "date_time":
				af.DateTime, err = timeRange(field, raw, ParseDateTime)
			default:
				err = fmt.Errorf("%s: unknown attribute filter key %q", itemKey, k)
			}
			if err != nil {
				return nil, err
			}
		}
		filters = append(filters, af)
	}
	return filters, nil
}
