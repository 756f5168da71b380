package catalog

import (
	"slices"
	"strings"
	"time"
)

// MatchProduct reports whether the product satisfies every criterion of the query.
func (q *Query) MatchProduct(p *Product) bool {
	if q.ByID && !slices.Contains(q.IDs, p.ID) {
		return false
	}
	return q.Products.Match(p)
}

// MatchOrder reports whether the order satisfies every criterion of the query.
func (q *Query) MatchOrder(o *Order) bool {
	if q.ByID && !slices.Contains(q.IDs, o.ID) {
		return false
	}
	return q.Orders.Match(o)
}

// Match reports whether p satisfies the filter. A nil filter matches all
// products.
func (f *ProductFilter) Match(p *Product) bool {
	if f == nil {
		return true
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
		return false
	}
	if f.IDs != nil && !slices.Contains(f.IDs, p.ID) {
		return false
	}
	if f.Categories != nil && !slices.Contains(f.Categories, p.Category) {
		return false
	}
	if f.ProductTypes != nil && !slices.Contains(f.ProductTypes, p.ProductType) {
		return false
	}
	if f.Collections != nil && !containsAny(f.Collections, p.Collections) {
		return false
	}
	if !f.Price.Contains(p.Price.Amount) {
		return false
	}
	if !f.UpdatedAt.Contains(p.UpdatedAt) {
		return false
	}
	for _, af := range f.Attributes {
		if !af.match(p) {
			return false
		}
	}
	return true
}

func (af *AttributeFilter) match(p *Product) bool {
	attr, ok := p.Attribute(af.Slug)
	if !ok {
		return false
	}
	for _, v := range attr.Values {
		switch {
		case af.Values != nil:
			if slices.Contains(af.Values, v) {
				return true
			}
		case af.Date != nil:
			t, err := time.Parse(DateLayout, v)
			if err == nil && af.Date.ContainsDate(t) {
				return true
			}
		case af.DateTime != nil:
			t, err := time.Parse(DateTimeLayout, v)
			if err == nil && af.DateTime.ContainsSecond(t) {
				return true
			}
		}
	}
	return false
}

// Match reports whether o satisfies the filter. A nil filter matches all
// orders.
func (f *OrderFilter) Match(o *Order) bool {
	if f == nil {
		return true
	}
	if f.IDs != nil && !slices.Contains(f.IDs, o.ID) {
		return false
	}
	if f.Numbers != nil && !slices.Contains(f.Numbers, o.Number) {
		return false
	}
	if f.Status != nil && !slices.Contains(f.Status, o.Status) {
		return false
	}
	if f.Customer != "" {
		if o.User == nil {
			return false
		}
		needle := strings.ToLower(f.Customer)
		if !strings.Contains(strings.ToLower(o.User.Email), needle) &&
			!strings.Contains(strings.ToLower(o.User.FirstName), needle) &&
			!strings.Contains(strings.ToLower(o.User.LastName), needle) {
			return false
		}
	}
	return f.Created.ContainsDate(o.CreatedAt)
}

func containsAny(want, have []string) bool {
	for _, h := range have {
		if slices.Contains(want, h) {
			return true
		}
	}
	return false
}
