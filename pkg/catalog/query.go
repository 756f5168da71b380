package catalog

import (
	"errors"
	"fmt"
	"time"
)

// Query selects the records of one kind. Results are always ordered by
// ascending id.
type Query struct {
	// Kind is the record kind to select.
	Kind Kind

	// ByID restricts the selection to IDs. An empty IDs slice with ByID set
	// matches nothing.
	ByID bool
	IDs  []int64

	// Products filters product queries. Ignored unless Kind is KindProduct.
	Products *ProductFilter

	// Orders filters order queries. Ignored unless Kind is KindOrder.
	Orders *OrderFilter
}

// TimeRange is an inclusive time interval. Nil bounds are open.
type TimeRange struct {
	Gte *time.Time
	Lte *time.Time
}

// Contains reports whether t lies within the range.
func (r *TimeRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.Gte != nil && t.Before(*r.Gte) {
		return false
	}
	if r.Lte != nil && t.After(*r.Lte) {
		return false
	}
	return true
}

// ContainsDate reports whether the UTC calendar date of t lies within the
// range, comparing dates only.
func (r *TimeRange) ContainsDate(t time.Time) bool {
	if r == nil {
		return true
	}
	day := t.UTC().Format(DateLayout)
	if r.Gte != nil && day < r.Gte.UTC().Format(DateLayout) {
		return false
	}
	if r.Lte != nil && day > r.Lte.UTC().Format(DateLayout) {
		return false
	}
	return true
}

// ContainsSecond reports whether t lies within the range at whole-second
// precision, the precision date-time attribute values are stored at.
// Fractional seconds of t and of both bounds are dropped.
func (r *TimeRange) ContainsSecond(t time.Time) bool {
	if r == nil {
		return true
	}
	sec := t.UTC().Format(DateTimeLayout)
	if r.Gte != nil && sec < r.Gte.UTC().Format(DateTimeLayout) {
		return false
	}
	if r.Lte != nil && sec > r.Lte.UTC().Format(DateTimeLayout) {
		return false
	}
	return true
}

// FloatRange is an inclusive numeric interval. Nil bounds are open.
type FloatRange struct {
	Gte *float64
	Lte *float64
}

// Contains reports whether v lies within the range.
func (r *FloatRange) Contains(v float64) bool {
	if r == nil {
		return true
	}
	if r.Gte != nil && v < *r.Gte {
		return false
	}
	if r.Lte != nil && v > *r.Lte {
		return false
	}
	return true
}

// AttributeFilter matches products by the values of one attribute.
// Exactly one of Values, Date or DateTime is set.
type AttributeFilter struct {
	Slug     string
	Values   []string
	Date     *TimeRange
	DateTime *TimeRange
}

// ProductFilter narrows a product query. All set criteria must match.
type ProductFilter struct {
	// Search matches a case-insensitive substring of the product name.
	Search       string
	IDs          []int64
	Categories   []string
	Collections  []string
	ProductTypes []string
	Price        *FloatRange
	UpdatedAt    *TimeRange
	Attributes   []AttributeFilter
}

// OrderFilter narrows an order query. All set criteria must match.
type OrderFilter struct {
	IDs     []int64
	Numbers []string
	Status  []string

	// Customer matches a case-insensitive substring of the customer's
	// e-mail, first or last name.
	Customer string

	// Created compares the calendar date (UTC) the order was placed on.
	Created *TimeRange
}

// Validate checks that the query is well formed.
func (q *Query) Validate() error {
	if q == nil {
		return NewQueryError(nil, errors.New("query is nil"))
	}
	if !q.Kind.Valid() {
		return NewQueryError(q, fmt.Errorf("unknown record kind %q", q.Kind))
	}
	if q.Kind == KindProduct && q.Orders != nil {
		return NewQueryError(q, errors.New("order filter on a product query"))
	}
	if q.Kind == KindOrder && q.Products != nil {
		return NewQueryError(q, errors.New("product filter on an order query"))
	}
	if q.Products != nil {
		for i, a := range q.Products.Attributes {
			if a.Slug == "" {
				return NewQueryError(q, fmt.Errorf("attribute filter %d has no slug", i))
			}
			set := 0
			if a.Values != nil {
				set++
			}
			if a.Date != nil {
				set++
			}
			if a.DateTime != nil {
				set++
			}
			if set != 1 {
				return NewQueryError(q, fmt.Errorf("attribute filter %q must set exactly one of values, date or date_time", a.Slug))
			}
		}
	}
	return nil
}
