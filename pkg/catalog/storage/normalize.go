package storage

import (
	"time"

	"mercator-hq/tabula/pkg/catalog"
)

// normalizeProduct returns a copy of p with UTC timestamps and canonical
// date-time attribute values.
func normalizeProduct(p *catalog.Product) *catalog.Product {
	c := p.Clone()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	for i, a := range c.Attributes {
		if a.InputType != catalog.InputDateTime {
			continue
		}
		for j, v := range a.Values {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				c.Attributes[i].Values[j] = t.UTC().Format(catalog.DateTimeLayout)
			}
		}
	}
	return c
}

func normalizeOrder(o *catalog.Order) *catalog.Order {
	c := o.Clone()
	c.CreatedAt = c.CreatedAt.UTC()
	return c
}
