package fields

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/export"
)

// Suffixes of the dynamic product column headers.
const (
	AttributeSuffix        = " (product attribute)"
	WarehouseSuffix        = " (warehouse quantity)"
	ChannelPublishedSuffix = " (channel published)"
	ChannelPriceSuffix     = " (channel price amount)"
	ChannelCurrencySuffix  = " (channel currency code)"
)

// productFields is the static registry of product fields.
var productFields = map[string]Descriptor{
	"id": productField("id", true, func(p *catalog.Product) (export.Value, error) {
		return export.Text(strconv.FormatInt(p.ID, 10)), nil
	}),
	"name": productField("name", false, func(p *catalog.Product) (export.Value, error) {
		return export.Text(p.Name), nil
	}),
	"price": productField("price", false, func(p *catalog.Product) (export.Value, error) {
		return formatAmount(p.Price.Amount)
	}),
	"description": productField("description", false, func(p *catalog.Product) (export.Value, error) {
		return export.Text(p.Description), nil
	}),
	"product_type": productField("product_type", false, func(p *catalog.Product) (export.Value, error) {
		return export.Text(p.ProductType), nil
	}),
	"category": productField("category", false, func(p *catalog.Product) (export.Value, error) {
		if p.Category == "" {
			return export.Missing, nil
		}
		return export.Text(p.Category), nil
	}),
	"collections": productField("collections", false, func(p *catalog.Product) (export.Value, error) {
		return export.Text(strings.Join(p.Collections, ", ")), nil
	}),
	"product_weight": productField("product_weight", false, func(p *catalog.Product) (export.Value, error) {
		if p.Weight == nil {
			return export.Missing, nil
		}
		return export.Text(strconv.FormatFloat(*p.Weight, 'f', -1, 64) + " kg"), nil
	}),
	"product_media": productField("product_media", false, func(p *catalog.Product) (export.Value, error) {
		return export.Text(strings.Join(p.Media, ", ")), nil
	}),
	"variant_sku": productField("variant_sku", false, func(p *catalog.Product) (export.Value, error) {
		skus := make([]string, 0, len(p.Variants))
		for _, v := range p.Variants {
			if v.SKU != "" {
				skus = append(skus, v.SKU)
			}
		}
		return export.Text(strings.Join(skus, ", ")), nil
	}),
	"variant_count": productField("variant_count", false, func(p *catalog.Product) (export.Value, error) {
		return export.Text(strconv.Itoa(len(p.Variants))), nil
	}),
	"updated_at": productField("updated_at", false, func(p *catalog.Product) (export.Value, error) {
		if p.UpdatedAt.IsZero() {
			return export.Missing, nil
		}
		return export.Text(p.UpdatedAt.UTC().Format(time.RFC3339)), nil
	}),
}

// ProductFieldIDs returns the identifiers of the static product fields.
func ProductFieldIDs() []string {
	return []string{
		"id", "name", "price", "description", "product_type", "category", "collections",
		"product_weight", "product_media", "variant_sku", "variant_count", "updated_at",
	}
}

func productField(id string, required bool, fn func(*catalog.Product) (export.Value, error)) Descriptor {
	return Descriptor{
		ID:       id,
		Header:   id,
		Required: required,
		project: func(record any) (export.Value, error) {
			return fn(record.(*catalog.Product))
		},
	}
}

func isProduct(record any) bool {
	p, ok := record.(*catalog.Product)
	return ok && p != nil
}

// productColumns resolves the requested static fields followed by the
// attribute, warehouse and channel columns.
func productColumns(info export.ExportInfo, policy UnknownFieldPolicy) ([]Descriptor, error) {
	columns, err := resolveStatic(info.Fields, productFields, policy)
	if err != nil {
		return nil, err
	}

	for _, slug := range dedupe(info.Attributes) {
		columns = append(columns, attributeColumn(slug))
	}
	for _, slug := range dedupe(info.Warehouses) {
		columns = append(columns, warehouseColumn(slug))
	}
	for _, slug := range dedupe(info.Channels) {
		columns = append(columns, channelColumns(slug)...)
	}
	return columns, nil
}

func attributeColumn(slug string) Descriptor {
	d := productField("attribute:"+slug, false, func(p *catalog.Product) (export.Value, error) {
		a, ok := p.Attribute(slug)
		if !ok {
			return export.Missing, nil
		}
		return export.Text(strings.Join(a.Values, ", ")), nil
	})
	d.Header = slug + AttributeSuffix
	return d
}

// warehouseColumn sums the stock of every variant held in the warehouse.
func warehouseColumn(slug string) Descriptor {
	d := productField("warehouse:"+slug, false, func(p *catalog.Product) (export.Value, error) {
		total, found := 0, false
		for _, v := range p.Variants {
			for _, s := range v.Stocks {
				if s.Warehouse == slug {
					total += s.Quantity
					found = true
				}
			}
		}
		if !found {
			return export.Missing, nil
		}
		return export.Text(strconv.Itoa(total)), nil
	})
	d.Header = slug + WarehouseSuffix
	return d
}

// channelColumns returns the published, price and currency columns of a
// channel. The price is the lowest variant price in the channel.
func channelColumns(slug string) []Descriptor {
	published := productField("channel:"+slug+":published", false, func(p *catalog.Product) (export.Value, error) {
		listing, ok := p.Channel(slug)
		if !ok {
			return export.Missing, nil
		}
		return export.Text(strconv.FormatBool(listing.Published)), nil
	})
	published.Header = slug + ChannelPublishedSuffix

	price := productField("channel:"+slug+":price", false, func(p *catalog.Product) (export.Value, error) {
		lowest, found := math.Inf(1), false
		for _, v := range p.Variants {
			for _, vp := range v.Prices {
				if vp.Channel == slug && vp.Price.Amount < lowest {
					lowest = vp.Price.Amount
					found = true
				}
			}
		}
		if !found {
			return export.Missing, nil
		}
		return formatAmount(lowest)
	})
	price.Header = slug + ChannelPriceSuffix

	currency := productField("channel:"+slug+":currency", false, func(p *catalog.Product) (export.Value, error) {
		listing, ok := p.Channel(slug)
		if !ok || listing.Currency == "" {
			return export.Missing, nil
		}
		return export.Text(listing.Currency), nil
	})
	currency.Header = slug + ChannelCurrencySuffix

	return []Descriptor{published, price, currency}
}

// formatAmount renders a money amount with two decimals.
func formatAmount(amount float64) (export.Value, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return export.Missing, fmt.Errorf("invalid amount %v", amount)
	}
	return export.Text(strconv.FormatFloat(amount, 'f', 2, 64)), nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
