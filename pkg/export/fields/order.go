package fields

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/export"
)

// Fallback values for orders missing related entities.
const (
	GuestCustomer     = "Guest"
	NoShippingAddress = "No Shipping Address"
)

// currencySymbols maps ISO currency codes to display symbols.
var currencySymbols = map[string]string{
	"ZAR": "R",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// CurrencySymbol returns the display symbol of a currency, or the code
// itself when no symbol is known.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return s
	}
	return code
}

// OrderFieldIDs returns the fixed gift card field list.
func OrderFieldIDs() []string {
	return []string{"number", "customer_name", "address", "total"}
}

var orderFields = map[string]Descriptor{
	"number": orderField("number", true, func(o *catalog.Order) (export.Value, error) {
		return export.Text(o.Number), nil
	}),
	"customer_name": orderField("customer_name", false, func(o *catalog.Order) (export.Value, error) {
		if o.User == nil {
			return export.Text(GuestCustomer), nil
		}
		return export.Text(o.User.FullName()), nil
	}),
	"address": orderField("address", false, func(o *catalog.Order) (export.Value, error) {
		a := o.ShippingAddress
		if a == nil {
			return export.Text(NoShippingAddress), nil
		}
		return export.Text(fmt.Sprintf("%s, %s, %s", a.StreetAddress1, a.City, a.Country)), nil
	}),
	"total": orderField("total", false, func(o *catalog.Order) (export.Value, error) {
		amount, err := formatAmount(o.Total.Amount)
		if err != nil {
			return amount, err
		}
		symbol := CurrencySymbol(o.Total.Currency)
		if symbol == "" {
			return amount, nil
		}
		return export.Text(symbol + " " + amount.String()), nil
	}),
}

func orderField(id string, required bool, fn func(*catalog.Order) (export.Value, error)) Descriptor {
	return Descriptor{
		ID:       id,
		Header:   id,
		Required: required,
		project: func(record any) (export.Value, error) {
			return fn(record.(*catalog.Order))
		},
	}
}

func isOrder(record any) bool {
	o, ok := record.(*catalog.Order)
	return ok && o != nil
}

// orderColumns uses the fixed field list unless a subset is requested.
// Dynamic columns do not apply to orders.
func orderColumns(info export.ExportInfo, policy UnknownFieldPolicy) ([]Descriptor, error) {
	if len(info.Attributes) > 0 || len(info.Warehouses) > 0 || len(info.Channels) > 0 {
		return nil, errors.New("dynamic columns are not available for gift card exports")
	}
	requested := info.Fields
	if len(requested) == 0 {
		requested = OrderFieldIDs()
	}
	return resolveStatic(requested, orderFields, policy)
}
