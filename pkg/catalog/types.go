package catalog

import (
	"strings"
	"time"
)

// Kind identifies the record type a query selects.
type Kind string

const (
	// KindProduct selects products.
	KindProduct Kind = "product"

	// KindOrder selects orders.
	KindOrder Kind = "order"
)

// Valid reports whether k names a known record kind.
func (k Kind) Valid() bool {
	return k == KindProduct || k == KindOrder
}

// Money is an amount in a currency.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// AttributeInputType describes how attribute values are stored.
type AttributeInputType string

const (
	InputDropdown AttributeInputType = "dropdown"
	InputNumeric  AttributeInputType = "numeric"
	InputDate     AttributeInputType = "date"
	InputDateTime AttributeInputType = "date_time"
)

// DateLayout and DateTimeLayout are the canonical text forms for date and
// date-time attribute values. Stored values are normalized to UTC with
// second precision so that text comparison matches time comparison.
const (
	DateLayout     = time.DateOnly
	DateTimeLayout = "2006-01-02T15:04:05Z"
)

// AttributeValue holds the values assigned to one attribute of a product.
type AttributeValue struct {
	Slug      string             `json:"slug"`
	InputType AttributeInputType `json:"input_type,omitempty"`
	Values    []string           `json:"values"`
}

// Stock is the quantity of a variant held by a warehouse.
type Stock struct {
	Warehouse string `json:"warehouse"`
	Quantity  int    `json:"quantity"`
}

// VariantPrice is the price of a variant in a channel.
type VariantPrice struct {
	Channel string `json:"channel"`
	Price   Money  `json:"price"`
}

// Variant is a purchasable variant of a product.
type Variant struct {
	SKU    string         `json:"sku"`
	Stocks []Stock        `json:"stocks,omitempty"`
	Prices []VariantPrice `json:"prices,omitempty"`
}

// ChannelListing describes the availability of a product in a channel.
type ChannelListing struct {
	Channel   string `json:"channel"`
	Published bool   `json:"published"`
	Currency  string `json:"currency"`
}

// Product is a catalog product with its related entities loaded.
type Product struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	ProductType string           `json:"product_type"`
	Category    string           `json:"category,omitempty"`
	Collections []string         `json:"collections,omitempty"`
	Price       Money            `json:"price"`
	Weight      *float64         `json:"weight,omitempty"`
	Media       []string         `json:"media,omitempty"`
	Attributes  []AttributeValue `json:"attributes,omitempty"`
	Variants    []Variant        `json:"variants,omitempty"`
	Channels    []ChannelListing `json:"channels,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Attribute returns the values of the attribute with the given slug.
func (p *Product) Attribute(slug string) (AttributeValue, bool) {
	for _, a := range p.Attributes {
		if a.Slug == slug {
			return a, true
		}
	}
	return AttributeValue{}, false
}

// Channel returns the listing of the product in the given channel.
func (p *Product) Channel(slug string) (ChannelListing, bool) {
	for _, c := range p.Channels {
		if c.Channel == slug {
			return c, true
		}
	}
	return ChannelListing{}, false
}

// User is the customer who placed an order.
type User struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// FullName returns "first last", falling back to the e-mail address when
// the user has no name.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Address is a postal address.
type Address struct {
	StreetAddress1 string `json:"street_address_1"`
	City           string `json:"city"`
	Country        string `json:"country"`
}

// Order is a placed order. User and ShippingAddress are optional.
type Order struct {
	ID              int64     `json:"id"`
	Number          string    `json:"number"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	User            *User     `json:"user,omitempty"`
	ShippingAddress *Address  `json:"shipping_address,omitempty"`
	Total           Money     `json:"total"`
}

// Clone returns a copy of p that shares no slices with it.
func (p *Product) Clone() *Product {
	c := *p
	c.Collections = append([]string(nil), p.Collections...)
	c.Media = append([]string(nil), p.Media...)
	if p.Weight != nil {
		w := *p.Weight
		c.Weight = &w
	}
	c.Attributes = make([]AttributeValue, len(p.Attributes))
	for i, a := range p.Attributes {
		a.Values = append([]string(nil), a.Values...)
		c.Attributes[i] = a
	}
	c.Variants = make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		v.Stocks = append([]Stock(nil), v.Stocks...)
		v.Prices = append([]VariantPrice(nil), v.Prices...)
		c.Variants[i] = v
	}
	c.Channels = append([]ChannelListing(nil), p.Channels...)
	return &c
}

// Clone returns a copy of o that shares no pointers with it.
func (o *Order) Clone() *Order {
	c := *o
	if o.User != nil {
		u := *o.User
		c.User = &u
	}
	if o.ShippingAddress != nil {
		a := *o.ShippingAddress
		c.ShippingAddress = &a
	}
	return &c
}
