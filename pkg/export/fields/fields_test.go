package fields

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/export"
)

func mustBuild(t *testing.T, kind export.TargetKind, info export.ExportInfo, policy UnknownFieldPolicy) *Projector {
	t.Helper()
	p, err := Build(kind, info, policy)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return p
}

func project(t *testing.T, p *Projector, record any) []string {
	t.Helper()
	row, err := p.Project(record)
	if err != nil {
		t.Fatalf("Project() failed: %v", err)
	}
	if len(row) != len(p.Headers()) {
		t.Fatalf("row has %d values for %d headers", len(row), len(p.Headers()))
	}
	return row.Strings()
}

func sampleProduct() *catalog.Product {
	weight := 0.5
	return &catalog.Product{
		ID: 42, Name: "Blue Hoodie", ProductType: "apparel", Category: "hoodies",
		Collections: []string{"winter", "sale"},
		Price:       catalog.Money{Amount: 40, Currency: "USD"},
		Weight:      &weight,
		Media:       []string{"a.png", "b.png"},
		Attributes:  []catalog.AttributeValue{{Slug: "color", Values: []string{"blue", "navy"}}},
		Variants: []catalog.Variant{
			{
				SKU:    "H-M",
				Stocks: []catalog.Stock{{Warehouse: "eu", Quantity: 3}},
				Prices: []catalog.VariantPrice{{Channel: "web", Price: catalog.Money{Amount: 41.5, Currency: "USD"}}},
			},
			{
				SKU:    "H-L",
				Stocks: []catalog.Stock{{Warehouse: "eu", Quantity: 2}, {Warehouse: "us", Quantity: 0}},
				Prices: []catalog.VariantPrice{{Channel: "web", Price: catalog.Money{Amount: 39, Currency: "USD"}}},
			},
		},
		Channels:  []catalog.ChannelListing{{Channel: "web", Published: true, Currency: "USD"}},
		UpdatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestBuild_RequestedFieldsKeepOrder(t *testing.T) {
	p := mustBuild(t, export.KindProduct, export.ExportInfo{Fields: []string{"name", "price", "name"}}, RejectUnknown)
	if diff := cmp.Diff([]string{"name", "price"}, p.Headers()); diff != "" {
		t.Errorf("Headers() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Blue Hoodie", "40.00"}, project(t, p, sampleProduct())); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_AllProductFields(t *testing.T) {
	p := mustBuild(t, export.KindProduct, export.ExportInfo{
		Fields:     ProductFieldIDs(),
		Attributes: []string{"color", "size"},
		Warehouses: []string{"eu", "apac"},
		Channels:   []string{"web"},
	}, RejectUnknown)

	wantHeaders := []string{
		"id", "name", "price", "description", "product_type", "category", "collections",
		"product_weight", "product_media", "variant_sku", "variant_count", "updated_at",
		"color (product attribute)", "size (product attribute)",
		"eu (warehouse quantity)", "apac (warehouse quantity)",
		"web (channel published)", "web (channel price amount)", "web (channel currency code)",
	}
	if diff := cmp.Diff(wantHeaders, p.Headers()); diff != "" {
		t.Fatalf("Headers() mismatch (-want +got):\n%s", diff)
	}

	want := []string{
		"42", "Blue Hoodie", "40.00", "", "apparel", "hoodies", "winter, sale",
		"0.5 kg", "a.png, b.png", "H-M, H-L", "2", "2024-03-01T09:00:00Z",
		"blue, navy", " ",
		"5", " ",
		"true", "39.00", "USD",
	}
	if diff := cmp.Diff(want, project(t, p, sampleProduct())); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestProjector_MissingRelations(t *testing.T) {
	p := mustBuild(t, export.KindProduct, export.ExportInfo{
		Fields:   []string{"id", "category", "product_weight"},
		Channels: []string{"web"},
	}, RejectUnknown)

	bare := &catalog.Product{ID: 7}
	want := []string{"7", " ", " ", " ", " ", " "}
	if diff := cmp.Diff(want, project(t, p, bare)); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if p.Failures() != 0 {
		t.Errorf("absent data should not count as failure, got %d", p.Failures())
	}
}

func TestProjector_HeaderStability(t *testing.T) {
	p := mustBuild(t, export.KindProduct, export.ExportInfo{
		Fields:     []string{"name", "category"},
		Attributes: []string{"color"},
	}, RejectUnknown)

	records := []*catalog.Product{sampleProduct(), {ID: 1}, {ID: 2, Name: "x", Category: "c"}}
	for _, r := range records {
		row, err := p.Project(r)
		if err != nil {
			t.Fatalf("Project() failed: %v", err)
		}
		if len(row) != 3 {
			t.Errorf("row for %d has %d values, want 3", r.ID, len(row))
		}
	}
}

func TestProjector_DoesNotMutateRecord(t *testing.T) {
	p := mustBuild(t, export.KindProduct, export.ExportInfo{Fields: ProductFieldIDs(), Channels: []string{"web"}}, RejectUnknown)
	record := sampleProduct()
	before := record.Clone()
	project(t, p, record)
	if diff := cmp.Diff(before, record); diff != "" {
		t.Errorf("record mutated (-before +after):\n%s", diff)
	}
}

func TestBuild_UnknownFieldPolicy(t *testing.T) {
	info := export.ExportInfo{Fields: []string{"name", "colour"}}

	if _, err := Build(export.KindProduct, info, RejectUnknown); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Build() with reject = %v, want ErrUnknownField", err)
	}

	p := mustBuild(t, export.KindProduct, info, BlankUnknown)
	if diff := cmp.Diff([]string{"name", "colour"}, p.Headers()); diff != "" {
		t.Errorf("Headers() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Blue Hoodie", " "}, project(t, p, sampleProduct())); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_NoColumns(t *testing.T) {
	if _, err := Build(export.KindProduct, export.ExportInfo{}, RejectUnknown); !errors.Is(err, ErrNoColumns) {
		t.Errorf("Build() = %v, want ErrNoColumns", err)
	}
}

func TestBuild_GiftCardRejectsDynamicColumns(t *testing.T) {
	if _, err := Build(export.KindGiftCard, export.ExportInfo{Attributes: []string{"color"}}, RejectUnknown); err == nil {
		t.Error("expected error for attribute columns on gift cards")
	}
}

func TestOrderProjection(t *testing.T) {
	p := mustBuild(t, export.KindGiftCard, export.ExportInfo{}, RejectUnknown)
	if diff := cmp.Diff(OrderFieldIDs(), p.Headers()); diff != "" {
		t.Fatalf("Headers() mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name  string
		order *catalog.Order
		want  []string
	}{
		{
			"full order",
			&catalog.Order{
				Number:          "1001",
				User:            &catalog.User{Email: "ann@example.com", FirstName: "Ann", LastName: "Lee"},
				ShippingAddress: &catalog.Address{StreetAddress1: "1 Main St", City: "Cape Town", Country: "ZA"},
				Total:           catalog.Money{Amount: 150, Currency: "ZAR"},
			},
			[]string{"1001", "Ann Lee", "1 Main St, Cape Town, ZA", "R 150.00"},
		},
		{
			"guest without address",
			&catalog.Order{Number: "1002", Total: catalog.Money{Amount: 9.5, Currency: "USD"}},
			[]string{"1002", "Guest", "No Shipping Address", "$ 9.50"},
		},
		{
			"unknown currency",
			&catalog.Order{Number: "1003", User: &catalog.User{Email: "x@y.z"}, Total: catalog.Money{Amount: 1, Currency: "JPY"}},
			[]string{"1003", "x@y.z", "No Shipping Address", "JPY 1.00"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, project(t, p, tt.order)); diff != "" {
				t.Errorf("row mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProjector_WrongRecord(t *testing.T) {
	p := mustBuild(t, export.KindGiftCard, export.ExportInfo{}, RejectUnknown)
	for _, record := range []any{sampleProduct(), (*catalog.Order)(nil), nil} {
		_, err := p.Project(record)
		if !errors.Is(err, ErrWrongRecord) {
			t.Errorf("Project(%T) = %v, want ErrWrongRecord", record, err)
		}
	}
}

func TestProjector_PanicDegradesOptionalColumn(t *testing.T) {
	boom := func(any) (export.Value, error) { panic("boom") }
	p := &Projector{
		kind:    export.KindProduct,
		accepts: isProduct,
		logger:  slog.Default(),
		columns: []Descriptor{
			productFields["id"],
			{ID: "broken", Header: "broken", project: boom},
		},
	}

	row, err := p.Project(sampleProduct())
	if err != nil {
		t.Fatalf("Project() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"42", " "}, row.Strings()); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if p.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", p.Failures())
	}

	p.columns[1].Required = true
	var pe *ProjectionError
	if _, err := p.Project(sampleProduct()); !errors.As(err, &pe) || pe.Field != "broken" {
		t.Errorf("Project() = %v, want ProjectionError for broken", err)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != RejectUnknown {
		t.Errorf("ParsePolicy(\"\") = %q, %v", p, err)
	}
	if p, err := ParsePolicy("blank"); err != nil || p != BlankUnknown {
		t.Errorf("ParsePolicy(blank) = %q, %v", p, err)
	}
	if _, err := ParsePolicy("ignore"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
