package scope

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/export"
)

// decodeFilter decodes a filter the way task payloads arrive.
func decodeFilter(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad test filter: %v", err)
	}
	return m
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestResolver_ExplicitIDs(t *testing.T) {
	r := NewResolver()
	q, err := r.Resolve(context.Background(), export.KindProduct, export.Scope{IDs: []int64{3, 1, 2}})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	want := &catalog.Query{Kind: catalog.KindProduct, ByID: true, IDs: []int64{3, 1, 2}}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_EmptyScopeSelectsAll(t *testing.T) {
	q, err := NewResolver().Resolve(context.Background(), export.KindGiftCard, export.Scope{})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if q.Kind != catalog.KindOrder || q.ByID || q.Orders != nil {
		t.Errorf("Resolve() = %+v, want unfiltered order query", q)
	}
}

func TestResolver_ProductFilter(t *testing.T) {
	filter := decodeFilter(t, `{
		"search": " hoodie ",
		"ids": ["4", 5],
		"categories": ["hoodies"],
		"collections": "winter",
		"price": {"gte": "10", "lte": 99.5},
		"updated_at": {"gte": "2024-01-01T10:00:00+02:00"},
		"attributes": [
			{"slug": "color", "values": ["blue", "red"]},
			{"slug": "release", "date": {"gte": "2024-01-01", "lte": "2024-01-31"}},
			{"slug": "launch", "date_time": {"lte": "2024-01-15T10:30:00Z"}}
		]
	}`)

	q, err := NewResolver().Resolve(context.Background(), export.KindProduct, export.Scope{Filter: filter})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	gte, lte := 10.0, 99.5
	updated := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	launch := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	want := &catalog.ProductFilter{
		Search:      "hoodie",
		IDs:         []int64{4, 5},
		Categories:  []string{"hoodies"},
		Collections: []string{"winter"},
		Price:       &catalog.FloatRange{Gte: &gte, Lte: &lte},
		UpdatedAt:   &catalog.TimeRange{Gte: &updated},
		Attributes: []catalog.AttributeFilter{
			{Slug: "color", Values: []string{"blue", "red"}},
			{Slug: "release", Date: &catalog.TimeRange{Gte: date(2024, 1, 1), Lte: date(2024, 1, 31)}},
			{Slug: "launch", DateTime: &catalog.TimeRange{Lte: &launch}},
		},
	}
	if diff := cmp.Diff(want, q.Products); diff != "" {
		t.Errorf("product filter mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_OrderFilter(t *testing.T) {
	filter := decodeFilter(t, `{
		"numbers": ["1001"],
		"status": ["fulfilled"],
		"customer": "ann",
		"created": {"gte": "2024-05-01", "lte": "2024-05-01"}
	}`)

	q, err := NewResolver().Resolve(context.Background(), export.KindGiftCard, export.Scope{Filter: filter})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	want := &catalog.OrderFilter{
		Numbers:  []string{"1001"},
		Status:   []string{"fulfilled"},
		Customer: "ann",
		Created:  &catalog.TimeRange{Gte: date(2024, 5, 1), Lte: date(2024, 5, 1)},
	}
	if diff := cmp.Diff(want, q.Orders); diff != "" {
		t.Errorf("order filter mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_BlankBoundsAreOpen(t *testing.T) {
	filter := decodeFilter(t, `{
		"price": {"gte": "", "lte": 20},
		"updated_at": {"gte": "  ", "lte": null},
		"attributes": [{"slug": "release", "date": {"gte": "", "lte": "2024-01-31"}}]
	}`)

	q, err := NewResolver().Resolve(context.Background(), export.KindProduct, export.Scope{Filter: filter})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	lte := 20.0
	want := &catalog.ProductFilter{
		Price:     &catalog.FloatRange{Lte: &lte},
		UpdatedAt: &catalog.TimeRange{},
		Attributes: []catalog.AttributeFilter{
			{Slug: "release", Date: &catalog.TimeRange{Lte: date(2024, 1, 31)}},
		},
	}
	if diff := cmp.Diff(want, q.Products); diff != "" {
		t.Errorf("product filter mismatch (-want +got):\n%s", diff)
	}

	q, err = NewResolver().Resolve(context.Background(), export.KindGiftCard, export.Scope{
		Filter: decodeFilter(t, `{"created": {"gte": "", "lte": ""}}`),
	})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if diff := cmp.Diff(&catalog.TimeRange{}, q.Orders.Created); diff != "" {
		t.Errorf("created range mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_MalformedScope(t *testing.T) {
	tests := []struct {
		name   string
		kind   export.TargetKind
		filter string
	}{
		{"invalid date", export.KindProduct, `{"attributes": [{"slug": "release", "date": {"gte": "2024-99-99"}}]}`},
		{"invalid date time", export.KindProduct, `{"attributes": [{"slug": "launch", "date_time": {"gte": "yesterday"}}]}`},
		{"unknown key", export.KindProduct, `{"colour": "blue"}`},
		{"unknown bound", export.KindProduct, `{"price": {"gt": 1}}`},
		{"non numeric price", export.KindProduct, `{"price": {"gte": "cheap"}}`},
		{"non numeric id", export.KindProduct, `{"ids": ["x"]}`},
		{"attribute without slug", export.KindProduct, `{"attributes": [{"values": ["a"]}]}`},
		{"attributes not a list", export.KindProduct, `{"attributes": {"slug": "a"}}`},
		{"inverted range", export.KindGiftCard, `{"created": {"gte": "2024-02-01", "lte": "2024-01-01"}}`},
		{"product key on orders", export.KindGiftCard, `{"search": "x"}`},
		{"invalid created date", export.KindGiftCard, `{"created": {"gte": "2024-99-99"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver().Resolve(context.Background(), tt.kind, export.Scope{Filter: decodeFilter(t, tt.filter)})
			if got := export.KindOf(err); got != export.MalformedScope {
				t.Errorf("Resolve() kind = %q, want %q (err %v)", got, export.MalformedScope, err)
			}
		})
	}
}

func TestResolver_IDsAndFilter(t *testing.T) {
	_, err := NewResolver().Resolve(context.Background(), export.KindProduct, export.Scope{
		IDs:    []int64{1},
		Filter: map[string]any{"search": "x"},
	})
	if !export.IsKind(err, export.MalformedScope) {
		t.Errorf("Resolve() error = %v, want malformed scope", err)
	}
}

func TestParseDateTime_DefaultsToUTC(t *testing.T) {
	got, err := ParseDateTime("2024-01-15T10:30:00")
	if err != nil {
		t.Fatalf("ParseDateTime() failed: %v", err)
	}
	if want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseDateTime() = %v, want %v", got, want)
	}
}
