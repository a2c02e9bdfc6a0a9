package search

import (
	"rental-system/internal/core/domain"
	"slices"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func ids(props []domain.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.ID
	}
	return out
}

func TestApplyMinPriceDateDesc(t *testing.T) {
	listings := []domain.Property{
		{ID: "t1", Price: 5000, CreatedAt: t0},
		{ID: "t2", Price: 9000, CreatedAt: t0.Add(time.Hour)},
		{ID: "t3", Price: 5000, CreatedAt: t0.Add(2 * time.Hour)},
	}

	got := Apply(listings, domain.SearchFilters{MinPrice: ptr(5000.0)}, domain.SortDateDesc)
	if want := []string{"t3", "t2", "t1"}; !slices.Equal(ids(got), want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
}

func TestBedroomsIsAtLeast(t *testing.T) {
	listings := []domain.Property{
		{ID: "two", Bedrooms: 2},
		{ID: "three", Bedrooms: 3},
		{ID: "four", Bedrooms: 4},
	}

	got := Filter(listings, domain.SearchFilters{Bedrooms: ptr(3)})
	if want := []string{"three", "four"}; !slices.Equal(ids(got), want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
}

func TestFilterCriteria(t *testing.T) {
	addr := "Nørregade 12"
	listings := []domain.Property{
		{ID: "a", LandlordID: "l1", Title: "Harbour flat", Description: "Sunny", Location: "Aarhus C", Price: 8000, Bedrooms: 2, Size: 60,
			PropertyType: domain.PropertyTypeApartment, Amenities: []string{"Balcony"}, Available: true, AvailableFrom: ptr(t0)},
		{ID: "b", LandlordID: "l2", Title: "Family house", Description: "Garden", Location: "Odense", Address: &addr, Price: 15000, Bedrooms: 4, Size: 140,
			PropertyType: domain.PropertyTypeHouse, Available: true, AvailableFrom: ptr(t0.AddDate(0, 2, 0))},
		{ID: "c", LandlordID: "l1", Title: "Room", Description: "Shared kitchen", Location: "aarhus c ", Price: 4000, Bedrooms: 1, Size: 15,
			PropertyType: domain.PropertyTypeRoom, Available: false},
		{ID: "d", LandlordID: "l2", Title: "Studio", Description: "Central", Location: "Aarhus C", Price: 6000, Bedrooms: 1, Size: 30,
			PropertyType: domain.PropertyTypeStudio, Available: true},
	}

	cases := []struct {
		name    string
		filters domain.SearchFilters
		want    []string
	}{
		{"no filters", domain.SearchFilters{}, []string{"a", "b", "c", "d"}},
		{"query hits title case-insensitively", domain.SearchFilters{Query: "HARBOUR"}, []string{"a"}},
		{"query hits amenities", domain.SearchFilters{Query: "balc"}, []string{"a"}},
		{"query hits address", domain.SearchFilters{Query: "nørregade"}, []string{"b"}},
		{"query hits description", domain.SearchFilters{Query: "kitchen"}, []string{"c"}},
		{"location is exact after folding", domain.SearchFilters{Location: " AARHUS C"}, []string{"a", "c", "d"}},
		{"location is not a substring match", domain.SearchFilters{Location: "Aarhus"}, []string{}},
		{"price range inclusive", domain.SearchFilters{MinPrice: ptr(6000.0), MaxPrice: ptr(8000.0)}, []string{"a", "d"}},
		{"min size", domain.SearchFilters{MinSize: ptr(60.0)}, []string{"a", "b"}},
		{"property type", domain.SearchFilters{PropertyType: "house"}, []string{"b"}},
		{"property type all", domain.SearchFilters{PropertyType: domain.PropertyTypeAll}, []string{"a", "b", "c", "d"}},
		{"property type ignores case", domain.SearchFilters{PropertyType: " House"}, []string{"b"}},
		{"property type ALL", domain.SearchFilters{PropertyType: "ALL"}, []string{"a", "b", "c", "d"}},
		{"landlord", domain.SearchFilters{LandlordID: "l1"}, []string{"a", "c"}},
		{"landlord without listings", domain.SearchFilters{LandlordID: "l9"}, []string{}},
		{"landlord and price", domain.SearchFilters{LandlordID: "l2", MaxPrice: ptr(10000.0)}, []string{"d"}},
		{"available by", domain.SearchFilters{AvailableBy: ptr(t0.AddDate(0, 1, 0))}, []string{"a", "d"}},
		{"conjunction", domain.SearchFilters{Location: "aarhus c", MaxPrice: ptr(7000.0), Bedrooms: ptr(1)}, []string{"c", "d"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(Filter(listings, tc.filters)); !slices.Equal(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSortOrders(t *testing.T) {
	listings := []domain.Property{
		{ID: "mid", Price: 7000, CreatedAt: t0.Add(time.Hour)},
		{ID: "cheap", Price: 3000, CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "dear", Price: 9000, CreatedAt: t0},
	}

	cases := map[domain.SortOrder][]string{
		domain.SortPriceAsc:  {"cheap", "mid", "dear"},
		domain.SortPriceDesc: {"dear", "mid", "cheap"},
		domain.SortDateAsc:   {"dear", "mid", "cheap"},
		domain.SortDateDesc:  {"cheap", "mid", "dear"},
		"":                   {"cheap", "mid", "dear"},
	}
	for order, want := range cases {
		if got := ids(Sort(listings, order)); !slices.Equal(got, want) {
			t.Errorf("%q: got %v, want %v", order, got, want)
		}
	}
	if ids(listings)[0] != "mid" {
		t.Fatal("Sort reordered its input")
	}
}

func TestParseSortOrderAliases(t *testing.T) {
	for in, want := range map[string]domain.SortOrder{"newest": domain.SortDateDesc, "OLDEST": domain.SortDateAsc, "": domain.SortDateDesc, "price_asc": domain.SortPriceAsc} {
		got, err := domain.ParseSortOrder(in)
		if err != nil || got != want {
			t.Errorf("%q: %q, %v", in, got, err)
		}
	}
	if _, err := domain.ParseSortOrder("cheapest"); err == nil {
		t.Error("unknown order accepted")
	}
}

func TestOptions(t *testing.T) {
	opts := Options([]domain.Property{
		{Location: "Odense", PropertyType: domain.PropertyTypeHouse, Bedrooms: 4, Price: 15000, Size: 140},
		{Location: "Aarhus", PropertyType: domain.PropertyTypeApartment, Bedrooms: 2, Price: 8000, Size: 60},
		{Location: "Aarhus", PropertyType: domain.PropertyTypeApartment, Bedrooms: 2, Price: 9000, Size: 15},
	})

	if !slices.Equal(opts.Locations, []string{"Aarhus", "Odense"}) {
		t.Errorf("locations = %v", opts.Locations)
	}
	if !slices.Equal(opts.PropertyTypes, []domain.PropertyType{domain.PropertyTypeApartment, domain.PropertyTypeHouse}) {
		t.Errorf("types = %v", opts.PropertyTypes)
	}
	if !slices.Equal(opts.Bedrooms, []int{2, 4}) {
		t.Errorf("bedrooms = %v", opts.Bedrooms)
	}
	if opts.PriceMin != 8000 || opts.PriceMax != 15000 || opts.SizeMin != 15 || opts.SizeMax != 140 || opts.Count != 3 {
		t.Errorf("ranges = %+v", opts)
	}

	empty := Options(nil)
	if empty.Count != 0 || empty.Locations == nil || empty.Bedrooms == nil {
		t.Errorf("empty = %+v", empty)
	}
}
