// Package search filters and orders an in-memory listing collection.
// Everything here is pure: no I/O, inputs are never mutated, and the same
// input always produces the same output.
package search

import (
	"cmp"
	"slices"
	"strings"

	"rental-system/internal/core/domain"

	"golang.org/x/text/cases"
)

// Apply filters listings and sorts the survivors.
func Apply(listings []domain.Property, filters domain.SearchFilters, order domain.SortOrder) []domain.Property {
	return Sort(Filter(listings, filters), order)
}

// Filter returns the listings that satisfy every active criterion, in input order.
func Filter(listings []domain.Property, filters domain.SearchFilters) []domain.Property {
	m := newMatcher(filters)
	out := make([]domain.Property, 0, len(listings))
	for _, p := range listings {
		if m.matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Sort returns a stably sorted copy. Unknown or empty orders fall back to newest first.
func Sort(listings []domain.Property, order domain.SortOrder) []domain.Property {
	out := slices.Clone(listings)
	slices.SortStableFunc(out, comparator(order))
	return out
}

func comparator(order domain.SortOrder) func(a, b domain.Property) int {
	switch order {
	case domain.SortPriceAsc:
		return func(a, b domain.Property) int { return cmp.Compare(a.Price, b.Price) }
	case domain.SortPriceDesc:
		return func(a, b domain.Property) int { return cmp.Compare(b.Price, a.Price) }
	case domain.SortDateAsc:
		return func(a, b domain.Property) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return func(a, b domain.Property) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
}

// matcher holds the folded query strings so they are computed once per Filter call.
type matcher struct {
	f            domain.SearchFilters
	fold         cases.Caser
	query        string
	location     string
	propertyType string
}

func newMatcher(f domain.SearchFilters) *matcher {
	fold := cases.Fold()
	propertyType := strings.ToLower(strings.TrimSpace(f.PropertyType))
	if propertyType == domain.PropertyTypeAll {
		propertyType = ""
	}
	return &matcher{
		f:            f,
		fold:         fold,
		query:        fold.String(strings.TrimSpace(f.Query)),
		location:     fold.String(strings.TrimSpace(f.Location)),
		propertyType: propertyType,
	}
}

func (m *matcher) matches(p domain.Property) bool {
	if m.query != "" && !m.matchesQuery(p) {
		return false
	}
	if m.location != "" && m.fold.String(strings.TrimSpace(p.Location)) != m.location {
		return false
	}
	if m.f.MinPrice != nil && p.Price < *m.f.MinPrice {
		return false
	}
	if m.f.MaxPrice != nil && p.Price > *m.f.MaxPrice {
		return false
	}
	// "N+ rooms"
	if m.f.Bedrooms != nil && p.Bedrooms < *m.f.Bedrooms {
		return false
	}
	if m.f.MinSize != nil && p.Size < *m.f.MinSize {
		return false
	}
	if m.propertyType != "" && string(p.PropertyType) != m.propertyType {
		return false
	}
	if m.f.LandlordID != "" && p.LandlordID != m.f.LandlordID {
		return false
	}
	if m.f.AvailableBy != nil {
		if !p.Available {
			return false
		}
		if p.AvailableFrom != nil && p.AvailableFrom.After(*m.f.AvailableBy) {
			return false
		}
	}
	return true
}

func (m *matcher) matchesQuery(p domain.Property) bool {
	fields := []string{p.Title, p.Description, p.Location}
	if p.Address != nil {
		fields = append(fields, *p.Address)
	}
	fields = append(fields, p.Amenities...)
	for _, s := range fields {
		if strings.Contains(m.fold.String(s), m.query) {
			return true
		}
	}
	return false
}
