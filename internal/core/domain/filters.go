package domain

import (
	"fmt"
	"strings"
	"time"
)

// PropertyTypeAll disables the property type filter.
const PropertyTypeAll = "all"

// SearchFilters is the browsing criteria a user holds while searching.
// Nil pointers and empty strings mean "not set".
type SearchFilters struct {
	Query        string
	Location     string
	MinPrice     *float64
	MaxPrice     *float64
	Bedrooms     *int
	MinSize      *float64
	PropertyType string
	AvailableBy  *time.Time
	// LandlordID restricts results to one landlord's listings.
	LandlordID string
}

// SortOrder selects the ordering of search results.
type SortOrder string

const (
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortDateAsc   SortOrder = "date_asc"
	SortDateDesc  SortOrder = "date_desc"

	DefaultSortOrder = SortDateDesc
)

// ParseSortOrder accepts the canonical names plus the newest/oldest aliases.
// An empty string yields the default order.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultSortOrder, nil
	case string(SortPriceAsc):
		return SortPriceAsc, nil
	case string(SortPriceDesc):
		return SortPriceDesc, nil
	case string(SortDateAsc), "oldest":
		return SortDateAsc, nil
	case string(SortDateDesc), "newest":
		return SortDateDesc, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// FilterOptions summarises what a listing collection offers, for building filter controls.
type FilterOptions struct {
	Locations     []string
	PropertyTypes []PropertyType
	Bedrooms      []int
	PriceMin      float64
	PriceMax      float64
	SizeMin       float64
	SizeMax       float64
	Count         int
}
