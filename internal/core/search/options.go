package search

import (
	"slices"
	"strings"

	"rental-system/internal/core/domain"
)

// Options describes the value ranges present in listings.
func Options(listings []domain.Property) domain.FilterOptions {
	opts := domain.FilterOptions{
		Locations:     []string{},
		PropertyTypes: []domain.PropertyType{},
		Bedrooms:      []int{},
		Count:         len(listings),
	}
	if len(listings) == 0 {
		return opts
	}

	locations := make(map[string]struct{})
	types := make(map[domain.PropertyType]struct{})
	bedrooms := make(map[int]struct{})

	opts.PriceMin, opts.PriceMax = listings[0].Price, listings[0].Price
	opts.SizeMin, opts.SizeMax = listings[0].Size, listings[0].Size

	for _, p := range listings {
		opts.PriceMin = min(opts.PriceMin, p.Price)
		opts.PriceMax = max(opts.PriceMax, p.Price)
		opts.SizeMin = min(opts.SizeMin, p.Size)
		opts.SizeMax = max(opts.SizeMax, p.Size)

		if loc := strings.TrimSpace(p.Location); loc != "" {
			locations[loc] = struct{}{}
		}
		if p.PropertyType != "" {
			types[p.PropertyType] = struct{}{}
		}
		bedrooms[p.Bedrooms] = struct{}{}
	}

	for loc := range locations {
		opts.Locations = append(opts.Locations, loc)
	}
	slices.Sort(opts.Locations)

	// keep the enum's display order
	for _, t := range domain.PropertyTypes {
		if _, ok := types[t]; ok {
			opts.PropertyTypes = append(opts.PropertyTypes, t)
		}
	}

	for n := range bedrooms {
		opts.Bedrooms = append(opts.Bedrooms, n)
	}
	slices.Sort(opts.Bedrooms)

	return opts
}
