package usecase

import (
	"rental-system/internal/core/domain"
	"strings"

	"github.com/mmcloughlin/geohash"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// geohashPrecision 7 is a cell of roughly 150m x 150m.
const geohashPrecision = 7

// normalizeLocation collapses whitespace and title-cases each word, so
// "  københavn   ø" is stored as "København Ø".
func normalizeLocation(s string) string {
	// Casers keep state between calls, so each call gets its own.
	caser := cases.Title(language.Danish)
	return caser.String(strings.Join(strings.Fields(s), " "))
}

func geohashOf(p domain.Property) string {
	if !p.HasCoordinates() {
		return ""
	}
	return geohash.EncodeWithPrecision(*p.Latitude, *p.Longitude, geohashPrecision)
}

func normalizeForm(form domain.ListingForm) domain.ListingForm {
	form.Title = strings.TrimSpace(form.Title)
	form.Description = strings.TrimSpace(form.Description)
	form.Location = normalizeLocation(form.Location)
	if form.Address != nil {
		addr := strings.TrimSpace(*form.Address)
		if addr == "" {
			form.Address = nil
		} else {
			form.Address = &addr
		}
	}
	amenities := make([]string, 0, len(form.Amenities))
	for _, a := range form.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	form.Amenities = amenities
	return form
}

func normalizePatch(patch domain.PropertyPatch) domain.PropertyPatch {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		patch.Description = &d
	}
	if patch.Location != nil {
		l := normalizeLocation(*patch.Location)
		patch.Location = &l
	}
	return patch
}
