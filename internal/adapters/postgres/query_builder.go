package postgres

import (
	"fmt"
	"rental-system/internal/core/domain"
	"strings"
)

// updateBuilder collects "column = $n" assignments for a partial UPDATE.
type updateBuilder struct {
	assignments []string
	args        []interface{}
	argID       int
}

func newUpdateBuilder() *updateBuilder {
	return &updateBuilder{
		argID: 1,
		args:  make([]interface{}, 0),
	}
}

func (ub *updateBuilder) set(column string, arg interface{}) {
	ub.assignments = append(ub.assignments, fmt.Sprintf("%s = $%d", column, ub.argID))
	ub.args = append(ub.args, arg)
	ub.argID++
}

func setIfPresent[T any](ub *updateBuilder, column string, value *T) {
	if value != nil {
		ub.set(column, *value)
	}
}

// build returns the SET clause and the query args; the id is bound as the last arg.
func (ub *updateBuilder) build(id string) (string, []interface{}) {
	setClause := strings.Join(append(ub.assignments, "updated_at = NOW()"), ", ")
	query := fmt.Sprintf("UPDATE properties SET %s WHERE id = $%d", setClause, ub.argID)
	return query, append(ub.args, id)
}

func (ub *updateBuilder) empty() bool { return len(ub.assignments) == 0 }

// buildPropertyUpdate turns a patch into an UPDATE touching only the provided columns.
func buildPropertyUpdate(id string, patch domain.PropertyPatch) (string, []interface{}, bool) {
	ub := newUpdateBuilder()

	setIfPresent(ub, "title", patch.Title)
	setIfPresent(ub, "description", patch.Description)
	setIfPresent(ub, "location", patch.Location)
	setIfPresent(ub, "address", patch.Address)
	setIfPresent(ub, "latitude", patch.Latitude)
	setIfPresent(ub, "longitude", patch.Longitude)
	setIfPresent(ub, "geohash", patch.Geohash)
	setIfPresent(ub, "price", patch.Price)
	setIfPresent(ub, "deposit", patch.Deposit)
	setIfPresent(ub, "prepaid_rent", patch.PrepaidRent)
	setIfPresent(ub, "utilities", patch.Utilities)
	setIfPresent(ub, "bedrooms", patch.Bedrooms)
	setIfPresent(ub, "bathrooms", patch.Bathrooms)
	setIfPresent(ub, "size", patch.Size)
	if patch.PropertyType != nil {
		ub.set("property_type", string(*patch.PropertyType))
	}
	if patch.Images != nil {
		ub.set("images", patch.Images)
	}
	if patch.Amenities != nil {
		ub.set("amenities", patch.Amenities)
	}
	setIfPresent(ub, "pets_allowed", patch.PetsAllowed)
	setIfPresent(ub, "furnished", patch.Furnished)
	setIfPresent(ub, "available", patch.Available)
	setIfPresent(ub, "available_from", patch.AvailableFrom)

	if ub.empty() {
		return "", nil, false
	}
	query, args := ub.build(id)
	return query, args, true
}
