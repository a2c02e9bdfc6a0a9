package domain

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// PropertyType is the kind of rental unit.
type PropertyType string

const (
	PropertyTypeApartment PropertyType = "apartment"
	PropertyTypeHouse     PropertyType = "house"
	PropertyTypeRoom      PropertyType = "room"
	PropertyTypeTownhouse PropertyType = "townhouse"
	PropertyTypeStudio    PropertyType = "studio"
)

// PropertyTypes lists every valid type in display order.
var PropertyTypes = []PropertyType{
	PropertyTypeApartment,
	PropertyTypeHouse,
	PropertyTypeRoom,
	PropertyTypeTownhouse,
	PropertyTypeStudio,
}

// ParsePropertyType accepts a type name in any case.
func ParsePropertyType(s string) (PropertyType, error) {
	candidate := PropertyType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range PropertyTypes {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown property type %q", s)
}

// DefaultPlaceholderImage is shown when a listing has no images.
const DefaultPlaceholderImage = "https://images.unsplash.com/photo-1512918728675-ed5a9ecdebfd?auto=format&fit=crop&w=1000&q=80"

// Property is a rental listing owned by exactly one landlord.
type Property struct {
	ID         string
	LandlordID string

	Title       string
	Description string
	Location    string
	Address     *string
	Latitude    *float64
	Longitude   *float64
	Geohash     string

	Price       float64
	Deposit     *float64
	PrepaidRent *float64
	Utilities   *float64

	Bedrooms     int
	Bathrooms    int
	Size         float64
	PropertyType PropertyType

	Images      []string
	Amenities   []string
	PetsAllowed bool
	Furnished   bool

	Available     bool
	AvailableFrom *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FirstImage returns the cover image, or the placeholder for an empty gallery.
func (p Property) FirstImage() string {
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return DefaultPlaceholderImage
}

// TotalMoveInCost is the first month's rent plus deposit and prepaid rent.
func (p Property) TotalMoveInCost() float64 {
	total := p.Price
	if p.Deposit != nil {
		total += *p.Deposit
	}
	if p.PrepaidRent != nil {
		total += *p.PrepaidRent
	}
	return total
}

// HasCoordinates reports whether both latitude and longitude are set.
func (p Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// PropertyPatch carries the fields of a partial update. Nil means "leave as is".
type PropertyPatch struct {
	Title         *string       `json:"title" validate:"omitempty,min=5"`
	Description   *string       `json:"description" validate:"omitempty,min=20"`
	Location      *string       `json:"location" validate:"omitempty,min=5"`
	Address       *string       `json:"address"`
	Latitude      *float64      `json:"latitude" validate:"omitempty,latitude"`
	Longitude     *float64      `json:"longitude" validate:"omitempty,longitude"`
	Geohash       *string       `json:"-"`
	Price         *float64      `json:"price" validate:"omitempty,gte=1000,lte=100000"`
	Deposit       *float64      `json:"deposit" validate:"omitempty,gte=1000,lte=100000"`
	PrepaidRent   *float64      `json:"prepaid_rent" validate:"omitempty,gte=0"`
	Utilities     *float64      `json:"utilities" validate:"omitempty,gte=0"`
	Bedrooms      *int          `json:"bedrooms" validate:"omitempty,gte=1,lte=20"`
	Bathrooms     *int          `json:"bathrooms" validate:"omitempty,gte=1,lte=10"`
	Size          *float64      `json:"size" validate:"omitempty,gte=10,lte=1000"`
	PropertyType  *PropertyType `json:"property_type" validate:"omitempty,property_type"`
	Images        []string      `json:"images" validate:"omitempty,dive,required"`
	Amenities     []string      `json:"amenities" validate:"omitempty,dive,required,max=64"`
	PetsAllowed   *bool         `json:"pets_allowed"`
	Furnished     *bool         `json:"furnished"`
	Available     *bool         `json:"available"`
	AvailableFrom *time.Time    `json:"available_from" validate:"omitempty,not_in_past"`
}

// IsEmpty reports whether the patch would change nothing.
func (pp PropertyPatch) IsEmpty() bool {
	return pp.Title == nil && pp.Description == nil && pp.Location == nil && pp.Address == nil &&
		pp.Latitude == nil && pp.Longitude == nil && pp.Geohash == nil && pp.Price == nil && pp.Deposit == nil &&
		pp.PrepaidRent == nil && pp.Utilities == nil && pp.Bedrooms == nil && pp.Bathrooms == nil &&
		pp.Size == nil && pp.PropertyType == nil && pp.Images == nil && pp.Amenities == nil &&
		pp.PetsAllowed == nil && pp.Furnished == nil && pp.Available == nil && pp.AvailableFrom == nil
}

// Apply returns a copy of p with the patch merged in.
// ID, LandlordID and CreatedAt are never touched.
func (p Property) Apply(pp PropertyPatch) Property {
	out := p
	if pp.Title != nil {
		out.Title = *pp.Title
	}
	if pp.Description != nil {
		out.Description = *pp.Description
	}
	if pp.Location != nil {
		out.Location = *pp.Location
	}
	if pp.Address != nil {
		out.Address = pp.Address
	}
	if pp.Latitude != nil {
		out.Latitude = pp.Latitude
	}
	if pp.Longitude != nil {
		out.Longitude = pp.Longitude
	}
	if pp.Geohash != nil {
		out.Geohash = *pp.Geohash
	}
	if pp.Price != nil {
		out.Price = *pp.Price
	}
	if pp.Deposit != nil {
		out.Deposit = pp.Deposit
	}
	if pp.PrepaidRent != nil {
		out.PrepaidRent = pp.PrepaidRent
	}
	if pp.Utilities != nil {
		out.Utilities = pp.Utilities
	}
	if pp.Bedrooms != nil {
		out.Bedrooms = *pp.Bedrooms
	}
	if pp.Bathrooms != nil {
		out.Bathrooms = *pp.Bathrooms
	}
	if pp.Size != nil {
		out.Size = *pp.Size
	}
	if pp.PropertyType != nil {
		out.PropertyType = *pp.PropertyType
	}
	if pp.Images != nil {
		out.Images = append([]string(nil), pp.Images...)
	}
	if pp.Amenities != nil {
		out.Amenities = append([]string(nil), pp.Amenities...)
	}
	if pp.PetsAllowed != nil {
		out.PetsAllowed = *pp.PetsAllowed
	}
	if pp.Furnished != nil {
		out.Furnished = *pp.Furnished
	}
	if pp.Available != nil {
		out.Available = *pp.Available
	}
	if pp.AvailableFrom != nil {
		out.AvailableFrom = pp.AvailableFrom
	}
	return out
}

// ImageFile is one uploaded image waiting to be stored.
type ImageFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
