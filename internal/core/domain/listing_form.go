package domain

import "time"

// ListingForm is what a landlord submits to create a listing.
// The validate tags are enforced before anything reaches the store.
type ListingForm struct {
	Title         string       `json:"title" validate:"required,min=5"`
	Description   string       `json:"description" validate:"required,min=20"`
	Price         float64      `json:"price" validate:"required,gte=1000,lte=100000"`
	Location      string       `json:"location" validate:"required,min=5"`
	Address       *string      `json:"address,omitempty"`
	Latitude      *float64     `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude     *float64     `json:"longitude,omitempty" validate:"omitempty,longitude"`
	PropertyType  PropertyType `json:"property_type" validate:"required,property_type"`
	Size          float64      `json:"size" validate:"required,gte=10,lte=1000"`
	Bedrooms      int          `json:"bedrooms" validate:"required,gte=1,lte=20"`
	Bathrooms     int          `json:"bathrooms" validate:"required,gte=1,lte=10"`
	Deposit       float64      `json:"deposit" validate:"required,gte=1000,lte=100000"`
	PrepaidRent   *float64     `json:"prepaid_rent,omitempty" validate:"omitempty,gte=0"`
	Utilities     *float64     `json:"utilities,omitempty" validate:"omitempty,gte=0"`
	Amenities     []string     `json:"amenities,omitempty" validate:"omitempty,dive,required,max=64"`
	PetsAllowed   bool         `json:"pets_allowed"`
	Furnished     bool         `json:"furnished"`
	AvailableFrom time.Time    `json:"available_from" validate:"required,not_in_past"`
}

// ToProperty builds the unsaved listing for landlordID.
func (f ListingForm) ToProperty(landlordID string, images []string) Property {
	deposit := f.Deposit
	avail := f.AvailableFrom
	return Property{
		LandlordID:    landlordID,
		Title:         f.Title,
		Description:   f.Description,
		Location:      f.Location,
		Address:       f.Address,
		Latitude:      f.Latitude,
		Longitude:     f.Longitude,
		Price:         f.Price,
		Deposit:       &deposit,
		PrepaidRent:   f.PrepaidRent,
		Utilities:     f.Utilities,
		Bedrooms:      f.Bedrooms,
		Bathrooms:     f.Bathrooms,
		Size:          f.Size,
		PropertyType:  f.PropertyType,
		Images:        images,
		Amenities:     f.Amenities,
		PetsAllowed:   f.PetsAllowed,
		Furnished:     f.Furnished,
		Available:     true,
		AvailableFrom: &avail,
	}
}
