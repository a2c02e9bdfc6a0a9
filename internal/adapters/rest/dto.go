package rest

import (
	"rental-system/internal/core/domain"
	"time"
)

type ErrorResponse struct {
	Error   string                  `json:"error"`
	Details domain.ValidationErrors `json:"details,omitempty"`
}

type PropertyResponse struct {
	ID              string     `json:"id"`
	LandlordID      string     `json:"landlord_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Location        string     `json:"location"`
	Address         *string    `json:"address,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Geohash         string     `json:"geohash,omitempty"`
	Price           float64    `json:"price"`
	Deposit         *float64   `json:"deposit,omitempty"`
	PrepaidRent     *float64   `json:"prepaid_rent,omitempty"`
	Utilities       *float64   `json:"utilities,omitempty"`
	TotalMoveInCost float64    `json:"total_move_in_cost"`
	Bedrooms        int        `json:"bedrooms"`
	Bathrooms       int        `json:"bathrooms"`
	Size            float64    `json:"size"`
	PropertyType    string     `json:"property_type"`
	Images          []string   `json:"images"`
	FirstImage      string     `json:"first_image"`
	Amenities       []string   `json:"amenities"`
	PetsAllowed     bool       `json:"pets_allowed"`
	Furnished       bool       `json:"furnished"`
	Available       bool       `json:"available"`
	AvailableFrom   *time.Time `json:"available_from,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toPropertyResponse(p domain.Property) PropertyResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	amenities := p.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return PropertyResponse{
		ID:              p.ID,
		LandlordID:      p.LandlordID,
		Title:           p.Title,
		Description:     p.Description,
		Location:        p.Location,
		Address:         p.Address,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		Geohash:         p.Geohash,
		Price:           p.Price,
		Deposit:         p.Deposit,
		PrepaidRent:     p.PrepaidRent,
		Utilities:       p.Utilities,
		TotalMoveInCost: p.TotalMoveInCost(),
		Bedrooms:        p.Bedrooms,
		Bathrooms:       p.Bathrooms,
		Size:            p.Size,
		PropertyType:    string(p.PropertyType),
		Images:          images,
		FirstImage:      p.FirstImage(),
		Amenities:       amenities,
		PetsAllowed:     p.PetsAllowed,
		Furnished:       p.Furnished,
		Available:       p.Available,
		AvailableFrom:   p.AvailableFrom,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toPropertyResponses(props []domain.Property) []PropertyResponse {
	out := make([]PropertyResponse, len(props))
	for i, p := range props {
		out[i] = toPropertyResponse(p)
	}
	return out
}

// ListingsResponse carries the search result. Error is set when the fetch
// failed; Data is then empty rather than missing.
type ListingsResponse struct {
	Data  []PropertyResponse `json:"data"`
	Total int                `json:"total"`
	Sort  string             `json:"sort"`
	Error string             `json:"error,omitempty"`
}

type ListingStatusResponse struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count"`
}

// createListingRequest overrides available_from so a plain date is accepted.
type createListingRequest struct {
	domain.ListingForm
	AvailableFrom string `json:"available_from"`
}

type updateListingRequest struct {
	domain.PropertyPatch
	AvailableFrom *string `json:"available_from"`
}

type StepFailureResponse struct {
	Step   string `json:"step"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error"`
}

func toStepFailures(report domain.StepReport) []StepFailureResponse {
	failed := report.Failed()
	out := make([]StepFailureResponse, 0, len(failed))
	for _, f := range failed {
		out = append(out, StepFailureResponse{Step: f.Step, Target: f.Target, Error: f.Err.Error()})
	}
	return out
}

type CreateListingResponse struct {
	Listing        PropertyResponse      `json:"listing"`
	ImagesUploaded int                   `json:"images_uploaded"`
	FailedSteps    []StepFailureResponse `json:"failed_steps"`
}

type DeleteListingResponse struct {
	Deleted       bool                  `json:"deleted"`
	ImagesRemoved int                   `json:"images_removed"`
	FailedSteps   []StepFailureResponse `json:"failed_steps"`
}

type FilterOptionsResponse struct {
	Locations     []string  `json:"locations"`
	PropertyTypes []string  `json:"property_types"`
	Bedrooms      []int     `json:"bedrooms"`
	Price         RangeJSON `json:"price"`
	Size          RangeJSON `json:"size"`
	Count         int       `json:"count"`
}

type RangeJSON struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func toFilterOptionsResponse(o domain.FilterOptions) FilterOptionsResponse {
	types := make([]string, len(o.PropertyTypes))
	for i, t := range o.PropertyTypes {
		types[i] = string(t)
	}
	return FilterOptionsResponse{
		Locations:     o.Locations,
		PropertyTypes: types,
		Bedrooms:      o.Bedrooms,
		Price:         RangeJSON{Min: o.PriceMin, Max: o.PriceMax},
		Size:          RangeJSON{Min: o.SizeMin, Max: o.SizeMax},
		Count:         o.Count,
	}
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	PropertyID     string    `json:"property_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
}

func toMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		PropertyID:     m.PropertyID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Read:           m.Read,
	}
}

type ConversationResponse struct {
	ID            string            `json:"id"`
	PropertyID    string            `json:"property_id"`
	LandlordID    string            `json:"landlord_id"`
	TenantID      string            `json:"tenant_id"`
	LastMessageAt time.Time         `json:"last_message_at"`
	Unread        int               `json:"unread"`
	Messages      []MessageResponse `json:"messages"`
}

func toConversationResponses(convs []domain.Conversation, viewerID string) []ConversationResponse {
	out := make([]ConversationResponse, len(convs))
	for i, c := range convs {
		msgs := make([]MessageResponse, len(c.Messages))
		for j, m := range c.Messages {
			msgs[j] = toMessageResponse(m)
		}
		out[i] = ConversationResponse{
			ID:            c.ID,
			PropertyID:    c.PropertyID,
			LandlordID:    c.LandlordID,
			TenantID:      c.TenantID,
			LastMessageAt: c.LastMessageAt,
			Unread:        c.UnreadFor(viewerID),
			Messages:      msgs,
		}
	}
	return out
}

type SendMessageRequest struct {
	Content    string `json:"content"`
	PropertyID string `json:"property_id"`
	ReceiverID string `json:"receiver_id"`
}
