package domain

import "time"

// ListingEvent is published after a listing is created, updated or deleted.
type ListingEvent struct {
	ListingID  string    `json:"listing_id"`
	LandlordID string    `json:"landlord_id"`
	Title      string    `json:"title,omitempty"`
	Location   string    `json:"location,omitempty"`
	Price      float64   `json:"price,omitempty"`
	Geohash    string    `json:"geohash,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewListingEvent snapshots p at the given moment.
func NewListingEvent(p Property, at time.Time) ListingEvent {
	return ListingEvent{
		ListingID:  p.ID,
		LandlordID: p.LandlordID,
		Title:      p.Title,
		Location:   p.Location,
		Price:      p.Price,
		Geohash:    p.Geohash,
		OccurredAt: at.UTC(),
	}
}

// MessageSentEvent is published after a message is stored.
type MessageSentEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	PropertyID     string    `json:"property_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	SentAt         time.Time `json:"sent_at"`
}
