package port

import "context"

// Event types published after successful writes.
const (
	EventListingCreated = "listing.created"
	EventListingUpdated = "listing.updated"
	EventListingDeleted = "listing.deleted"
	EventMessageSent    = "message.sent"
)

// EventPublisherPort announces domain events. Delivery is best effort.
type EventPublisherPort interface {
	Publish(ctx context.Context, eventType string, payload any) error
}
