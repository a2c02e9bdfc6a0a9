package constants

// Exchange the listing and message events are published to.
// Routing keys are the event types, e.g. "listing.created".
const (
	ListingEventsExchange     = "listing_events_exchange"
	ListingEventsExchangeType = "topic"
)
