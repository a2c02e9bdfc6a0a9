package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"rental-system/internal/contextkeys"
	"rental-system/internal/contracts"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"

	amqp "github.com/rabbitmq/amqp091-go"
)

// CacheInvalidationRoutingKeys are the events after which a cached listing is stale.
var CacheInvalidationRoutingKeys = []string{port.EventListingUpdated, port.EventListingDeleted}

// CacheInvalidator drops cached listings when another replica changes them.
// Its HandleDelivery is the message handler for a rabbitmq_consumer.Consumer.
type CacheInvalidator struct {
	cache  port.ListingCachePort
	logger port.LoggerPort
}

func NewCacheInvalidator(cache port.ListingCachePort, logger port.LoggerPort) (*CacheInvalidator, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache invalidator: cache cannot be nil")
	}
	if logger == nil {
		logger = contextkeys.LoggerFromContext(context.Background())
	}
	return &CacheInvalidator{
		cache:  cache,
		logger: logger.WithFields(port.Fields{"component": "CacheInvalidator"}),
	}, nil
}

// HandleDelivery invalidates the listing named in the event. Events of other
// types are acknowledged and ignored. Malformed events are rejected so the
// broker does not redeliver them.
func (c *CacheInvalidator) HandleDelivery(ctx context.Context, d amqp.Delivery) error {
	eventType := d.Type
	if eventType == "" {
		eventType = d.RoutingKey
	}
	logger := c.logger.WithFields(port.Fields{"event_type": eventType, "message_id": d.MessageId})
	if traceID, ok := d.Headers["x-trace-id"].(string); ok && traceID != "" {
		logger = logger.WithFields(port.Fields{"trace_id": traceID})
		ctx = contextkeys.ContextWithTraceID(ctx, traceID)
	}
	ctx = contextkeys.ContextWithLogger(ctx, logger)

	if eventType != port.EventListingUpdated && eventType != port.EventListingDeleted {
		logger.Debug("Ignoring event", nil)
		return nil
	}

	version := contracts.EventVersion
	if v, ok := d.Headers["x-event-version"].(string); ok && v != "" {
		version = v
	}
	if err := contracts.ValidateEvent(eventType, version, d.Body); err != nil {
		logger.Warn("Event does not match its schema", port.Fields{"error": err.Error()})
		return fmt.Errorf("cache invalidator: %s event rejected: %w", eventType, err)
	}

	var event domain.ListingEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("cache invalidator: failed to decode %s event: %w", eventType, err)
	}

	if err := c.cache.Invalidate(ctx, event.ListingID); err != nil {
		logger.Error("Failed to invalidate cached listing", err, port.Fields{"listing_id": event.ListingID})
		return fmt.Errorf("cache invalidator: %w", err)
	}
	logger.Debug("Cached listing invalidated", port.Fields{"listing_id": event.ListingID})
	return nil
}
