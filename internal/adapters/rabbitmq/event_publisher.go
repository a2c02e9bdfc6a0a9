package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"rental-system/internal/contextkeys"
	"rental-system/internal/contracts"
	"rental-system/internal/core/port"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// messagePublisher is satisfied by *rabbitmq_producer.Publisher.
type messagePublisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// EventPublisherAdapter publishes domain events to the exchange, routed by event type.
// Every body is checked against its JSON schema before it leaves the service.
type EventPublisherAdapter struct {
	producer messagePublisher
	now      func() time.Time
}

var _ port.EventPublisherPort = (*EventPublisherAdapter)(nil)

func NewEventPublisherAdapter(producer messagePublisher) (*EventPublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	return &EventPublisherAdapter{producer: producer, now: time.Now}, nil
}

func (a *EventPublisherAdapter) Publish(ctx context.Context, eventType string, payload any) error {
	adapterLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "EventPublisherAdapter",
		"routing_key": eventType,
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to encode %s event: %w", eventType, err)
	}
	if err := contracts.ValidateEvent(eventType, contracts.EventVersion, body); err != nil {
		adapterLogger.Error("Event does not match its schema", err, nil)
		return fmt.Errorf("rabbitmq adapter: %s event rejected: %w", eventType, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    a.now(),
		MessageId:    uuid.NewString(),
		Type:         eventType,
		Headers: amqp.Table{
			"x-event-type":    eventType,
			"x-event-version": contracts.EventVersion,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := a.producer.Publish(publishCtx, eventType, msg); err != nil {
		adapterLogger.Error("Failed to publish event", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish %s: %w", eventType, err)
	}

	adapterLogger.Debug("Event published", port.Fields{"message_id": msg.MessageId})
	return nil
}
