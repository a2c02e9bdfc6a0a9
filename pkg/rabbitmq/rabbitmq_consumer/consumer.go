package rabbitmq_consumer

import (
	"context"
	"fmt"
	"rental-system/pkg/rabbitmq/rabbitmq_common"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one delivery. A nil error acks it; an error nacks it
// without requeue.
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// ConsumerConfig describes the queue to consume and how it is bound.
type ConsumerConfig struct {
	rabbitmq_common.Config

	// Empty QueueName with DeclareQueue lets the server pick a name.
	QueueName       string
	DeclareQueue    bool
	DurableQueue    bool
	ExclusiveQueue  bool
	AutoDeleteQueue bool
	QueueArgs       amqp.Table

	ExchangeNameForBind    string
	DeclareExchangeForBind bool
	ExchangeTypeForBind    string
	DurableExchangeForBind bool
	// The queue is bound once per routing key.
	RoutingKeysForBind []string

	PrefetchCount int
	ConsumerTag   string

	Logger rabbitmq_common.Logger
}

// Consumer reads one queue and runs the handler for each delivery in its own goroutine.
type Consumer struct {
	config          ConsumerConfig
	connection      *amqp.Connection
	channel         *amqp.Channel
	actualQueueName string
	handler         MessageHandler
	wg              sync.WaitGroup
	// closed when the dispatch loop has returned; nil before StartConsuming
	dispatchDone chan struct{}

	Logger rabbitmq_common.Logger
}

// NewConsumer opens a channel on the manager's connection and declares and binds the queue.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*Consumer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = rabbitmq_common.NewNoopLogger()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("consumer: invalid base config: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("consumer: message handler is required")
	}
	if !cfg.DeclareQueue && cfg.QueueName == "" {
		return nil, fmt.Errorf("consumer: queue name is required if DeclareQueue is false")
	}
	if cfg.DeclareExchangeForBind && cfg.ExchangeTypeForBind == "" {
		return nil, fmt.Errorf("consumer: exchange type is required if declaring an exchange for binding")
	}

	conn, ch, err := connManager.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("consumer: failed to get channel from manager: %w", err)
	}

	c := &Consumer{
		config:     cfg,
		connection: conn,
		channel:    ch,
		handler:    handler,
		Logger:     logger,
	}
	if err := c.setup(); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consumer: setup failed: %w", err)
	}
	return c, nil
}

func (c *Consumer) setup() error {
	if c.config.PrefetchCount > 0 {
		if err := c.channel.Qos(c.config.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	c.actualQueueName = c.config.QueueName
	if c.config.DeclareQueue {
		q, err := c.channel.QueueDeclare(
			c.config.QueueName,
			c.config.DurableQueue,
			c.config.AutoDeleteQueue,
			c.config.ExclusiveQueue,
			false, // no-wait
			c.config.QueueArgs,
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue '%s': %w", c.config.QueueName, err)
		}
		c.actualQueueName = q.Name
	}

	if c.config.DeclareExchangeForBind {
		err := c.channel.ExchangeDeclare(
			c.config.ExchangeNameForBind,
			c.config.ExchangeTypeForBind,
			c.config.DurableExchangeForBind,
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange '%s' for binding: %w", c.config.ExchangeNameForBind, err)
		}
	}

	if c.config.ExchangeNameForBind != "" {
		for _, key := range c.config.RoutingKeysForBind {
			c.Logger.Debug("Binding queue to exchange",
				"queue_name", c.actualQueueName,
				"exchange_name", c.config.ExchangeNameForBind,
				"routing_key", key,
			)
			if err := c.channel.QueueBind(c.actualQueueName, key, c.config.ExchangeNameForBind, false, nil); err != nil {
				return fmt.Errorf("failed to bind queue '%s' to '%s' with key '%s': %w", c.actualQueueName, c.config.ExchangeNameForBind, key, err)
			}
		}
	}

	c.Logger.Debug("Setup complete", "queue", c.actualQueueName)
	return nil
}

// StartConsuming blocks until ctx is cancelled (returns nil) or the connection
// drops (returns the broker's error).
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.channel == nil || c.connection == nil || c.connection.IsClosed() {
		return fmt.Errorf("consumer: not connected")
	}

	msgs, err := c.channel.Consume(
		c.actualQueueName,
		c.config.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consumer %s: failed to register on queue '%s': %w", c.config.ConsumerTag, c.actualQueueName, err)
	}
	c.Logger.Info("Waiting for messages on queue", "queue_name", c.actualQueueName)

	c.startDispatch(ctx, msgs)

	notifyClose := c.connection.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		c.Logger.Info("Context cancelled, stopping consumer", "consumer_tag", c.config.ConsumerTag)
		return nil
	case amqpErr := <-notifyClose:
		if amqpErr == nil {
			return nil
		}
		c.Logger.Error(amqpErr, "Connection closed for consumer", "consumer_tag", c.config.ConsumerTag)
		return amqpErr
	}
}

func (c *Consumer) startDispatch(ctx context.Context, msgs <-chan amqp.Delivery) {
	done := make(chan struct{})
	c.dispatchDone = done
	go func() {
		defer close(done)
		c.dispatch(ctx, msgs)
	}()
}

func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		// check cancellation first so no new handler starts after shutdown began
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				c.Logger.Info("Deliveries channel closed by RabbitMQ", "consumer_tag", c.config.ConsumerTag)
				return
			}
			c.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer c.wg.Done()
				c.handle(ctx, delivery)
			}(d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	if err := c.handler(ctx, delivery); err != nil {
		c.Logger.Error(err, "Handler error for message, nacking without requeue",
			"delivery_tag", delivery.DeliveryTag,
			"routing_key", delivery.RoutingKey)
		_ = delivery.Nack(false, false)
		return
	}
	_ = delivery.Ack(false)
	c.Logger.Debug("Message acked", "delivery_tag", delivery.DeliveryTag)
}

// Close waits for the dispatch loop to stop and for running handlers to
// finish, then closes the channel. The connection stays with the manager.
// Cancel the context passed to StartConsuming first, or close the channel
// from the broker side, otherwise the dispatch loop never returns.
func (c *Consumer) Close() error {
	if c.dispatchDone != nil {
		<-c.dispatchDone
	}
	c.wg.Wait()

	if c.channel == nil {
		return nil
	}
	err := c.channel.Close()
	c.channel = nil
	if err != nil {
		c.Logger.Error(err, "Error closing channel")
		return err
	}
	c.Logger.Info("Consumer closed")
	return nil
}
