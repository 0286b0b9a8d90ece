package consumers

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"bulk-order-service/config"
	"bulk-order-service/events"
	"bulk-order-service/middlewares"
	"bulk-order-service/models"
)

// OrderConsumer drains the order queue and its dead-letter queue. Events are
// logged and counted; malformed messages are rejected into the dead-letter
// queue, and dead letters are acknowledged after logging.
type OrderConsumer struct {
	log zerolog.Logger
}

func NewOrderConsumer(log zerolog.Logger) *OrderConsumer {
	return &OrderConsumer{log: log.With().Str("component", "order_consumer").Logger()}
}

func (c *OrderConsumer) Start(ch *amqp.Channel, cfg *config.Config) error {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"bulk-order-service", // consumer tag
		false,                // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register order consumer: %w", err)
	}
	go func() {
		for msg := range msgs {
			c.processOrderMessage(msg)
		}
	}()

	dlqMsgs, err := ch.Consume(cfg.DeadLetterQueue, "bulk-order-service-dlq", false, false, false, false, nil)
	if err != nil {
		// the main queue keeps flowing without a dead-letter reader
		c.log.Error().Err(err).Msg("failed to register dead-letter consumer")
		return nil
	}
	go func() {
		for msg := range dlqMsgs {
			c.processDeadLetterMessage(msg)
		}
	}()
	return nil
}

func (c *OrderConsumer) processOrderMessage(msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("recovered from panic in message processing")
			_ = msg.Nack(false, false)
		}
	}()

	event, err := events.Decode(msg.Body)
	if err != nil || event.OrderID == 0 {
		c.log.Warn().Err(err).Bytes("body", msg.Body).Msg("invalid order event")
		middlewares.RecordEventConsumed("invalid", false)
		if err := msg.Nack(false, false); err != nil {
			c.log.Error().Err(err).Msg("nack failed")
		}
		return
	}

	switch event.Type {
	case models.EventCreated:
		withEvent(c.log.Info(), event).Str("total", event.Total.StringFixed(2)).Msg("order created")
	case models.EventStatusUpdated, models.EventCancelled:
		withEvent(c.log.Info(), event).Msg("order status changed")
	default:
		withEvent(c.log.Warn(), event).Msg("unknown event type")
	}
	middlewares.RecordEventConsumed(event.Type, true)

	if err := msg.Ack(false); err != nil {
		c.log.Error().Err(err).Msg("ack failed")
	}
}

func withEvent(e *zerolog.Event, event models.OrderEvent) *zerolog.Event {
	return e.Str("event_id", event.EventID).
		Int64("order_id", event.OrderID).
		Str("type", event.Type).
		Str("status", string(event.Status))
}

func (c *OrderConsumer) processDeadLetterMessage(msg amqp.Delivery) {
	c.log.Warn().Bytes("body", msg.Body).Str("message_id", msg.MessageId).Msg("received dead letter")
	middlewares.RecordEventConsumed("dead_letter", true)
	if err := msg.Ack(false); err != nil {
		c.log.Error().Err(err).Msg("ack failed")
	}
}
