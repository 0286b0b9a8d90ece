// Package kafka publishes order events to a Kafka topic keyed by order id,
// so every event of one order lands on the same partition.
package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"bulk-order-service/config"
	"bulk-order-service/events"
	"bulk-order-service/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	log    zerolog.Logger
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(cfg *config.Config, log zerolog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers()...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newPublisher(w, log)
}

func newPublisher(w messageWriter, log zerolog.Logger) *Publisher {
	return &Publisher{writer: w, log: log.With().Str("component", "kafka").Logger()}
}

func buildMessage(event models.OrderEvent) (kafkago.Message, error) {
	body, err := events.Encode(event)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: body,
		Time:  event.Occurred,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, event models.OrderEvent) error {
	msg, err := buildMessage(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order event %s: %w", event.EventID, err)
	}
	p.log.Debug().Int64("order_id", event.OrderID).Str("type", event.Type).Msg("order event written")
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
