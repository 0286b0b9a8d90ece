package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"bulk-order-service/config"
	"bulk-order-service/events"
	"bulk-order-service/models"
)

// RabbitMQ publishes order events to a fanout exchange whose main queue
// supports priorities and dead-letters rejected messages.
type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	mu  sync.Mutex // amqp channels are not safe for concurrent publishing
	log zerolog.Logger
}

var _ events.Publisher = (*RabbitMQ)(nil)

func NewRabbitMQ(cfg *config.Config, log zerolog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
		log:     log.With().Str("component", "rabbitmq").Logger(),
	}, nil
}

func deadLetterExchange(cfg *config.Config) string {
	return cfg.DeadLetterQueue + "_exchange"
}

func (r *RabbitMQ) SetupQueues() error {
	dlx := deadLetterExchange(r.Cfg)
	if err := r.Channel.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", dlx, err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": "classic"},
	); err != nil {
		return fmt.Errorf("declare %s: %w", r.Cfg.DeadLetterQueue, err)
	}

	if err := r.Channel.QueueBind(r.Cfg.DeadLetterQueue, r.Cfg.DeadLetterQueue, dlx, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", r.Cfg.DeadLetterQueue, err)
	}

	if err := r.Channel.ExchangeDeclare(r.Cfg.OrderExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", r.Cfg.OrderExchange, err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.OrderQueue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-max-priority":            r.Cfg.MaxPriority,
			"x-dead-letter-exchange":    dlx,
			"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
		},
	); err != nil {
		return fmt.Errorf("declare %s: %w", r.Cfg.OrderQueue, err)
	}

	if err := r.Channel.QueueBind(r.Cfg.OrderQueue, "", r.Cfg.OrderExchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", r.Cfg.OrderQueue, err)
	}

	r.log.Info().Str("exchange", r.Cfg.OrderExchange).Str("queue", r.Cfg.OrderQueue).Msg("queues declared")
	return nil
}

// buildPublishing encodes event as a persistent JSON message.
func buildPublishing(event models.OrderEvent, maxPriority int) (amqp.Publishing, error) {
	body, err := events.Encode(event)
	if err != nil {
		return amqp.Publishing{}, err
	}
	priority := events.Priority(event)
	if maxPriority >= 0 && int(priority) > maxPriority {
		priority = uint8(maxPriority)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		MessageId:    event.EventID,
		Type:         event.Type,
		Body:         body,
		Priority:     priority,
	}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, event models.OrderEvent) error {
	msg, err := buildPublishing(event, r.Cfg.MaxPriority)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Channel.PublishWithContext(ctx, r.Cfg.OrderExchange, "", false, false, msg)
}

func (r *RabbitMQ) Close() error {
	var firstErr error
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			firstErr = err
		}
	}
	if r.Conn != nil {
		if err := r.Conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
