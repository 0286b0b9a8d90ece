// Package events defines how committed order changes leave the service.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bulk-order-service/models"
)

const (
	DefaultPriority    uint8 = 5
	LargeOrderPriority uint8 = 9
	CancelPriority     uint8 = 8
)

// LargeOrderTotal is the total above which a created order is published
// with LargeOrderPriority.
var LargeOrderTotal = decimal.NewFromInt(1000)

type Publisher interface {
	Publish(ctx context.Context, event models.OrderEvent) error
	Close() error
}

func NewOrderEvent(order *models.Order, eventType string, at time.Time) models.OrderEvent {
	return models.OrderEvent{
		EventID:  uuid.NewString(),
		OrderID:  order.ID,
		BuyerID:  order.BuyerID,
		Type:     eventType,
		Status:   order.Status,
		Total:    order.Total(),
		Occurred: at.UTC(),
	}
}

func Priority(event models.OrderEvent) uint8 {
	switch {
	case event.Type == models.EventCancelled:
		return CancelPriority
	case event.Type == models.EventCreated && event.Total.GreaterThan(LargeOrderTotal):
		return LargeOrderPriority
	default:
		return DefaultPriority
	}
}

func Encode(event models.OrderEvent) ([]byte, error) {
	return json.Marshal(event)
}

func Decode(body []byte) (models.OrderEvent, error) {
	var event models.OrderEvent
	err := json.Unmarshal(body, &event)
	return event, err
}

// NopPublisher drops every event. Used when EVENT_BROKER=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.OrderEvent) error { return nil }
func (NopPublisher) Close() error { return nil }
