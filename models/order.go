package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              int64       `json:"id"`
	BuyerID         int64       `json:"buyer_id"`
	BuyerName       string      `json:"buyer_name,omitempty"`
	Status          OrderStatus `json:"status"`
	DeliveryAddress string      `json:"delivery_address"`
	PlacedAt        time.Time   `json:"placed_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Items           []OrderItem `json:"items"`
}

// OrderItem fields other than Quantity are copied from the catalogue when the
// order is placed and never change afterwards.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total is always derived from the item snapshots.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderLine is one requested (product, quantity) pair. On the client it is a
// cart line.
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderRequest struct {
	DeliveryAddress string      `json:"delivery_address"`
	Items           []OrderLine `json:"items"`
}

type CreateOrderResponse struct {
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID              int64             `json:"id"`
	BuyerID         int64             `json:"buyer_id"`
	BuyerName       string            `json:"buyer_name,omitempty"`
	Status          OrderStatus       `json:"status"`
	DeliveryAddress string            `json:"delivery_address"`
	PlacedAt        time.Time         `json:"placed_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Total           decimal.Decimal   `json:"total"`
	Items           []OrderItemDetail `json:"items"`
}

type OrderItemDetail struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func NewOrderResponse(o *Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		BuyerName:       o.BuyerName,
		Status:          o.Status,
		DeliveryAddress: o.DeliveryAddress,
		PlacedAt:        o.PlacedAt,
		UpdatedAt:       o.UpdatedAt,
		Total:           o.Total(),
		Items:           make([]OrderItemDetail, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemDetail{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}
	return resp
}

func NewOrderResponses(orders []Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}

const (
	EventCreated       = "created"
	EventStatusUpdated = "status_updated"
	EventCancelled     = "cancelled"
)

type OrderEvent struct {
	EventID  string          `json:"event_id"`
	OrderID  int64           `json:"order_id"`
	BuyerID  int64           `json:"buyer_id"`
	Type     string          `json:"type"` // created, status_updated, cancelled
	Status   OrderStatus     `json:"status"`
	Total    decimal.Decimal `json:"total"`
	Occurred time.Time       `json:"occurred"`
}
