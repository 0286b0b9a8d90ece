package client

import (
	"context"

	"github.com/google/uuid"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
)

const submissionKey = "order-submission"

// Checkout is the state a buyer fills in before placing an order.
type Checkout struct {
	Address string
	Cart    *Cart
}

type OrderPlacer struct {
	api  *Client
	busy *BusySet
}

func NewOrderPlacer(api *Client) *OrderPlacer {
	return &OrderPlacer{api: api, busy: NewBusySet()}
}

func (p *OrderPlacer) Submitting() bool {
	return p.busy.Busy(submissionKey)
}

// Submit validates locally, then sends exactly one creation request. The cart
// and address are cleared only when the server accepted the order.
func (p *OrderPlacer) Submit(ctx context.Context, creds Credentials, co *Checkout) (*models.CreateOrderResponse, error) {
	lines := co.Cart.Lines()
	if err := ValidateSubmission(co.Address, lines); err != nil {
		return nil, err
	}
	if !creds.Authenticated() {
		return nil, apperrors.Unauthorized("Please sign in first")
	}
	if !p.busy.TryAcquire(submissionKey) {
		return nil, apperrors.Conflict("An order is already being submitted")
	}
	defer p.busy.Release(submissionKey)

	resp, err := p.api.CreateOrder(ctx, creds, models.CreateOrderRequest{
		DeliveryAddress: co.Address,
		Items:           lines,
	}, uuid.NewString())
	if err != nil {
		return nil, err
	}

	co.Cart.Clear()
	co.Address = ""
	return resp, nil
}
