package client

import (
	"context"
	"fmt"
	"strconv"

	"bulk-order-service/apperrors"
	"bulk-order-service/auth"
	"bulk-order-service/models"
)

// OrderActions runs status changes and cancellations with one busy flag per
// order: a second action on the same order is refused while the first is in
// flight, while different orders proceed independently.
type OrderActions struct {
	api  *Client
	busy *BusySet
}

func NewOrderActions(api *Client) *OrderActions {
	return &OrderActions{api: api, busy: NewBusySet()}
}

func orderKey(id int64) string {
	return "order:" + strconv.FormatInt(id, 10)
}

func (a *OrderActions) Busy(orderID int64) bool {
	return a.busy.Busy(orderKey(orderID))
}

func (a *OrderActions) run(orderID int64, fn func() (*models.OrderResponse, error)) (*models.OrderResponse, error) {
	key := orderKey(orderID)
	if !a.busy.TryAcquire(key) {
		return nil, apperrors.Conflict(fmt.Sprintf("Order %d is already being updated", orderID))
	}
	defer a.busy.Release(key)
	return fn()
}

func (a *OrderActions) SetStatus(ctx context.Context, creds Credentials, orderID int64, status models.OrderStatus) (*models.OrderResponse, error) {
	return a.run(orderID, func() (*models.OrderResponse, error) {
		return a.api.SetStatus(ctx, creds, orderID, status)
	})
}

func (a *OrderActions) Cancel(ctx context.Context, creds Credentials, orderID int64) (*models.OrderResponse, error) {
	return a.run(orderID, func() (*models.OrderResponse, error) {
		return a.api.CancelOrder(ctx, creds, orderID)
	})
}

// AvailableTransitions lists the statuses identity may move order to, for
// showing or hiding controls. Buyers only ever see their own orders' moves.
func AvailableTransitions(identity *models.Identity, order *models.OrderResponse) []models.OrderStatus {
	if !auth.Allowed(identity) {
		return nil
	}
	if !auth.Allowed(identity, models.RoleAdmin) && order.BuyerID != identity.UserID {
		return nil
	}
	return models.NextStatuses(order.Status, identity.Role)
}

func CanCancel(identity *models.Identity, order *models.OrderResponse) bool {
	for _, s := range AvailableTransitions(identity, order) {
		if s == models.StatusCancelled {
			return true
		}
	}
	return false
}
