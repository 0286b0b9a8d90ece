package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bulk-order-service/apperrors"
	"bulk-order-service/events"
	"bulk-order-service/models"
	"bulk-order-service/repository"
)

const publishTimeout = 5 * time.Second

// MaxLineQuantity bounds a merged line to the range of the INT stock column.
const MaxLineQuantity = math.MaxInt32

type OrderService struct {
	orders    repository.OrderRepository
	publisher events.Publisher
	guard     IdempotencyGuard
	log       zerolog.Logger
	now       func() time.Time
}

func NewOrderService(orders repository.OrderRepository, publisher events.Publisher, guard IdempotencyGuard, log zerolog.Logger) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if guard == nil {
		guard = NopIdempotencyGuard{}
	}
	return &OrderService{
		orders:    orders,
		publisher: publisher,
		guard:     guard,
		log:       log.With().Str("component", "order_service").Logger(),
		now:       time.Now,
	}
}

// StatusChange is a committed transition.
type StatusChange struct {
	Order *models.Order
	From  models.OrderStatus
}

// MergeLines validates requested lines and sums duplicates. The result is
// sorted by product id, which is also the row locking order.
func MergeLines(lines []models.OrderLine) ([]models.OrderLine, error) {
	if len(lines) == 0 {
		return nil, apperrors.Validation("Order must contain at least one item")
	}
	totals := make(map[int64]int, len(lines))
	for _, line := range lines {
		if line.ProductID <= 0 {
			return nil, apperrors.Validation(fmt.Sprintf("Invalid product id %d", line.ProductID))
		}
		if line.Quantity <= 0 {
			return nil, apperrors.Validation(fmt.Sprintf("Quantity for product %d must be positive", line.ProductID))
		}
		if line.Quantity > MaxLineQuantity-totals[line.ProductID] {
			return nil, apperrors.Validation(fmt.Sprintf("Quantity for product %d is too large", line.ProductID))
		}
		totals[line.ProductID] += line.Quantity
	}

	merged := make([]models.OrderLine, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, models.OrderLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}

// PlaceOrder creates a pending order for the calling buyer. Either every line
// is reserved from stock or nothing changes.
func (s *OrderService) PlaceOrder(ctx context.Context, identity *models.Identity, req models.CreateOrderRequest, idempotencyKey string) (order *models.Order, err error) {
	if err := authorize(identity, models.RoleBuyer); err != nil {
		return nil, err
	}
	address := strings.TrimSpace(req.DeliveryAddress)
	if address == "" {
		return nil, apperrors.Validation("Delivery address is required")
	}
	lines, err := MergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(idempotencyKey); key != "" {
		scoped := scopedKey(identity.UserID, key)
		reserved, rerr := s.guard.Reserve(ctx, scoped)
		switch {
		case rerr != nil:
			s.log.Warn().Err(rerr).Msg("idempotency guard unavailable, placing without it")
		case !reserved:
			return nil, apperrors.Conflict("Order already submitted")
		default:
			defer func() {
				if err == nil {
					return
				}
				if relErr := s.guard.Release(context.WithoutCancel(ctx), scoped); relErr != nil {
					s.log.Warn().Err(relErr).Msg("failed to release idempotency key")
				}
			}()
		}
	}

	now := s.now().UTC()
	order = &models.Order{
		BuyerID:         identity.UserID,
		Status:          models.StatusPending,
		DeliveryAddress: address,
		PlacedAt:        now,
		UpdatedAt:       now,
	}
	if err := s.orders.PlaceOrder(ctx, order, lines); err != nil {
		return nil, err
	}
	order.BuyerName = identity.Name

	s.log.Info().
		Int64("order_id", order.ID).
		Int64("buyer_id", order.BuyerID).
		Int("items", len(order.Items)).
		Str("total", order.Total().StringFixed(2)).
		Msg("order placed")
	s.publish(ctx, order, models.EventCreated)
	return order, nil
}

func (s *OrderService) ListForBuyer(ctx context.Context, identity *models.Identity) ([]models.Order, error) {
	if err := authorize(identity); err != nil {
		return nil, err
	}
	return s.orders.ListOrdersByBuyer(ctx, identity.UserID)
}

func (s *OrderService) ListAll(ctx context.Context, identity *models.Identity) ([]models.Order, error) {
	if err := authorize(identity, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.orders.ListAllOrders(ctx)
}

func (s *OrderService) GetOrder(ctx context.Context, identity *models.Identity, id int64) (*models.Order, error) {
	if err := authorize(identity); err != nil {
		return nil, err
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownsOrAdmin(identity, order) {
		return nil, apperrors.Forbidden("You may only view your own orders")
	}
	return order, nil
}

// SetStatus is the administrator entry point into the lifecycle.
func (s *OrderService) SetStatus(ctx context.Context, identity *models.Identity, id int64, status string) (*StatusChange, error) {
	if err := authorize(identity, models.RoleAdmin); err != nil {
		return nil, err
	}
	to, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, identity, id, to, nil)
}

// Cancel lets buyers cancel their own orders and administrators any order.
func (s *OrderService) Cancel(ctx context.Context, identity *models.Identity, id int64) (*StatusChange, error) {
	if err := authorize(identity); err != nil {
		return nil, err
	}
	return s.transition(ctx, identity, id, models.StatusCancelled, func(current *models.Order) error {
		if !ownsOrAdmin(identity, current) {
			return apperrors.Forbidden("You may only cancel your own orders")
		}
		return nil
	})
}

func (s *OrderService) transition(ctx context.Context, identity *models.Identity, id int64, to models.OrderStatus, precheck repository.TransitionCheck) (*StatusChange, error) {
	var from models.OrderStatus
	order, err := s.orders.TransitionOrder(ctx, id, to, s.now().UTC(), func(current *models.Order) error {
		if precheck != nil {
			if err := precheck(current); err != nil {
				return err
			}
		}
		from = current.Status
		return models.CheckTransition(current.Status, to, identity.Role)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Int64("actor_id", identity.UserID).
		Msg("order status changed")

	eventType := models.EventStatusUpdated
	if to == models.StatusCancelled {
		eventType = models.EventCancelled
	}
	s.publish(ctx, order, eventType)
	return &StatusChange{Order: order, From: from}, nil
}

// publish runs after commit. Failures are logged only; the order change stands.
func (s *OrderService) publish(ctx context.Context, order *models.Order, eventType string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.NewOrderEvent(order, eventType, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error().Err(err).Int64("order_id", order.ID).Str("type", eventType).Msg("failed to publish order event")
	}
}
