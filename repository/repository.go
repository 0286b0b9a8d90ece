package repository

import (
	"context"
	"time"

	"bulk-order-service/models"
)

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// TransitionCheck inspects the locked current order and returns an error to
// abort the transition without any change.
type TransitionCheck func(current *models.Order) error

type OrderRepository interface {
	// PlaceOrder checks and decrements stock for every line, snapshots the
	// catalogue into order items and inserts the order, all or nothing. On
	// success order.ID and order.Items are filled in.
	PlaceOrder(ctx context.Context, order *models.Order, lines []models.OrderLine) error

	GetOrder(ctx context.Context, id int64) (*models.Order, error)

	// ListOrdersByBuyer and ListAllOrders return newest first.
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)

	// TransitionOrder reads, checks and writes the status as one atomic step.
	// Moving to cancelled returns the items' quantities to stock.
	TransitionOrder(ctx context.Context, id int64, to models.OrderStatus, at time.Time, check TransitionCheck) (*models.Order, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
