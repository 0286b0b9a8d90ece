package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
)

// MemoryStore implements every repository in process. A single mutex makes
// stock check-and-decrement and status transitions atomic.
type MemoryStore struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	orders   map[int64]*models.Order
	users    map[int64]*models.User

	lastProductID int64
	lastOrderID   int64
	lastUserID    int64
}

var (
	_ ProductRepository = (*MemoryStore)(nil)
	_ OrderRepository   = (*MemoryStore)(nil)
	_ UserRepository    = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]*models.Product),
		orders:   make(map[int64]*models.Order),
		users:    make(map[int64]*models.User),
	}
}

func cloneOrder(o *models.Order) models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	return c
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("Product not found")
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastProductID++
	p.ID = s.lastProductID
	c := *p
	s.products[p.ID] = &c
	return nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return apperrors.NotFound("Product not found")
	}
	c := *p
	s.products[p.ID] = &c
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return apperrors.NotFound("Product not found")
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) PlaceOrder(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// validate every line before touching stock
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		p, ok := s.products[line.ProductID]
		if !ok {
			return apperrors.NotFound(fmt.Sprintf("Product %d not found", line.ProductID))
		}
		if p.StockQuantity < line.Quantity {
			return insufficientStock(p.Name, line.Quantity, p.StockQuantity)
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			ImageURL:  p.ImageURL,
			Quantity:  line.Quantity,
		})
	}

	for _, line := range lines {
		p := s.products[line.ProductID]
		p.StockQuantity -= line.Quantity
		p.UpdatedAt = order.UpdatedAt
	}

	s.lastOrderID++
	order.ID = s.lastOrderID
	order.Items = items
	stored := cloneOrder(order)
	s.orders[order.ID] = &stored
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("Order not found")
	}
	c := s.withBuyerName(o)
	return &c, nil
}

func (s *MemoryStore) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	return s.listOrders(func(o *models.Order) bool { return o.BuyerID == buyerID }), nil
}

func (s *MemoryStore) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(func(*models.Order) bool { return true }), nil
}

func (s *MemoryStore) listOrders(keep func(*models.Order) bool) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, s.withBuyerName(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.After(out[j].PlacedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *MemoryStore) withBuyerName(o *models.Order) models.Order {
	c := cloneOrder(o)
	if u, ok := s.users[o.BuyerID]; ok {
		c.BuyerName = u.Name
	}
	return c
}

func (s *MemoryStore) TransitionOrder(ctx context.Context, id int64, to models.OrderStatus, at time.Time, check TransitionCheck) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("Order not found")
	}
	current := s.withBuyerName(o)
	if err := check(&current); err != nil {
		return nil, err
	}

	o.Status = to
	o.UpdatedAt = at
	if to == models.StatusCancelled {
		for _, item := range o.Items {
			if p, ok := s.products[item.ProductID]; ok {
				p.StockQuantity += item.Quantity
				p.UpdatedAt = at
			}
		}
	}

	c := s.withBuyerName(o)
	return &c, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperrors.Conflict("Email is already registered")
		}
	}
	s.lastUserID++
	u.ID = s.lastUserID
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("User not found")
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("User not found")
	}
	c := *u
	return &c, nil
}

func (s *MemoryStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("User not found")
	}
	u.PasswordHash = passwordHash
	return nil
}

func insufficientStock(name string, requested, available int) error {
	return apperrors.Conflict(fmt.Sprintf("Insufficient stock for %s: requested %d, available %d", name, requested, available))
}
