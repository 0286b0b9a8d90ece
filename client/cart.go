package client

import (
	"sort"
	"strings"
	"sync"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
)

// Cart maps product id to a wanted quantity. Quantities are clamped to
// [0, stock] using the stock seen when the catalogue was loaded; the server
// checks stock again when the order is placed.
type Cart struct {
	mu    sync.Mutex
	stock map[int64]int
	qty   map[int64]int
}

func NewCart(products []models.Product) *Cart {
	c := &Cart{qty: make(map[int64]int)}
	c.Reseed(products)
	return c
}

// Reseed replaces the known stock levels, re-clamps every line and drops
// lines for products no longer in the catalogue.
func (c *Cart) Reseed(products []models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stock = make(map[int64]int, len(products))
	for _, p := range products {
		c.stock[p.ID] = p.StockQuantity
	}
	for id, q := range c.qty {
		if clamped := clamp(q, c.stock[id]); clamped > 0 {
			c.qty[id] = clamped
		} else {
			delete(c.qty, id)
		}
	}
}

func clamp(qty, stock int) int {
	if stock < 0 {
		stock = 0
	}
	switch {
	case qty < 0:
		return 0
	case qty > stock:
		return stock
	default:
		return qty
	}
}

// SetQuantity stores the clamped quantity and returns it. The last call wins.
func (c *Cart) SetQuantity(productID int64, qty int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	clamped := clamp(qty, c.stock[productID])
	if clamped == 0 {
		delete(c.qty, productID)
	} else {
		c.qty[productID] = clamped
	}
	return clamped
}

func (c *Cart) Quantity(productID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qty[productID]
}

// Lines returns the non-zero lines ordered by product id.
func (c *Cart) Lines() []models.OrderLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]models.OrderLine, 0, len(c.qty))
	for id, q := range c.qty {
		if q > 0 {
			lines = append(lines, models.OrderLine{ProductID: id, Quantity: q})
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.qty = make(map[int64]int)
	c.mu.Unlock()
}

// ValidateSubmission runs before any request is made.
func ValidateSubmission(address string, lines []models.OrderLine) error {
	if strings.TrimSpace(address) == "" {
		return apperrors.Validation("Please provide a delivery address")
	}
	for _, l := range lines {
		if l.Quantity > 0 {
			return nil
		}
	}
	return apperrors.Validation("Please select at least one product")
}
