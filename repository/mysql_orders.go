package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
)

const orderSelect = `SELECT o.id, o.buyer_id, COALESCE(u.name, ''), o.status, o.delivery_address, o.placed_at, o.updated_at
	FROM orders o LEFT JOIN users u ON u.id = o.buyer_id`

const orderOrdering = ` ORDER BY o.placed_at DESC, o.id DESC`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) PlaceOrder(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// lines arrive sorted by product id so concurrent orders lock rows in the same order
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		var (
			name, imageURL string
			price          decimal.Decimal
			stock          int
		)
		err := tx.QueryRowContext(ctx,
			`SELECT name, unit_price, image_url, stock_quantity FROM products WHERE id = ? FOR UPDATE`,
			line.ProductID).Scan(&name, &price, &imageURL, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound(fmt.Sprintf("Product %d not found", line.ProductID))
		}
		if err != nil {
			return fmt.Errorf("lock product %d: %w", line.ProductID, err)
		}
		if stock < line.Quantity {
			return insufficientStock(name, line.Quantity, stock)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock_quantity = stock_quantity - ?, updated_at = ? WHERE id = ?`,
			line.Quantity, order.UpdatedAt, line.ProductID); err != nil {
			return fmt.Errorf("decrement stock for product %d: %w", line.ProductID, err)
		}

		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      name,
			UnitPrice: price,
			ImageURL:  imageURL,
			Quantity:  line.Quantity,
		})
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (buyer_id, status, delivery_address, placed_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		order.BuyerID, order.Status, order.DeliveryAddress, order.PlacedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*6)
	for _, item := range items {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
		args = append(args, orderID, item.ProductID, item.Name, item.UnitPrice, item.ImageURL, item.Quantity)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, name, unit_price, image_url, quantity) VALUES `+strings.Join(placeholders, ", "),
		args...); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	order.ID = orderID
	order.Items = items
	return nil
}

func (r *MySQLOrderRepository) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	orders, err := r.queryOrders(ctx, orderSelect+` WHERE o.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperrors.NotFound("Order not found")
	}
	return &orders[0], nil
}

func (r *MySQLOrderRepository) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	return r.queryOrders(ctx, orderSelect+` WHERE o.buyer_id = ?`+orderOrdering, buyerID)
}

func (r *MySQLOrderRepository) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return r.queryOrders(ctx, orderSelect+orderOrdering)
}

func (r *MySQLOrderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.BuyerName, &o.Status, &o.DeliveryAddress, &o.PlacedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	if err := loadItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fetches the items of every order in one query.
func loadItems(ctx context.Context, q queryer, orders []models.Order) error {
	index := make(map[int64]int, len(orders))
	placeholders := make([]string, 0, len(orders))
	args := make([]any, 0, len(orders))
	for i := range orders {
		orders[i].Items = make([]models.OrderItem, 0)
		index[orders[i].ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, orders[i].ID)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT order_id, product_id, name, unit_price, image_url, quantity
		 FROM order_items WHERE order_id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY order_id, id`,
		args...)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			item    models.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.UnitPrice, &item.ImageURL, &item.Quantity); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}

func (r *MySQLOrderRepository) TransitionOrder(ctx context.Context, id int64, to models.OrderStatus, at time.Time, check TransitionCheck) (*models.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var o models.Order
	err = tx.QueryRowContext(ctx,
		`SELECT id, buyer_id, status, delivery_address, placed_at, updated_at FROM orders WHERE id = ? FOR UPDATE`,
		id).Scan(&o.ID, &o.BuyerID, &o.Status, &o.DeliveryAddress, &o.PlacedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lock order %d: %w", id, err)
	}

	orders := []models.Order{o}
	if err := loadItems(ctx, tx, orders); err != nil {
		return nil, err
	}
	o = orders[0]

	if err := check(&o); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, to, at, id); err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}

	if to == models.StatusCancelled {
		for _, item := range o.Items {
			// deleted products simply match no row
			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?`,
				item.Quantity, at, item.ProductID); err != nil {
				return nil, fmt.Errorf("restock product %d: %w", item.ProductID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status change: %w", err)
	}
	o.Status = to
	o.UpdatedAt = at
	return &o, nil
}
