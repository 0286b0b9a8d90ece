package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestMySQLPlaceOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	lockQuery := "SELECT name, unit_price, image_url, stock_quantity FROM products WHERE id = \\? FOR UPDATE"

	t.Run("commits order and items", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewMySQLOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"name", "unit_price", "image_url", "stock_quantity"}).AddRow("Tomatoes", "50.00", "", 10))
		mock.ExpectExec("UPDATE products SET stock_quantity = stock_quantity -").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(lockQuery).WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"name", "unit_price", "image_url", "stock_quantity"}).AddRow("Onions", "12.25", "", 8))
		mock.ExpectExec("UPDATE products SET stock_quantity = stock_quantity -").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(31, 1))
		mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		order := newOrder(5, now)
		err := repo.PlaceOrder(ctx, order, []models.OrderLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 4}})
		require.NoError(t, err)
		assert.Equal(t, int64(31), order.ID)
		assert.True(t, order.Total().Equal(decimal.RequireFromString("149")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on insufficient stock", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewMySQLOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"name", "unit_price", "image_url", "stock_quantity"}).AddRow("Tomatoes", "50.00", "", 1))
		mock.ExpectRollback()

		err := repo.PlaceOrder(ctx, newOrder(5, now), []models.OrderLine{{ProductID: 1, Quantity: 2}})
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on unknown product", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewMySQLOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.PlaceOrder(ctx, newOrder(5, now), []models.OrderLine{{ProductID: 9, Quantity: 1}})
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
		assert.Equal(t, "Product 9 not found", apperrors.Message(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLTransitionOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	orderCols := []string{"id", "buyer_id", "status", "delivery_address", "placed_at", "updated_at"}
	itemCols := []string{"order_id", "product_id", "name", "unit_price", "image_url", "quantity"}

	t.Run("cancel restocks every item", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewMySQLOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders WHERE id = \\? FOR UPDATE").WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(7, 5, "pending", "1 Market St", now, now))
		mock.ExpectQuery("FROM order_items WHERE order_id IN").WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(itemCols).
				AddRow(7, 1, "Tomatoes", "50.00", "", 2).
				AddRow(7, 2, "Onions", "12.25", "", 4))
		mock.ExpectExec("UPDATE orders SET status").WithArgs(models.StatusCancelled, sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE products SET stock_quantity = stock_quantity \\+").WithArgs(2, sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE products SET stock_quantity = stock_quantity \\+").WithArgs(4, sqlmock.AnyArg(), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		got, err := repo.TransitionOrder(ctx, 7, models.StatusCancelled, now.Add(time.Minute), func(*models.Order) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.Len(t, got.Items, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed check rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewMySQLOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders WHERE id = \\? FOR UPDATE").WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(7, 5, "delivered", "1 Market St", now, now))
		mock.ExpectQuery("FROM order_items WHERE order_id IN").WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(itemCols))
		mock.ExpectRollback()

		_, err := repo.TransitionOrder(ctx, 7, models.StatusCancelled, now, func(o *models.Order) error {
			return models.CheckTransition(o.Status, models.StatusCancelled, models.RoleBuyer)
		})
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing order", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewMySQLOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM orders WHERE id = \\? FOR UPDATE").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.TransitionOrder(ctx, 7, models.StatusDelivered, now, func(*models.Order) error { return nil })
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLGetOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	db, mock := newMock(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectQuery("FROM orders o LEFT JOIN users u").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "name", "status", "delivery_address", "placed_at", "updated_at"}).
			AddRow(3, 5, "Asha", "in_progress", "1 Market St", now, now))
	mock.ExpectQuery("FROM order_items WHERE order_id IN").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "name", "unit_price", "image_url", "quantity"}).
			AddRow(3, 1, "Tomatoes", "50.00", "", 2))

	got, err := repo.GetOrder(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.BuyerName)
	assert.Equal(t, models.StatusInProgress, got.Status)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Total().Equal(decimal.RequireFromString("100")))

	mock.ExpectQuery("FROM orders o LEFT JOIN users u").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "name", "status", "delivery_address", "placed_at", "updated_at"}))
	_, err = repo.GetOrder(ctx, 4)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCreateUserDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMySQLUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.CreateUser(context.Background(), &models.User{Name: "Asha", Email: "asha@example.com", Role: models.RoleBuyer})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUpdatePassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMySQLUserRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users SET password_hash = \\? WHERE id = \\?").
		WithArgs("new-hash", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePassword(ctx, 3, "new-hash"))

	mock.ExpectExec("UPDATE users").
		WithArgs("new-hash", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdatePassword(ctx, 9, "new-hash")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLProductNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMySQLProductRepository(db)

	mock.ExpectExec("DELETE FROM products").WithArgs(int64(12)).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.DeleteProduct(context.Background(), 12)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	mock.ExpectQuery("FROM products WHERE id = \\?").WithArgs(int64(12)).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetProduct(context.Background(), 12)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
