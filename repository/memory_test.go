package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
)

func seedProduct(t *testing.T, s *MemoryStore, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, UnitPrice: decimal.RequireFromString(price), StockQuantity: stock}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func newOrder(buyerID int64, at time.Time) *models.Order {
	return &models.Order{BuyerID: buyerID, Status: models.StatusPending, DeliveryAddress: "1 Market St", PlacedAt: at, UpdatedAt: at}
}

func stockOf(t *testing.T, s *MemoryStore, id int64) int {
	t.Helper()
	p, err := s.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func TestMemoryPlaceOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("decrements stock and snapshots items", func(t *testing.T) {
		s := NewMemoryStore()
		tomato := seedProduct(t, s, "Tomatoes", "50.00", 10)
		onion := seedProduct(t, s, "Onions", "12.25", 8)

		order := newOrder(1, now)
		err := s.PlaceOrder(ctx, order, []models.OrderLine{{ProductID: tomato.ID, Quantity: 2}, {ProductID: onion.ID, Quantity: 4}})
		require.NoError(t, err)

		assert.NotZero(t, order.ID)
		require.Len(t, order.Items, 2)
		assert.Equal(t, "Tomatoes", order.Items[0].Name)
		assert.True(t, order.Total().Equal(decimal.RequireFromString("149")))
		assert.Equal(t, 8, stockOf(t, s, tomato.ID))
		assert.Equal(t, 4, stockOf(t, s, onion.ID))
	})

	t.Run("insufficient stock leaves everything untouched", func(t *testing.T) {
		s := NewMemoryStore()
		tomato := seedProduct(t, s, "Tomatoes", "50.00", 10)
		onion := seedProduct(t, s, "Onions", "12.25", 3)

		err := s.PlaceOrder(ctx, newOrder(1, now), []models.OrderLine{{ProductID: tomato.ID, Quantity: 2}, {ProductID: onion.ID, Quantity: 4}})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.Contains(t, apperrors.Message(err), "Insufficient stock for Onions")
		assert.Equal(t, 10, stockOf(t, s, tomato.ID))
		assert.Equal(t, 3, stockOf(t, s, onion.ID))

		orders, _ := s.ListAllOrders(ctx)
		assert.Empty(t, orders)
	})

	t.Run("unknown product", func(t *testing.T) {
		s := NewMemoryStore()
		err := s.PlaceOrder(ctx, newOrder(1, now), []models.OrderLine{{ProductID: 99, Quantity: 1}})
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
		assert.Equal(t, "Product 99 not found", apperrors.Message(err))
	})
}

func TestMemoryConcurrentOrdersNeverOversell(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "Rice", "30.00", 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for buyer := int64(1); buyer <= 2; buyer++ {
		wg.Add(1)
		go func(buyer int64) {
			defer wg.Done()
			err := s.PlaceOrder(ctx, newOrder(buyer, time.Now()), []models.OrderLine{{ProductID: p.ID, Quantity: 7}})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperrors.KindOf(err) == apperrors.KindConflict {
				conflicts++
			}
		}(buyer)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 3, stockOf(t, s, p.ID))
}

func TestMemorySnapshotSurvivesCatalogueChanges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "Tomatoes", "50.00", 10)

	order := newOrder(1, time.Now())
	require.NoError(t, s.PlaceOrder(ctx, order, []models.OrderLine{{ProductID: p.ID, Quantity: 2}}))

	p.Name = "Cherry Tomatoes"
	p.UnitPrice = decimal.RequireFromString("80.00")
	require.NoError(t, s.UpdateProduct(ctx, p))
	require.NoError(t, s.DeleteProduct(ctx, p.ID))

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tomatoes", got.Items[0].Name)
	assert.True(t, got.Total().Equal(decimal.RequireFromString("100")))
}

func TestMemoryListOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "Rice", "1.00", 100)
	buyer := &models.User{Name: "Asha", Email: "asha@example.com", Role: models.RoleBuyer}
	require.NoError(t, s.CreateUser(ctx, buyer))

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var ids []int64
	for _, at := range []time.Time{base, base.Add(time.Hour), base.Add(time.Hour), base.Add(-time.Hour)} {
		o := newOrder(buyer.ID, at)
		require.NoError(t, s.PlaceOrder(ctx, o, []models.OrderLine{{ProductID: p.ID, Quantity: 1}}))
		ids = append(ids, o.ID)
	}
	other := newOrder(buyer.ID+1, base)
	require.NoError(t, s.PlaceOrder(ctx, other, []models.OrderLine{{ProductID: p.ID, Quantity: 1}}))

	mine, err := s.ListOrdersByBuyer(ctx, buyer.ID)
	require.NoError(t, err)
	got := make([]int64, 0, len(mine))
	for _, o := range mine {
		got = append(got, o.ID)
		assert.Equal(t, "Asha", o.BuyerName)
	}
	assert.Equal(t, []int64{ids[2], ids[1], ids[0], ids[3]}, got)

	all, err := s.ListAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMemoryTransitionOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	allow := func(*models.Order) error { return nil }

	tests := []struct {
		name      string
		to        models.OrderStatus
		check     TransitionCheck
		wantErr   apperrors.Kind
		wantStock int
	}{
		{name: "progress keeps stock", to: models.StatusInProgress, check: allow, wantStock: 6},
		{name: "cancel restocks", to: models.StatusCancelled, check: allow, wantStock: 10},
		{
			name:      "rejected check changes nothing",
			to:        models.StatusCancelled,
			check:     func(*models.Order) error { return apperrors.Forbidden("nope") },
			wantErr:   apperrors.KindForbidden,
			wantStock: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			p := seedProduct(t, s, "Rice", "1.00", 10)
			order := newOrder(1, now)
			require.NoError(t, s.PlaceOrder(ctx, order, []models.OrderLine{{ProductID: p.ID, Quantity: 4}}))

			later := now.Add(time.Minute)
			got, err := s.TransitionOrder(ctx, order.ID, tt.to, later, tt.check)
			if tt.wantErr != apperrors.KindInternal {
				assert.Equal(t, tt.wantErr, apperrors.KindOf(err))
				stored, _ := s.GetOrder(ctx, order.ID)
				assert.Equal(t, models.StatusPending, stored.Status)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.to, got.Status)
				assert.Equal(t, later, got.UpdatedAt)
			}
			assert.Equal(t, tt.wantStock, stockOf(t, s, p.ID))
		})
	}

	t.Run("missing order", func(t *testing.T) {
		s := NewMemoryStore()
		_, err := s.TransitionOrder(ctx, 42, models.StatusDelivered, now, allow)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := &models.User{Name: "Asha", Email: "asha@example.com", Role: models.RoleBuyer}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, int64(1), u.ID)

	err := s.CreateUser(ctx, &models.User{Name: "Other", Email: "ASHA@example.com"})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	byEmail, err := s.GetUserByEmail(ctx, "Asha@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUserByID(ctx, 7)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	require.NoError(t, s.UpdatePassword(ctx, u.ID, "new-hash"))
	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", byID.PasswordHash)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(s.UpdatePassword(ctx, 7, "x")))
}
