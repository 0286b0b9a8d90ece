package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk-order-service/apperrors"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		role Role
		kind apperrors.Kind // KindInternal means success
	}{
		{StatusPending, StatusInProgress, RoleAdmin, apperrors.KindInternal},
		{StatusInProgress, StatusDelivered, RoleAdmin, apperrors.KindInternal},
		{StatusPending, StatusCancelled, RoleAdmin, apperrors.KindInternal},
		{StatusPending, StatusCancelled, RoleBuyer, apperrors.KindInternal},
		{StatusInProgress, StatusCancelled, RoleBuyer, apperrors.KindInternal},

		{StatusPending, StatusDelivered, RoleAdmin, apperrors.KindConflict},
		{StatusPending, StatusPending, RoleAdmin, apperrors.KindConflict},
		{StatusInProgress, StatusPending, RoleAdmin, apperrors.KindConflict},
		{StatusDelivered, StatusCancelled, RoleAdmin, apperrors.KindConflict},
		{StatusDelivered, StatusCancelled, RoleBuyer, apperrors.KindConflict},
		{StatusCancelled, StatusCancelled, RoleBuyer, apperrors.KindConflict},
		{StatusCancelled, StatusPending, RoleAdmin, apperrors.KindConflict},

		{StatusPending, StatusInProgress, RoleBuyer, apperrors.KindForbidden},
		{StatusInProgress, StatusDelivered, RoleBuyer, apperrors.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to)+"/"+string(tt.role), func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to, tt.role)
			if tt.kind == apperrors.KindInternal {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t, []OrderStatus{StatusInProgress, StatusCancelled}, NextStatuses(StatusPending, RoleAdmin))
	assert.Equal(t, []OrderStatus{StatusCancelled}, NextStatuses(StatusPending, RoleBuyer))
	assert.Equal(t, []OrderStatus{StatusDelivered, StatusCancelled}, NextStatuses(StatusInProgress, RoleAdmin))
	assert.Empty(t, NextStatuses(StatusDelivered, RoleAdmin))
	assert.Empty(t, NextStatuses(StatusCancelled, RoleBuyer))
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(StatusPending, RoleBuyer))
	assert.True(t, CanCancel(StatusInProgress, RoleAdmin))
	assert.False(t, CanCancel(StatusDelivered, RoleBuyer))
	assert.False(t, CanCancel(StatusCancelled, RoleAdmin))
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus(" In_Progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseOrderStatus("shipped")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestOrderTotal_UsesSnapshots(t *testing.T) {
	o := &Order{Items: []OrderItem{
		{ProductID: 7, UnitPrice: decimal.NewFromInt(50), Quantity: 2},
		{ProductID: 8, UnitPrice: decimal.RequireFromString("12.25"), Quantity: 4},
	}}
	assert.True(t, o.Total().Equal(decimal.NewFromInt(149)), o.Total().String())

	resp := NewOrderResponse(o)
	assert.True(t, resp.Total.Equal(o.Total()))
	assert.True(t, resp.Items[1].Subtotal.Equal(decimal.NewFromInt(49)))
}
