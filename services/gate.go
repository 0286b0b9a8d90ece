package services

import (
	"bulk-order-service/apperrors"
	"bulk-order-service/auth"
	"bulk-order-service/models"
)

// authorize turns a gate decision into the matching error.
func authorize(identity *models.Identity, roles ...models.Role) error {
	switch auth.Check(identity, roles...) {
	case auth.DenyUnauthenticated:
		return apperrors.Unauthorized("Authentication required")
	case auth.DenyForbidden:
		return apperrors.Forbidden("Insufficient permissions")
	default:
		return nil
	}
}

func ownsOrAdmin(identity *models.Identity, order *models.Order) bool {
	return order.BuyerID == identity.UserID || auth.Allowed(identity, models.RoleAdmin)
}
