package models

import (
	"fmt"
	"strings"

	"bulk-order-service/apperrors"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusInProgress OrderStatus = "in_progress"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var AllStatuses = []OrderStatus{StatusPending, StatusInProgress, StatusDelivered, StatusCancelled}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", apperrors.Validation(fmt.Sprintf("Unknown order status %q", s))
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Transition is one legal edge of the order lifecycle.
type Transition struct {
	From   OrderStatus
	To     OrderStatus
	Actors []Role
}

func (t Transition) AllowedFor(role Role) bool {
	for _, r := range t.Actors {
		if r == role {
			return true
		}
	}
	return false
}

// Transitions is the complete lifecycle table. Server validation and client
// gating both read it; nothing else defines legal moves.
var Transitions = []Transition{
	{From: StatusPending, To: StatusInProgress, Actors: []Role{RoleAdmin}},
	{From: StatusInProgress, To: StatusDelivered, Actors: []Role{RoleAdmin}},
	{From: StatusPending, To: StatusCancelled, Actors: []Role{RoleBuyer, RoleAdmin}},
	{From: StatusInProgress, To: StatusCancelled, Actors: []Role{RoleBuyer, RoleAdmin}},
}

func findTransition(from, to OrderStatus) (Transition, bool) {
	for _, t := range Transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// CheckTransition returns a conflict error when from→to is not an edge of the
// table, and a forbidden error when the edge exists but role may not take it.
func CheckTransition(from, to OrderStatus, role Role) error {
	if from.IsTerminal() {
		return apperrors.Conflict(fmt.Sprintf("Order is already %s", from))
	}
	t, ok := findTransition(from, to)
	if !ok {
		return apperrors.Conflict(fmt.Sprintf("Cannot change order status from %s to %s", from, to))
	}
	if !t.AllowedFor(role) {
		return apperrors.Forbidden(fmt.Sprintf("Role %s may not change order status from %s to %s", role, from, to))
	}
	return nil
}

// NextStatuses lists the statuses role may move an order to from its current status.
func NextStatuses(from OrderStatus, role Role) []OrderStatus {
	var out []OrderStatus
	for _, t := range Transitions {
		if t.From == from && t.AllowedFor(role) {
			out = append(out, t.To)
		}
	}
	return out
}

func CanCancel(from OrderStatus, role Role) bool {
	return CheckTransition(from, StatusCancelled, role) == nil
}
