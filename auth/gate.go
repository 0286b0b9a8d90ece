// Package auth holds the role gate: a side-effect free decision over an
// identity and the roles an action or route requires.
package auth

import "bulk-order-service/models"

type Decision int

const (
	Permit Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

const (
	LoginPath   = "/login"
	DefaultPath = "/"
)

func (d Decision) Allowed() bool { return d == Permit }

// RedirectTo is where a denied caller should be sent. Empty when permitted.
func (d Decision) RedirectTo() string {
	switch d {
	case DenyUnauthenticated:
		return LoginPath
	case DenyForbidden:
		return DefaultPath
	default:
		return ""
	}
}

// Check denies a missing identity, then denies an identity whose role is not
// in required. An empty required set admits any authenticated identity.
func Check(identity *models.Identity, required ...models.Role) Decision {
	if identity == nil {
		return DenyUnauthenticated
	}
	if len(required) == 0 {
		return Permit
	}
	for _, role := range required {
		if identity.Role == role {
			return Permit
		}
	}
	return DenyForbidden
}

func Allowed(identity *models.Identity, required ...models.Role) bool {
	return Check(identity, required...).Allowed()
}
