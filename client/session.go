// Package client is the Go SDK for the bulk order service: an HTTP API
// client plus the cart, submission and order-action helpers a front end
// needs. Identity and token are always passed explicitly; Session only
// holds them between calls.
package client

import (
	"sync"

	"bulk-order-service/models"
)

// Credentials is an immutable snapshot of who is calling.
type Credentials struct {
	Identity *models.Identity
	Token    string
}

func (c Credentials) Authenticated() bool {
	return c.Identity != nil && c.Token != ""
}

type Session struct {
	mu    sync.RWMutex
	creds Credentials
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Establish(identity *models.Identity, token string) {
	var copied *models.Identity
	if identity != nil {
		id := *identity
		copied = &id
	}
	s.mu.Lock()
	s.creds = Credentials{Identity: copied, Token: token}
	s.mu.Unlock()
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.creds = Credentials{}
	s.mu.Unlock()
}

func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.creds
	if c.Identity != nil {
		id := *c.Identity
		c.Identity = &id
	}
	return c
}
