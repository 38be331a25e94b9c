// Package session carries the signed-in user's identity. A Session is
// built once per request and handed to every screen controller; it is never
// stored globally.
package session

import (
	"github.com/google/uuid"
)

type Session struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
}

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Anonymous reports whether no user is attached.
func (s Session) Anonymous() bool {
	return s.UserID == uuid.Nil
}

// ActorID returns the user id as an optional column value.
func (s Session) ActorID() *uuid.UUID {
	if s.Anonymous() {
		return nil
	}
	id := s.UserID
	return &id
}
