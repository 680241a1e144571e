// Package auth carries the identity supplied by the upstream auth proxy.
package auth

import (
	"strconv"
	"strings"
)

// Role is a platform-level role
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole normalizes a role value. Unknown values fall back to RoleUser.
func ParseRole(v string) Role {
	if Role(strings.ToUpper(strings.TrimSpace(v))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Actor is the caller of an operation. The zero value is anonymous.
type Actor struct {
	UserID uint
	Role   Role
}

// NewActor builds an actor from raw header or metadata values
func NewActor(userID, role string) Actor {
	id, err := strconv.ParseUint(strings.TrimSpace(userID), 10, 64)
	if err != nil || id == 0 {
		return Actor{}
	}
	return Actor{UserID: uint(id), Role: ParseRole(role)}
}

// IsAuthenticated reports whether the actor carries a user id
func (a Actor) IsAuthenticated() bool {
	return a.UserID != 0
}

// IsAdmin reports whether the actor is an authenticated admin
func (a Actor) IsAdmin() bool {
	return a.IsAuthenticated() && a.Role == RoleAdmin
}

// Is reports whether the actor is the given user
func (a Actor) Is(userID uint) bool {
	return a.IsAuthenticated() && a.UserID == userID
}
