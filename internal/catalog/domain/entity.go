package domain

import (
	"regexp"
	"strings"
	"time"

	"digimarket/pkg/auth"
)

// User is a marketplace account. Any user can buy and sell.
type User struct {
	ID              uint
	Name            string
	Email           string
	Role            auth.Role
	TotalSales      int
	CompletedOrders int
	// SellerRating is the mean rating over all reviews received, nil without reviews
	SellerRating *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EmailRegex is the pattern for validating emails
var EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validate validates the user entity
func (u *User) Validate() error {
	if u.Name == "" {
		return ErrNameRequired
	}
	if len(u.Name) < 2 || len(u.Name) > 100 {
		return ErrNameLength
	}
	if u.Email == "" {
		return ErrEmailRequired
	}
	if !EmailRegex.MatchString(u.Email) {
		return ErrEmailInvalid
	}
	if !u.Role.Valid() {
		return ErrRoleInvalid
	}
	return nil
}

// NewUser creates a new user with validation
func NewUser(name, email string, now time.Time) (*User, error) {
	user := &User{
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      auth.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}
