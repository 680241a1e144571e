package domain

import (
	"time"

	"digimarket/pkg/errors"
)

// Type classifies a notification
type Type string

const (
	TypeOrder  Type = "ORDER"
	TypeReview Type = "REVIEW"
	TypeSystem Type = "SYSTEM"
)

// Notification is a message addressed to one user
type Notification struct {
	ID        uint
	UserID    uint
	Type      Type
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

var (
	ErrUserRequired  = errors.NewValidation("notification user_id is required", nil)
	ErrTitleRequired = errors.NewValidation("notification title is required", nil)
	ErrNotRecipient  = errors.NewForbidden("notification belongs to another user")
)

// New creates a notification with validation
func New(userID uint, typ Type, title, message string, now time.Time) (*Notification, error) {
	if userID == 0 {
		return nil, ErrUserRequired
	}
	if title == "" {
		return nil, ErrTitleRequired
	}
	return &Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: now,
	}, nil
}

// NewNotFound creates a not found error with the notification ID
func NewNotFound(id uint) error {
	return errors.NewNotFound("notification", id)
}
