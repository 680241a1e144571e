package ports

import (
	"context"

	"digimarket/internal/notifications/domain"
)

// NotificationRepository defines the interface for notification persistence
type NotificationRepository interface {
	// Create stores a new notification
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID retrieves a notification by ID
	GetByID(ctx context.Context, id uint) (*domain.Notification, error)

	// ListByUser returns the notifications of a user, newest first
	ListByUser(ctx context.Context, userID uint, unreadOnly bool) ([]*domain.Notification, error)

	// MarkRead flags a notification as read
	MarkRead(ctx context.Context, id uint) error
}
