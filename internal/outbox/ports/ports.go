package ports

import (
	"context"
	"time"

	"digimarket/internal/outbox/domain"
)

// Repository defines the interface for outbox persistence
type Repository interface {
	// Add records a pending event
	Add(ctx context.Context, event *domain.Event) error

	// FetchPending returns up to limit pending events, oldest first
	FetchPending(ctx context.Context, limit int) ([]*domain.Event, error)

	// MarkPublished flags an event as delivered
	MarkPublished(ctx context.Context, id uint, at time.Time) error

	// MarkFailed records a failed delivery attempt
	MarkFailed(ctx context.Context, id uint, reason string) error
}

// Publisher delivers a message to the broker
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}
