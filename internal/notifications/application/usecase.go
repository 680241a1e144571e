package application

import (
	"context"
	"time"

	"digimarket/internal/notifications/domain"
	"digimarket/internal/notifications/ports"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/logger"

	"go.uber.org/zap"
)

// Message is a notification to deliver to one user
type Message struct {
	UserID  uint
	Type    domain.Type
	Title   string
	Message string
}

// Send records each message through repo. Callers pass a repository bound
// to their transaction so notifications commit with the change they describe.
func Send(ctx context.Context, repo ports.NotificationRepository, now time.Time, msgs ...Message) error {
	for _, m := range msgs {
		n, err := domain.New(m.UserID, m.Type, m.Title, m.Message, now)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, n); err != nil {
			return errors.Internalize(err, "failed to create notification")
		}
	}
	return nil
}

// NotificationUseCase handles reading notifications
type NotificationUseCase struct {
	repo ports.NotificationRepository
	log  *logger.Logger
}

// NewNotificationUseCase creates a new notification use case
func NewNotificationUseCase(repo ports.NotificationRepository, log *logger.Logger) *NotificationUseCase {
	return &NotificationUseCase{repo: repo, log: log}
}

// ListNotificationsInput represents the input for listing notifications
type ListNotificationsInput struct {
	Actor      auth.Actor
	UnreadOnly bool
}

// ListNotifications returns the notifications addressed to the actor
func (uc *NotificationUseCase) ListNotifications(ctx context.Context, input ListNotificationsInput) ([]*domain.Notification, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}
	return uc.repo.ListByUser(ctx, input.Actor.UserID, input.UnreadOnly)
}

// MarkReadInput represents the input for marking a notification read
type MarkReadInput struct {
	Actor          auth.Actor
	NotificationID uint
}

// MarkRead flags one of the actor's notifications as read
func (uc *NotificationUseCase) MarkRead(ctx context.Context, input MarkReadInput) (*domain.Notification, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}

	n, err := uc.repo.GetByID(ctx, input.NotificationID)
	if err != nil {
		return nil, err
	}
	if !input.Actor.Is(n.UserID) {
		return nil, domain.ErrNotRecipient
	}
	if n.Read {
		return n, nil
	}

	if err := uc.repo.MarkRead(ctx, n.ID); err != nil {
		return nil, err
	}
	n.Read = true

	uc.log.WithContext(ctx).Debug("notification read",
		zap.Uint("notification_id", n.ID),
		zap.Uint("user_id", n.UserID),
	)
	return n, nil
}
