package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"digimarket/internal/notifications/domain"
	apperrors "digimarket/pkg/errors"
)

// NotificationModel is the GORM model for notifications
type NotificationModel struct {
	ID        uint        `gorm:"primaryKey"`
	UserID    uint        `gorm:"index;not null"`
	Type      domain.Type `gorm:"size:20;not null"`
	Title     string      `gorm:"size:200;not null"`
	Message   string      `gorm:"type:text"`
	Read      bool        `gorm:"column:is_read;not null;default:false"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// PostgresNotificationRepository implements NotificationRepository using PostgreSQL
type PostgresNotificationRepository struct {
	db *gorm.DB
}

// NewPostgresNotificationRepository creates a new PostgreSQL notification repository
func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// Create stores a notification
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	model := NotificationModel{
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return apperrors.NewInternal("failed to create notification", err)
	}
	n.ID = model.ID
	n.CreatedAt = model.CreatedAt
	return nil
}

// GetByID retrieves a notification by ID
func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id uint) (*domain.Notification, error) {
	var model NotificationModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFound(id)
		}
		return nil, apperrors.NewInternal("failed to get notification", err)
	}
	return toDomain(&model), nil
}

// ListByUser returns the notifications of a user
func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool) ([]*domain.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var models []NotificationModel
	if err := query.Order("created_at DESC, id DESC").Find(&models).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list notifications", err)
	}

	out := make([]*domain.Notification, len(models))
	for i := range models {
		out[i] = toDomain(&models[i])
	}
	return out, nil
}

// MarkRead flags a notification as read
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&NotificationModel{}).Where("id = ?", id).Update("is_read", true)
	if result.Error != nil {
		return apperrors.NewInternal("failed to mark notification read", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFound(id)
	}
	return nil
}

func toDomain(m *NotificationModel) *domain.Notification {
	return &domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Type:      m.Type,
		Title:     m.Title,
		Message:   m.Message,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}
