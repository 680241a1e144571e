package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"

	"digimarket/internal/outbox/domain"
	apperrors "digimarket/pkg/errors"
)

// EventModel is the GORM model for outbox events
type EventModel struct {
	ID          uint          `gorm:"primaryKey"`
	RoutingKey  string        `gorm:"size:100;not null"`
	Payload     []byte        `gorm:"type:jsonb;not null"`
	Status      domain.Status `gorm:"size:20;not null;index:idx_outbox_status_id,priority:1"`
	Attempts    int           `gorm:"not null;default:0"`
	LastError   string        `gorm:"type:text"`
	CreatedAt   time.Time     `gorm:"autoCreateTime"`
	PublishedAt *time.Time
}

// TableName returns the table name for GORM
func (EventModel) TableName() string {
	return "outbox_events"
}

// PostgresOutboxRepository implements Repository using PostgreSQL
type PostgresOutboxRepository struct {
	db *gorm.DB
}

// NewPostgresOutboxRepository creates a new PostgreSQL outbox repository
func NewPostgresOutboxRepository(db *gorm.DB) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

// Add records a pending event
func (r *PostgresOutboxRepository) Add(ctx context.Context, event *domain.Event) error {
	model := EventModel{
		RoutingKey: event.RoutingKey,
		Payload:    event.Payload,
		Status:     event.Status,
		CreatedAt:  event.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return apperrors.NewInternal("failed to add outbox event", err)
	}
	event.ID = model.ID
	return nil
}

// FetchPending returns pending events oldest first
func (r *PostgresOutboxRepository) FetchPending(ctx context.Context, limit int) ([]*domain.Event, error) {
	var models []EventModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.NewInternal("failed to fetch outbox events", err)
	}

	events := make([]*domain.Event, len(models))
	for i, m := range models {
		events[i] = &domain.Event{
			ID:          m.ID,
			RoutingKey:  m.RoutingKey,
			Payload:     m.Payload,
			Status:      m.Status,
			Attempts:    m.Attempts,
			LastError:   m.LastError,
			CreatedAt:   m.CreatedAt,
			PublishedAt: m.PublishedAt,
		}
	}
	return events, nil
}

// MarkPublished flags an event as delivered
func (r *PostgresOutboxRepository) MarkPublished(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&EventModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.StatusPublished,
			"published_at": at,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
	if err != nil {
		return apperrors.NewInternal("failed to mark outbox event published", err)
	}
	return nil
}

// MarkFailed records a failed attempt and leaves the event pending
func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	err := r.db.WithContext(ctx).Model(&EventModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
	if err != nil {
		return apperrors.NewInternal("failed to record outbox failure", err)
	}
	return nil
}
