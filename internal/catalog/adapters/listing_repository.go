package adapters

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"digimarket/internal/catalog/domain"
	apperrors "digimarket/pkg/errors"
)

// ListingModel is the GORM model for listings
type ListingModel struct {
	ID          uint                 `gorm:"primaryKey"`
	SellerID    uint                 `gorm:"index;not null"`
	Title       string               `gorm:"size:200;not null"`
	Description string               `gorm:"type:text"`
	Category    string               `gorm:"size:100;index"`
	Price       float64              `gorm:"not null"`
	Status      domain.ListingStatus `gorm:"size:20;index;not null;default:'ACTIVE'"`
	Sales       int                  `gorm:"not null;default:0"`
	CreatedAt   time.Time            `gorm:"autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ListingModel) TableName() string {
	return "listings"
}

// PostgresListingRepository implements ListingRepository using PostgreSQL
type PostgresListingRepository struct {
	db *gorm.DB
}

// NewPostgresListingRepository creates a new PostgreSQL listing repository
func NewPostgresListingRepository(db *gorm.DB) *PostgresListingRepository {
	return &PostgresListingRepository{db: db}
}

// Create creates a new listing
func (r *PostgresListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	model := toListingModel(listing)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return apperrors.NewInternal("failed to create listing", err)
	}

	listing.ID = model.ID
	listing.CreatedAt = model.CreatedAt
	listing.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a listing by ID
func (r *PostgresListingRepository) GetByID(ctx context.Context, id uint) (*domain.Listing, error) {
	var model ListingModel

	result := r.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewListingNotFound(id)
		}
		return nil, apperrors.NewInternal("failed to get listing", result.Error)
	}

	return toListingDomain(&model), nil
}

// Search returns listings matching the filter
func (r *PostgresListingRepository) Search(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	query := r.db.WithContext(ctx).Model(&ListingModel{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(filter.Category))
	}
	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Query != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Query)) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []ListingModel
	if err := query.Offset(filter.Offset).Order("created_at DESC, id DESC").Find(&models).Error; err != nil {
		return nil, apperrors.NewInternal("failed to search listings", err)
	}

	listings := make([]*domain.Listing, len(models))
	for i := range models {
		listings[i] = toListingDomain(&models[i])
	}
	return listings, nil
}

// UpdateStatus sets the listing status
func (r *PostgresListingRepository) UpdateStatus(ctx context.Context, id uint, status domain.ListingStatus) error {
	result := r.db.WithContext(ctx).Model(&ListingModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return apperrors.NewInternal("failed to update listing status", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewListingNotFound(id)
	}
	return nil
}

// MarkSold sets the listing SOLD and increments sales
func (r *PostgresListingRepository) MarkSold(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&ListingModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": domain.ListingStatusSold,
			"sales":  gorm.Expr("sales + 1"),
		})
	if result.Error != nil {
		return apperrors.NewInternal("failed to mark listing sold", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewListingNotFound(id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toListingModel(listing *domain.Listing) *ListingModel {
	return &ListingModel{
		ID:          listing.ID,
		SellerID:    listing.SellerID,
		Title:       listing.Title,
		Description: listing.Description,
		Category:    listing.Category,
		Price:       listing.Price,
		Status:      listing.Status,
		Sales:       listing.Sales,
		CreatedAt:   listing.CreatedAt,
		UpdatedAt:   listing.UpdatedAt,
	}
}

func toListingDomain(model *ListingModel) *domain.Listing {
	return &domain.Listing{
		ID:          model.ID,
		SellerID:    model.SellerID,
		Title:       model.Title,
		Description: model.Description,
		Category:    model.Category,
		Price:       model.Price,
		Status:      model.Status,
		Sales:       model.Sales,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
