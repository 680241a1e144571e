package adapters

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"digimarket/internal/reviews/domain"
	"digimarket/internal/reviews/ports"
	apperrors "digimarket/pkg/errors"
)

// ReviewModel is the GORM model for reviews
type ReviewModel struct {
	ID        uint      `gorm:"primaryKey"`
	OrderID   uint      `gorm:"uniqueIndex;not null"`
	ListingID uint      `gorm:"index;not null"`
	GiverID   uint      `gorm:"index;not null"`
	SellerID  uint      `gorm:"index;not null"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ReviewModel) TableName() string {
	return "reviews"
}

// PostgresReviewRepository implements ReviewRepository using PostgreSQL
type PostgresReviewRepository struct {
	db *gorm.DB
}

// NewPostgresReviewRepository creates a new PostgreSQL review repository
func NewPostgresReviewRepository(db *gorm.DB) *PostgresReviewRepository {
	return &PostgresReviewRepository{db: db}
}

// Create stores a review. The unique index on order_id backs the
// one-review-per-order rule against concurrent inserts.
func (r *PostgresReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	model := toModel(review)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAlreadyReviewed
		}
		return apperrors.NewInternal("failed to create review", err)
	}

	review.ID = model.ID
	review.CreatedAt = model.CreatedAt
	review.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a review by ID
func (r *PostgresReviewRepository) GetByID(ctx context.Context, id uint) (*domain.Review, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id), domain.NewReviewNotFound(id))
}

// GetByOrderID retrieves the review of an order
func (r *PostgresReviewRepository) GetByOrderID(ctx context.Context, orderID uint) (*domain.Review, error) {
	return r.first(r.db.WithContext(ctx).Where("order_id = ?", orderID),
		apperrors.NewNotFound("review for order", orderID))
}

// FindByGiverAndListing returns the buyer's review of a listing
func (r *PostgresReviewRepository) FindByGiverAndListing(ctx context.Context, giverID, listingID uint) (*domain.Review, error) {
	return r.first(r.db.WithContext(ctx).Where("giver_id = ? AND listing_id = ?", giverID, listingID).Order("id"),
		apperrors.NewNotFound("review for listing", listingID))
}

func (r *PostgresReviewRepository) first(query *gorm.DB, notFound error) (*domain.Review, error) {
	var model ReviewModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, apperrors.NewInternal("failed to get review", err)
	}
	return toDomain(&model), nil
}

// Update stores the rating and comment of a review
func (r *PostgresReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	result := r.db.WithContext(ctx).Model(&ReviewModel{}).Where("id = ?", review.ID).Updates(map[string]interface{}{
		"rating":  review.Rating,
		"comment": review.Comment,
	})
	if result.Error != nil {
		return apperrors.NewInternal("failed to update review", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewReviewNotFound(review.ID)
	}
	return nil
}

// Delete removes a review
func (r *PostgresReviewRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&ReviewModel{}, id)
	if result.Error != nil {
		return apperrors.NewInternal("failed to delete review", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewReviewNotFound(id)
	}
	return nil
}

// AverageRatingForSeller returns AVG(rating), nil when the seller has no reviews
func (r *PostgresReviewRepository) AverageRatingForSeller(ctx context.Context, sellerID uint) (*float64, error) {
	var avg sql.NullFloat64
	err := r.db.WithContext(ctx).Model(&ReviewModel{}).
		Select("AVG(rating)::float8").
		Where("seller_id = ?", sellerID).
		Row().
		Scan(&avg)
	if err != nil {
		return nil, apperrors.NewInternal("failed to compute seller rating", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// List returns reviews matching the filter, newest first
func (r *PostgresReviewRepository) List(ctx context.Context, filter ports.ReviewFilter) ([]*domain.Review, error) {
	query := r.db.WithContext(ctx).Model(&ReviewModel{})
	if filter.ListingID != 0 {
		query = query.Where("listing_id = ?", filter.ListingID)
	}
	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []ReviewModel
	if err := query.Offset(filter.Offset).Order("created_at DESC, id DESC").Find(&models).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list reviews", err)
	}

	out := make([]*domain.Review, len(models))
	for i := range models {
		out[i] = toDomain(&models[i])
	}
	return out, nil
}

func toModel(r *domain.Review) *ReviewModel {
	return &ReviewModel{
		ID:        r.ID,
		OrderID:   r.OrderID,
		ListingID: r.ListingID,
		GiverID:   r.GiverID,
		SellerID:  r.SellerID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toDomain(m *ReviewModel) *domain.Review {
	return &domain.Review{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ListingID: m.ListingID,
		GiverID:   m.GiverID,
		SellerID:  m.SellerID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
