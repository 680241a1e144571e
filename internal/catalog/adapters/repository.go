package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"digimarket/internal/catalog/domain"
	"digimarket/pkg/auth"
	apperrors "digimarket/pkg/errors"
)

// UserModel is the GORM model for users (persistence layer)
type UserModel struct {
	ID              uint      `gorm:"primaryKey"`
	Name            string    `gorm:"size:100;not null"`
	Email           string    `gorm:"size:255;uniqueIndex;not null"`
	Role            auth.Role `gorm:"size:20;not null;default:'USER'"`
	TotalSales      int       `gorm:"not null;default:0"`
	CompletedOrders int       `gorm:"not null;default:0"`
	SellerRating    *float64
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	model := toUserModel(user)

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailExists
		}
		return apperrors.NewInternal("failed to create user", result.Error)
	}

	// Update domain entity with generated ID
	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var model UserModel

	result := r.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewUserNotFound(id)
		}
		return nil, apperrors.NewInternal("failed to get user", result.Error)
	}

	return toUserDomain(&model), nil
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserModel

	result := r.db.WithContext(ctx).Where("email = ?", email).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user", email)
		}
		return nil, apperrors.NewInternal("failed to get user by email", result.Error)
	}

	return toUserDomain(&model), nil
}

// IncrementSellerStats adds one completed order and one sale in a single statement
func (r *PostgresUserRepository) IncrementSellerStats(ctx context.Context, sellerID uint) error {
	result := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", sellerID).
		Updates(map[string]interface{}{
			"completed_orders": gorm.Expr("completed_orders + 1"),
			"total_sales":      gorm.Expr("total_sales + 1"),
		})
	if result.Error != nil {
		return apperrors.NewInternal("failed to update seller stats", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewUserNotFound(sellerID)
	}
	return nil
}

// SetSellerRating stores the seller rating
func (r *PostgresUserRepository) SetSellerRating(ctx context.Context, sellerID uint, rating *float64) error {
	result := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", sellerID).
		Update("seller_rating", rating)
	if result.Error != nil {
		return apperrors.NewInternal("failed to update seller rating", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewUserNotFound(sellerID)
	}
	return nil
}

// UpdateRole changes the role of a user
func (r *PostgresUserRepository) UpdateRole(ctx context.Context, id uint, role auth.Role) error {
	result := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return apperrors.NewInternal("failed to update user role", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewUserNotFound(id)
	}
	return nil
}

func toUserModel(user *domain.User) *UserModel {
	return &UserModel{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Role:            user.Role,
		TotalSales:      user.TotalSales,
		CompletedOrders: user.CompletedOrders,
		SellerRating:    user.SellerRating,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

func toUserDomain(model *UserModel) *domain.User {
	return &domain.User{
		ID:              model.ID,
		Name:            model.Name,
		Email:           model.Email,
		Role:            model.Role,
		TotalSales:      model.TotalSales,
		CompletedOrders: model.CompletedOrders,
		SellerRating:    model.SellerRating,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
