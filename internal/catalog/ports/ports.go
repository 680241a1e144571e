package ports

import (
	"context"

	"digimarket/internal/catalog/domain"
	"digimarket/pkg/auth"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uint) (*domain.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// IncrementSellerStats adds one completed order and one sale to the seller
	IncrementSellerStats(ctx context.Context, sellerID uint) error

	// SetSellerRating stores the recomputed rating, nil clears it
	SetSellerRating(ctx context.Context, sellerID uint, rating *float64) error

	// UpdateRole changes the platform role of a user
	UpdateRole(ctx context.Context, id uint, role auth.Role) error
}

// ListingRepository defines the interface for listing persistence
type ListingRepository interface {
	// Create creates a new listing
	Create(ctx context.Context, listing *domain.Listing) error

	// GetByID retrieves a listing by ID
	GetByID(ctx context.Context, id uint) (*domain.Listing, error)

	// Search returns listings matching the filter, newest first
	Search(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error)

	// UpdateStatus sets the listing status
	UpdateStatus(ctx context.Context, id uint, status domain.ListingStatus) error

	// MarkSold sets the listing SOLD and increments its sales counter
	MarkSold(ctx context.Context, id uint) error
}
