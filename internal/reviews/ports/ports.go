package ports

import (
	"context"

	catalogports "digimarket/internal/catalog/ports"
	notificationports "digimarket/internal/notifications/ports"
	orderports "digimarket/internal/orders/ports"
	outboxports "digimarket/internal/outbox/ports"
	"digimarket/internal/reviews/domain"
)

// ReviewFilter selects reviews of a listing or of a seller
type ReviewFilter struct {
	ListingID uint
	SellerID  uint
	Limit     int
	Offset    int
}

// ReviewRepository defines the interface for review persistence
type ReviewRepository interface {
	// Create stores a review. A second review for the same order returns
	// domain.ErrAlreadyReviewed.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id uint) (*domain.Review, error)

	// GetByOrderID retrieves the review of an order
	GetByOrderID(ctx context.Context, orderID uint) (*domain.Review, error)

	// FindByGiverAndListing returns the buyer's review of a listing
	FindByGiverAndListing(ctx context.Context, giverID, listingID uint) (*domain.Review, error)

	// Update stores the rating and comment of a review
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review
	Delete(ctx context.Context, id uint) error

	// AverageRatingForSeller returns the mean rating over all reviews the
	// seller received, nil when there are none
	AverageRatingForSeller(ctx context.Context, sellerID uint) (*float64, error)

	// List returns reviews matching the filter, newest first
	List(ctx context.Context, filter ReviewFilter) ([]*domain.Review, error)
}

// UnitOfWork is the transaction boundary of a review operation
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() orderports.OrderRepository
	ReviewRepository() ReviewRepository
	UserRepository() catalogports.UserRepository
	NotificationRepository() notificationports.NotificationRepository
	OutboxRepository() outboxports.Repository
}

// UnitOfWorkFactory creates a UnitOfWork per operation
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWorkFactoryFunc adapts a function to UnitOfWorkFactory
type UnitOfWorkFactoryFunc func() UnitOfWork

// Create calls f
func (f UnitOfWorkFactoryFunc) Create() UnitOfWork {
	return f()
}
