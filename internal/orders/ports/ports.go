package ports

import (
	"context"
	"time"

	catalogports "digimarket/internal/catalog/ports"
	notificationports "digimarket/internal/notifications/ports"
	"digimarket/internal/orders/domain"
	outboxports "digimarket/internal/outbox/ports"
)

// OrderFilter narrows an order listing. Zero values do not filter.
type OrderFilter struct {
	BuyerID  uint
	SellerID uint
	// PartyID matches orders where the user is buyer or seller
	PartyID uint
	Status  domain.OrderStatus
	Limit   int
	Offset  int
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create inserts a new order. It returns domain.ErrOrderNumberTaken when
	// the order number collides and leaves the transaction usable.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID
	GetByID(ctx context.Context, id uint) (*domain.Order, error)

	// GetForUpdate retrieves an order and locks its row until the
	// transaction ends
	GetForUpdate(ctx context.Context, id uint) (*domain.Order, error)

	// List returns orders matching the filter, newest first
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)

	// TransitionStatus moves the order from one status to another only if
	// it is still in from. completedAt is stored when not nil. A lost race
	// returns an invalid state error.
	TransitionStatus(ctx context.Context, id uint, from, to domain.OrderStatus, completedAt *time.Time) error

	// UpdatePaymentStatus stores a new payment status
	UpdatePaymentStatus(ctx context.Context, id uint, status domain.PaymentStatus) error

	// UpdateDeliveryStatus stores a new delivery status
	UpdateDeliveryStatus(ctx context.Context, id uint, status domain.DeliveryStatus) error

	// FindCompletedByBuyerAndListing returns the latest COMPLETED order of
	// the buyer for the listing, or a not found error
	FindCompletedByBuyerAndListing(ctx context.Context, buyerID, listingID uint) (*domain.Order, error)
}

// UnitOfWork is the transaction boundary of an order operation. Every
// repository it returns runs inside the transaction opened by Begin.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() OrderRepository
	ListingRepository() catalogports.ListingRepository
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

// IdempotencyStore detects repeated create requests
type IdempotencyStore interface {
	// Reserve claims key within scope, false if it was already claimed
	Reserve(ctx context.Context, scope, key string) (bool, error)

	// Release drops a claim so the request can be retried
	Release(ctx context.Context, scope, key string) error
}
