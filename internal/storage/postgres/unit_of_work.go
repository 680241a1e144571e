// Package postgres wires the GORM repositories of every bounded context
// into one unit of work. Repositories returned while a transaction is open
// run on that transaction, otherwise on the main connection.
//
// Usage:
//
//	factory := NewGormUnitOfWorkFactory(db)
//	uow := factory.Create()
//
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() { _ = uow.Rollback(ctx) }()
//
//	if err := uow.OrderRepository().Create(ctx, order); err != nil {
//	    return err
//	}
//	return uow.Commit(ctx)
package postgres

import (
	"context"

	"gorm.io/gorm"

	catalogadapters "digimarket/internal/catalog/adapters"
	catalogports "digimarket/internal/catalog/ports"
	notificationadapters "digimarket/internal/notifications/adapters"
	notificationports "digimarket/internal/notifications/ports"
	orderadapters "digimarket/internal/orders/adapters"
	orderports "digimarket/internal/orders/ports"
	outboxadapters "digimarket/internal/outbox/adapters"
	outboxports "digimarket/internal/outbox/ports"
	reviewadapters "digimarket/internal/reviews/adapters"
	reviewports "digimarket/internal/reviews/ports"
)

// GormUnitOfWorkFactory creates UnitOfWork instances on one connection pool
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGormUnitOfWorkFactory creates a factory for GORM-based units of work
func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create produces a new unit of work. Each instance keeps its own
// transaction state, so goroutines must not share one.
func (f *GormUnitOfWorkFactory) Create() *GormUnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// Orders adapts the factory to the order use case
func (f *GormUnitOfWorkFactory) Orders() orderports.UnitOfWorkFactory {
	return orderports.UnitOfWorkFactoryFunc(func() orderports.UnitOfWork { return f.Create() })
}

// Reviews adapts the factory to the review use case
func (f *GormUnitOfWorkFactory) Reviews() reviewports.UnitOfWorkFactory {
	return reviewports.UnitOfWorkFactoryFunc(func() reviewports.UnitOfWork { return f.Create() })
}

// GormUnitOfWork coordinates one database transaction across repositories
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin opens a transaction. Calling it twice is a no-op.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx := uow.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	uow.tx = tx
	return nil
}

// Commit finalizes the transaction
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	return err
}

// Rollback discards the transaction
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}

// OrderRepository returns the order repository of the unit of work
func (uow *GormUnitOfWork) OrderRepository() orderports.OrderRepository {
	return orderadapters.NewPostgresOrderRepository(uow.conn())
}

// ListingRepository returns the listing repository of the unit of work
func (uow *GormUnitOfWork) ListingRepository() catalogports.ListingRepository {
	return catalogadapters.NewPostgresListingRepository(uow.conn())
}

// UserRepository returns the user repository of the unit of work
func (uow *GormUnitOfWork) UserRepository() catalogports.UserRepository {
	return catalogadapters.NewPostgresUserRepository(uow.conn())
}

// ReviewRepository returns the review repository of the unit of work
func (uow *GormUnitOfWork) ReviewRepository() reviewports.ReviewRepository {
	return reviewadapters.NewPostgresReviewRepository(uow.conn())
}

// NotificationRepository returns the notification repository of the unit of work
func (uow *GormUnitOfWork) NotificationRepository() notificationports.NotificationRepository {
	return notificationadapters.NewPostgresNotificationRepository(uow.conn())
}

// OutboxRepository returns the outbox repository of the unit of work
func (uow *GormUnitOfWork) OutboxRepository() outboxports.Repository {
	return outboxadapters.NewPostgresOutboxRepository(uow.conn())
}
