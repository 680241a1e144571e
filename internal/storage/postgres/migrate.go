package postgres

import (
	"gorm.io/gorm"

	catalogadapters "digimarket/internal/catalog/adapters"
	notificationadapters "digimarket/internal/notifications/adapters"
	orderadapters "digimarket/internal/orders/adapters"
	outboxadapters "digimarket/internal/outbox/adapters"
	reviewadapters "digimarket/internal/reviews/adapters"
)

// Models lists every table owned by the marketplace
func Models() []interface{} {
	return []interface{}{
		&catalogadapters.UserModel{},
		&catalogadapters.ListingModel{},
		&orderadapters.OrderModel{},
		&reviewadapters.ReviewModel{},
		&notificationadapters.NotificationModel{},
		&outboxadapters.EventModel{},
	}
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
