package adapters

import (
	"context"

	"gorm.io/gorm"

	"digimarket/internal/admin/domain"
	orderdomain "digimarket/internal/orders/domain"
	apperrors "digimarket/pkg/errors"
)

// PostgresStatsRepository aggregates stats with SQL over the marketplace tables
type PostgresStatsRepository struct {
	db *gorm.DB
}

// NewPostgresStatsRepository creates a new PostgreSQL stats repository
func NewPostgresStatsRepository(db *gorm.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

type statusCount struct {
	Status string
	Count  int64
}

type completedTotals struct {
	Volume          float64
	PlatformFees    float64
	TransactionFees float64
}

// GetPlatformStats returns platform-wide figures
func (r *PostgresStatsRepository) GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	db := r.db.WithContext(ctx)
	stats := domain.NewPlatformStats()

	if err := db.Table("users").Count(&stats.Users).Error; err != nil {
		return nil, apperrors.NewInternal("failed to count users", err)
	}
	if err := db.Table("reviews").Count(&stats.Reviews).Error; err != nil {
		return nil, apperrors.NewInternal("failed to count reviews", err)
	}

	var listings []statusCount
	if err := db.Table("listings").Select("status, COUNT(*) AS count").Group("status").Scan(&listings).Error; err != nil {
		return nil, apperrors.NewInternal("failed to count listings", err)
	}
	for _, row := range listings {
		stats.ListingsByStatus[row.Status] = row.Count
		stats.Listings += row.Count
	}

	var orders []statusCount
	if err := db.Table("orders").Select("status, COUNT(*) AS count").Group("status").Scan(&orders).Error; err != nil {
		return nil, apperrors.NewInternal("failed to count orders", err)
	}
	for _, row := range orders {
		stats.OrdersByStatus[row.Status] = row.Count
		stats.Orders += row.Count
	}

	var totals completedTotals
	err := db.Table("orders").
		Select("COALESCE(SUM(total_amount), 0) AS volume, COALESCE(SUM(platform_fee), 0) AS platform_fees, COALESCE(SUM(transaction_fee), 0) AS transaction_fees").
		Where("status = ?", orderdomain.OrderStatusCompleted).
		Scan(&totals).Error
	if err != nil {
		return nil, apperrors.NewInternal("failed to sum completed orders", err)
	}
	stats.CompletedVolume = totals.Volume
	stats.PlatformFees = totals.PlatformFees
	stats.TransactionFees = totals.TransactionFees

	return stats, nil
}
