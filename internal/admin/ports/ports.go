package ports

import (
	"context"

	"digimarket/internal/admin/domain"
)

// StatsRepository aggregates platform-wide figures
type StatsRepository interface {
	GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error)
}
