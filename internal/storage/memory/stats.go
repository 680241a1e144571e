package memory

import (
	"context"
	"math"

	"digimarket/internal/admin/domain"
	adminports "digimarket/internal/admin/ports"
	orderdomain "digimarket/internal/orders/domain"
)

type statsRepository struct {
	store *Store
}

// Stats returns the platform statistics repository
func (s *Store) Stats() adminports.StatsRepository {
	return &statsRepository{store: s}
}

func (r *statsRepository) GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	stats := domain.NewPlatformStats()
	err := r.store.access(nil, func(st *state) error {
		stats.Users = int64(len(st.users.rows))
		stats.Listings = int64(len(st.listings.rows))
		for _, l := range st.listings.rows {
			stats.ListingsByStatus[string(l.Status)]++
		}
		stats.Orders = int64(len(st.orders.rows))
		for _, o := range st.orders.rows {
			stats.OrdersByStatus[string(o.Status)]++
			if o.Status == orderdomain.OrderStatusCompleted {
				stats.CompletedVolume += o.TotalAmount
				stats.PlatformFees += o.PlatformFee
				stats.TransactionFees += o.TransactionFee
			}
		}
		stats.Reviews = int64(len(st.reviews.rows))
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.CompletedVolume = round2(stats.CompletedVolume)
	stats.PlatformFees = round2(stats.PlatformFees)
	stats.TransactionFees = round2(stats.TransactionFees)
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
