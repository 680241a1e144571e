package domain

// PlatformStats is a snapshot of marketplace activity. Volume and fees only
// count COMPLETED orders.
type PlatformStats struct {
	Users            int64
	Listings         int64
	ListingsByStatus map[string]int64
	Orders           int64
	OrdersByStatus   map[string]int64
	CompletedVolume  float64
	PlatformFees     float64
	TransactionFees  float64
	Reviews          int64
}

// NewPlatformStats returns stats with initialized maps
func NewPlatformStats() *PlatformStats {
	return &PlatformStats{
		ListingsByStatus: make(map[string]int64),
		OrdersByStatus:   make(map[string]int64),
	}
}
