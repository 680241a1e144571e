package domain

import (
	"strings"
	"time"
)

// ListingStatus represents the availability of a listing
type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "ACTIVE"
	ListingStatusInactive ListingStatus = "INACTIVE"
	ListingStatusSold     ListingStatus = "SOLD"
)

// Valid reports whether s is a known status
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusActive, ListingStatusInactive, ListingStatusSold:
		return true
	}
	return false
}

// MaxPrice caps listing prices
const MaxPrice = 1000000

// Listing is a digital good offered by a seller
type Listing struct {
	ID          uint
	SellerID    uint
	Title       string
	Description string
	Category    string
	Price       float64
	Status      ListingStatus
	Sales       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the listing entity
func (l *Listing) Validate() error {
	if l.SellerID == 0 {
		return ErrSellerRequired
	}
	if l.Title == "" {
		return ErrTitleRequired
	}
	if len(l.Title) > 200 {
		return ErrTitleLength
	}
	if l.Price <= 0 {
		return ErrInvalidPrice
	}
	if l.Price > MaxPrice {
		return ErrPriceTooHigh
	}
	if !l.Status.Valid() {
		return ErrListingStatusInvalid
	}
	return nil
}

// IsPurchasable reports whether new orders may be placed
func (l *Listing) IsPurchasable() bool {
	return l.Status == ListingStatusActive
}

// NewListing creates an ACTIVE listing with validation
func NewListing(sellerID uint, title, description, category string, price float64, now time.Time) (*Listing, error) {
	listing := &Listing{
		SellerID:    sellerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		Price:       price,
		Status:      ListingStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := listing.Validate(); err != nil {
		return nil, err
	}

	return listing, nil
}

// ListingFilter narrows a listing search. Query matches title or
// description as a case-insensitive substring.
type ListingFilter struct {
	Query    string
	Category string
	SellerID uint
	Status   ListingStatus
	Limit    int
	Offset   int
}

// Normalize applies default paging and status
func (f *ListingFilter) Normalize() {
	f.Query = strings.TrimSpace(f.Query)
	if f.Status == "" {
		f.Status = ListingStatusActive
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Matches reports whether the listing satisfies the filter
func (f ListingFilter) Matches(l *Listing) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Category != "" && !strings.EqualFold(l.Category, f.Category) {
		return false
	}
	if f.SellerID != 0 && l.SellerID != f.SellerID {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
			return false
		}
	}
	return true
}
