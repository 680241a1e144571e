package domain

import (
	"strings"
	"time"

	"digimarket/pkg/auth"
)

// Rating bounds and comment limit
const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 2000
)

// Review is a buyer's rating of a completed order. There is at most one
// review per order.
type Review struct {
	ID        uint
	OrderID   uint
	ListingID uint
	GiverID   uint
	SellerID  uint
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateRating checks the 1-5 range
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrRatingRange
	}
	return nil
}

// ValidateComment checks the comment length
func ValidateComment(comment string) error {
	if len(comment) > MaxCommentLength {
		return ErrCommentLength
	}
	return nil
}

// NewReview creates a review with validation
func NewReview(orderID, listingID, giverID, sellerID uint, rating int, comment string, now time.Time) (*Review, error) {
	if orderID == 0 {
		return nil, ErrOrderRequired
	}
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if err := ValidateComment(comment); err != nil {
		return nil, err
	}

	return &Review{
		OrderID:   orderID,
		ListingID: listingID,
		GiverID:   giverID,
		SellerID:  sellerID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanBeModifiedBy reports whether the actor is the giver or an admin
func (r *Review) CanBeModifiedBy(actor auth.Actor) bool {
	return actor.IsAdmin() || actor.Is(r.GiverID)
}

// Eligibility is the outcome of a review eligibility check
type Eligibility string

const (
	EligibilityNotAuthenticated Eligibility = "not_authenticated"
	EligibilityMissingListingID Eligibility = "missing_listing_id"
	EligibilityNoPurchase       Eligibility = "no_purchase"
	EligibilityAlreadyReviewed  Eligibility = "already_reviewed"
	EligibilityEligible         Eligibility = "eligible"
)

// ReviewEligibility tells a buyer whether they may review a listing.
// ReviewID is set when already reviewed, OrderID when eligible.
type ReviewEligibility struct {
	Status   Eligibility
	OrderID  uint
	ReviewID uint
}

// CanReview reports whether the status allows a new review
func (e ReviewEligibility) CanReview() bool {
	return e.Status == EligibilityEligible
}

// AverageRating returns the mean of ratings, nil when there are none
func AverageRating(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return &avg
}
