package domain

import "digimarket/pkg/errors"

// Domain-specific errors
var (
	ErrOrderRequired    = errors.NewValidation("order_id is required", nil)
	ErrRatingRange      = errors.NewValidation("rating must be between 1 and 5", nil)
	ErrCommentLength    = errors.NewValidation("comment cannot exceed 2000 characters", nil)
	ErrNothingToUpdate  = errors.NewValidation("rating or comment is required", nil)
	ErrNotBuyer         = errors.NewForbidden("only the buyer can review this order")
	ErrNotGiver         = errors.NewForbidden("only the author or an admin can change this review")
	ErrOrderNotComplete = errors.NewInvalidState("only completed orders can be reviewed", nil)
	ErrAlreadyReviewed  = errors.NewConflict("this order has already been reviewed")
	ErrListFilter       = errors.NewValidation("listing_id or seller_id is required", nil)
)

// NewReviewNotFound creates a not found error with the review ID
func NewReviewNotFound(id uint) error {
	return errors.NewNotFound("review", id)
}
