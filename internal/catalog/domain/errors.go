package domain

import "digimarket/pkg/errors"

// Domain-specific errors
var (
	ErrNameRequired  = errors.NewValidation("name is required", nil)
	ErrNameLength    = errors.NewValidation("name must be between 2 and 100 characters", nil)
	ErrEmailRequired = errors.NewValidation("email is required", nil)
	ErrEmailInvalid  = errors.NewValidation("email format is invalid", nil)
	ErrRoleInvalid   = errors.NewValidation("role must be USER or ADMIN", nil)
	ErrEmailExists   = errors.NewConflict("email already exists")

	ErrSellerRequired       = errors.NewValidation("seller_id is required", nil)
	ErrTitleRequired        = errors.NewValidation("title is required", nil)
	ErrTitleLength          = errors.NewValidation("title cannot exceed 200 characters", nil)
	ErrInvalidPrice         = errors.NewValidation("price must be greater than 0", nil)
	ErrPriceTooHigh         = errors.NewValidation("price cannot exceed 1,000,000", nil)
	ErrListingStatusInvalid = errors.NewValidation("status must be ACTIVE, INACTIVE or SOLD", nil)
	ErrListingSold          = errors.NewInvalidState("listing has been sold", nil)
	ErrNotListingOwner      = errors.NewForbidden("only the seller or an admin can change this listing")
)

// NewUserNotFound creates a not found error with the user ID
func NewUserNotFound(id uint) error {
	return errors.NewNotFound("user", id)
}

// NewListingNotFound creates a not found error with the listing ID
func NewListingNotFound(id uint) error {
	return errors.NewNotFound("listing", id)
}
