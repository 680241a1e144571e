package domain

import (
	stderrors "errors"

	"digimarket/pkg/errors"
)

// Domain-specific errors
var (
	ErrBuyerRequired         = errors.NewValidation("buyer_id is required", nil)
	ErrListingRequired       = errors.NewValidation("listing_id is required", nil)
	ErrInvalidPrice          = errors.NewValidation("listing price must be greater than 0", nil)
	ErrPaymentMethodRequired = errors.NewValidation("payment_method is required", nil)
	ErrNothingToUpdate       = errors.NewValidation("at least one of status, payment_status or delivery_status is required", nil)
	ErrSelfPurchase          = errors.NewForbidden("sellers cannot buy their own listing")
	ErrDuplicateRequest      = errors.NewConflict("a request with this idempotency key was already processed")

	ErrCancelForbidden   = errors.NewForbidden("only the buyer or seller can cancel this order")
	ErrStatusForbidden   = errors.NewForbidden("only an admin can change the order status")
	ErrPaymentForbidden  = errors.NewForbidden("only the buyer or an admin can change the payment status")
	ErrDeliveryForbidden = errors.NewForbidden("only the seller or an admin can change the delivery status")
	ErrListAllForbidden  = errors.NewForbidden("only an admin can list all orders")

	ErrOnlyBuyerCompletes = errors.NewInvalidState("only the buyer can complete an order", nil)
)

// ErrOrderNumberTaken is returned by repositories when the generated order
// number collides with an existing one
var ErrOrderNumberTaken = stderrors.New("order number already taken")

// NewOrderNotFound creates a not found error with the order ID
func NewOrderNotFound(id uint) error {
	return errors.NewNotFound("order", id)
}

// NewListingNotFound is returned when the listing is missing or not for sale
func NewListingNotFound(id uint) error {
	return errors.NewNotFound("listing", id)
}

// NewInvalidTransition reports a state machine violation
func NewInvalidTransition(from, to OrderStatus) error {
	return errors.NewInvalidState("order cannot move from "+string(from)+" to "+string(to), map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

// NewUnexpectedStatus reports that the order is not in the required status
func NewUnexpectedStatus(action string, current OrderStatus) error {
	return errors.NewInvalidState("order cannot be "+action+" while "+string(current), map[string]interface{}{
		"status": current,
	})
}
