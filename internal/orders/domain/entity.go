package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// PaymentStatus is recorded on the order, no payment is processed
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// DeliveryStatus tracks handover of the digital good
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
)

// Fee rates applied to the listing price at order creation
const (
	PlatformFeeRate    = 0.05
	TransactionFeeRate = 0.02
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Valid reports whether s is a known delivery status
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusDelivered, DeliveryStatusFailed:
		return true
	}
	return false
}

// Order is a purchase of one listing by one buyer
type Order struct {
	ID             uint
	OrderNumber    string
	BuyerID        uint
	SellerID       uint
	ListingID      uint
	TotalAmount    float64
	PlatformFee    float64
	TransactionFee float64
	PaymentMethod  string
	Status         OrderStatus
	PaymentStatus  PaymentStatus
	DeliveryStatus DeliveryStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// Fees is the frozen price breakdown of an order
type Fees struct {
	PlatformFee    float64
	TransactionFee float64
	TotalAmount    float64
}

// CalculateFees derives fees from the listing price, each rounded to cents
func CalculateFees(price float64) Fees {
	platform := round2(price * PlatformFeeRate)
	transaction := round2(price * TransactionFeeRate)
	return Fees{
		PlatformFee:    platform,
		TransactionFee: transaction,
		TotalAmount:    round2(price + platform + transaction),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NewOrderNumber builds a human-readable order number, ORD-YYYYMMDD-XXXXXXXX
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// NewOrder creates a PENDING order for a listing with validation
func NewOrder(buyerID, sellerID, listingID uint, price float64, paymentMethod, orderNumber string, now time.Time) (*Order, error) {
	if buyerID == 0 {
		return nil, ErrBuyerRequired
	}
	if listingID == 0 {
		return nil, ErrListingRequired
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		return nil, ErrPaymentMethodRequired
	}
	if buyerID == sellerID {
		return nil, ErrSelfPurchase
	}

	fees := CalculateFees(price)
	return &Order{
		OrderNumber:    orderNumber,
		BuyerID:        buyerID,
		SellerID:       sellerID,
		ListingID:      listingID,
		TotalAmount:    fees.TotalAmount,
		PlatformFee:    fees.PlatformFee,
		TransactionFee: fees.TransactionFee,
		PaymentMethod:  paymentMethod,
		Status:         OrderStatusPending,
		PaymentStatus:  PaymentStatusPending,
		DeliveryStatus: DeliveryStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsParty reports whether userID is the buyer or the seller
func (o *Order) IsParty(userID uint) bool {
	return userID != 0 && (o.BuyerID == userID || o.SellerID == userID)
}

// CounterpartyOf returns the other party of the order
func (o *Order) CounterpartyOf(userID uint) uint {
	if userID == o.BuyerID {
		return o.SellerID
	}
	return o.BuyerID
}
