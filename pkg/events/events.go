package events

import "time"

// ExchangeMarketplace is the topic exchange all marketplace events go to
const ExchangeMarketplace = "marketplace.events"

// Routing keys
const (
	RoutingKeyOrderCreated       = "order.created"
	RoutingKeyOrderCancelled     = "order.cancelled"
	RoutingKeyOrderCompleted     = "order.completed"
	RoutingKeyOrderStatusUpdated = "order.status_updated"
	RoutingKeyReviewCreated      = "review.created"
	RoutingKeyReviewUpdated      = "review.updated"
	RoutingKeyReviewDeleted      = "review.deleted"
)

const version = "1.0"

// OrderEvent is published on every order lifecycle change
type OrderEvent struct {
	Version   string       `json:"version"`
	EventType string       `json:"event_type"`
	Timestamp time.Time    `json:"timestamp"`
	TraceID   string       `json:"trace_id"`
	Payload   OrderPayload `json:"payload"`
}

// OrderPayload contains order data
type OrderPayload struct {
	ID             uint       `json:"id"`
	OrderNumber    string     `json:"order_number"`
	BuyerID        uint       `json:"buyer_id"`
	SellerID       uint       `json:"seller_id"`
	ListingID      uint       `json:"listing_id"`
	TotalAmount    float64    `json:"total_amount"`
	Status         string     `json:"status"`
	PaymentStatus  string     `json:"payment_status"`
	DeliveryStatus string     `json:"delivery_status"`
	ActorID        uint       `json:"actor_id"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewOrderEvent creates an OrderEvent for the given routing key
func NewOrderEvent(routingKey string, payload OrderPayload, traceID string, at time.Time) *OrderEvent {
	return &OrderEvent{
		Version:   version,
		EventType: routingKey,
		Timestamp: at,
		TraceID:   traceID,
		Payload:   payload,
	}
}

// ReviewEvent is published when a review is created, edited or removed
type ReviewEvent struct {
	Version   string        `json:"version"`
	EventType string        `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	TraceID   string        `json:"trace_id"`
	Payload   ReviewPayload `json:"payload"`
}

// ReviewPayload contains review data and the seller rating after the change
type ReviewPayload struct {
	ID           uint     `json:"id"`
	OrderID      uint     `json:"order_id"`
	ListingID    uint     `json:"listing_id"`
	GiverID      uint     `json:"giver_id"`
	SellerID     uint     `json:"seller_id"`
	Rating       int      `json:"rating"`
	SellerRating *float64 `json:"seller_rating"`
}

// NewReviewEvent creates a ReviewEvent for the given routing key
func NewReviewEvent(routingKey string, payload ReviewPayload, traceID string, at time.Time) *ReviewEvent {
	return &ReviewEvent{
		Version:   version,
		EventType: routingKey,
		Timestamp: at,
		TraceID:   traceID,
		Payload:   payload,
	}
}
