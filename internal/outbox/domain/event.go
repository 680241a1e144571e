package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the delivery state of an outbox event
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
)

// Event is a message recorded in the same transaction as the change it
// describes and published to the broker afterwards
type Event struct {
	ID          uint
	RoutingKey  string
	Payload     json.RawMessage
	Status      Status
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewEvent marshals message into a pending event
func NewEvent(routingKey string, message interface{}, now time.Time) (*Event, error) {
	if routingKey == "" {
		return nil, fmt.Errorf("outbox event needs a routing key")
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	return &Event{
		RoutingKey: routingKey,
		Payload:    payload,
		Status:     StatusPending,
		CreatedAt:  now,
	}, nil
}
