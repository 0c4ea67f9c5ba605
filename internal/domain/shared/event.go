package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact published to other systems after a state change
type DomainEvent struct {
	ID            uuid.UUID      `json:"id"`
	Type          string         `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	AggregateID   uuid.UUID      `json:"aggregate_id"`
	AggregateType string         `json:"aggregate_type"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// NewDomainEvent creates an event stamped with a fresh ID and the current time
func NewDomainEvent(eventType, aggType string, aggID uuid.UUID, payload map[string]any) DomainEvent {
	return DomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		AggregateID:   aggID,
		AggregateType: aggType,
		Payload:       payload,
	}
}

// EventPublisher delivers domain events to their consumers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventHandler consumes one published event
type EventHandler func(ctx context.Context, event DomainEvent) error
