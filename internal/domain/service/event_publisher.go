package service

import (
	"context"
	"time"
)

// Event types published after successful mutations.
const (
	EventThreadCreated  = "thread.created"
	EventProfileUpdated = "profile.updated"
	EventAccountDeleted = "account.deleted"
)

// Event is a domain event emitted after a mutation has been stored.
type Event struct {
	RequestID  string            `json:"request_id,omitempty"` // For tracing
	Type       string            `json:"type"`
	SubjectID  string            `json:"subject_id"` // Id of the thread or user the event is about
	ActorUID   string            `json:"actor_uid"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// Publish sends the event. Delivery is best effort for the callers.
	Publish(ctx context.Context, event *Event) error

	// Close releases any resources held by the publisher
	Close() error
}
