package domain

import (
	"context"
)

// EventBus defines the interface for event-driven notifications.
// Publishing is fire-and-forget: a bus failure is logged by the caller
// and never fails the originating request.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings
	ChannelBufferSize int

	// NATS settings
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names.
const (
	TopicAssessment   = "shafaf.assessment.scored"
	TopicConversation = "shafaf.assistant.exchange"
	TopicAlert        = "shafaf.assessment.alert"
)

// AssessmentEvent is the payload published on TopicAssessment and, for
// HIGH and CRITICAL results, on TopicAlert.
type AssessmentEvent struct {
	AssessmentID   string  `json:"assessment_id"`
	ContractNumber string  `json:"contract_number"`
	Supplier       string  `json:"supplier"`
	Amount         float64 `json:"amount"`
	Score          float64 `json:"risk_score"`
	Level          string  `json:"risk_level"`
	Flags          int     `json:"flags"`
}

// ConversationEvent is the payload published on TopicConversation.
type ConversationEvent struct {
	Intent     string  `json:"intent"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	UserID     string  `json:"user_id,omitempty"`
}
