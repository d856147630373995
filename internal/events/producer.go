package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types published to the request-events topic
const (
	EventRequestCreated    = "request.created"
	EventRequestAccepted   = "request.accepted"
	EventRequestRejected   = "request.rejected"
	EventRequestDispatched = "request.dispatched"
	EventRequestCompleted  = "request.completed"
	EventRequestCancelled  = "request.cancelled"
	EventRequestDeleted    = "request.deleted"
)

// RequestEvent is the payload for lifecycle transitions
type RequestEvent struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	BloodGroup string    `json:"blood_group,omitempty"`
	Units      int       `json:"units,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Producer publishes lifecycle events to Kafka. A nil Producer is valid and
// drops every event, mirroring how the service runs with Kafka disabled.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a producer for the given brokers and topic
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// Publish sends a lifecycle event keyed by request id. Delivery is retried
// with exponential backoff for a few seconds; a publish that still fails is
// logged and dropped so a broker outage never blocks a transition.
func (p *Producer) Publish(ctx context.Context, event RequestEvent) {
	if p == nil {
		return
	}

	event.OccurredAt = time.Now()

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			zap.String("type", event.Type),
			zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.RequestID),
		Value: value,
		Time:  event.OccurredAt,
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	err = backoff.Retry(func() error {
		return p.writer.WriteMessages(ctx, msg)
	}, policy)
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("type", event.Type),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}

// Close flushes and closes the underlying writer
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
