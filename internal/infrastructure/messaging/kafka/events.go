package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/scholar-etl/pkg/errors"
)

const (
	// SchemaVersion is the version of EventEnvelope written by this package.
	SchemaVersion = "v1"
	// EventSource names this service in the envelope and headers.
	EventSource = "scholar-etl"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       data,
	}, nil
}

func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

// ToMessage wraps the envelope into a message for topic keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	msg := &ProducerMessage{
		Topic:     topic,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

// DecodeEnvelope parses a message value written by ToMessage.
func DecodeEnvelope(value []byte) (*EventEnvelope, error) {
	if len(value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// EventPublisher publishes ingest lifecycle events as EventEnvelopes on one
// topic. Events of one run share the run id as message key, which keeps them
// on one partition and in order.
type EventPublisher struct {
	producer *Producer
	topic    string
}

// NewEventPublisher returns an EventPublisher writing to topic.
func NewEventPublisher(producer *Producer, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic}
}

// Publish wraps payload in an envelope of eventType and writes it keyed by key.
func (p *EventPublisher) Publish(ctx context.Context, eventType, key string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, EventSource, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(p.topic, key)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

//Personal.AI order the ending
