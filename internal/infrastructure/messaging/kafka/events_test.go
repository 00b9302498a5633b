package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchPayload struct {
	RunID string `json:"run_id"`
	Batch int    `json:"batch"`
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEventEnvelope("ingest.batch.committed", EventSource, batchPayload{RunID: "r1", Batch: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, SchemaVersion, env.SchemaVersion)

	msg, err := env.ToMessage("scholar.ingest.events", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", string(msg.Key))
	assert.Equal(t, "ingest.batch.committed", msg.Headers["event_type"])

	decoded, err := DecodeEnvelope(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)

	var p batchPayload
	require.NoError(t, decoded.DecodePayload(&p))
	assert.Equal(t, batchPayload{RunID: "r1", Batch: 3}, p)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	assert.Error(t, err)
	_, err = DecodeEnvelope([]byte("{"))
	assert.Error(t, err)
}

func TestEventPublisher_Publish(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = append(captured, msgs...)
			return nil
		},
	})
	pub := NewEventPublisher(p, "scholar.ingest.events")

	require.NoError(t, pub.Publish(context.Background(), "ingest.run.completed", "run-1", map[string]int{"records": 2}))
	require.Len(t, captured, 1)
	assert.Equal(t, "scholar.ingest.events", captured[0].Topic)
	assert.Equal(t, "run-1", string(captured[0].Key))

	env, err := DecodeEnvelope(captured[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "ingest.run.completed", env.EventType)
	assert.Equal(t, EventSource, env.Source)
	assert.JSONEq(t, `{"records":2}`, string(env.Payload))
}

//Personal.AI order the ending
