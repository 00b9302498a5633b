package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/testutil"
	apperrors "github.com/turtacn/scholar-etl/pkg/errors"
)

// mockKafkaWriter
type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestProducerMessage(topic, key, value string) *ProducerMessage {
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: []byte(value),
	}
}

func newTestProducer(w WriterInterface) *Producer {
	return newProducer(w, testutil.NewMockLogger())
}

func TestValidateProducerConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.KafkaConfig
		wantErr bool
	}{
		{name: "valid", cfg: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}},
		{name: "no brokers", cfg: config.KafkaConfig{Topic: "t"}, wantErr: true},
		{name: "no topic", cfg: config.KafkaConfig{Brokers: []string{"localhost:9092"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProducerConfig(tt.cfg)
			if tt.wantErr {
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", RequiredAcks: -1}, testutil.NewMockLogger())
	require.NoError(t, err)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.NoError(t, p.Close())
}

func TestPublish_Success(t *testing.T) {
	var capturedMsgs []kafka.Message
	mock := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			capturedMsgs = msgs
			return nil
		},
	}
	p := newTestProducer(mock)
	err := p.Publish(context.Background(), newTestProducerMessage("test", "k", "v"))
	assert.NoError(t, err)
	require.Len(t, capturedMsgs, 1)
	assert.Equal(t, "test", capturedMsgs[0].Topic)
	assert.Equal(t, "k", string(capturedMsgs[0].Key))
	assert.Equal(t, "v", string(capturedMsgs[0].Value))
	assert.False(t, capturedMsgs[0].Time.IsZero())
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublish_Failure(t *testing.T) {
	mock := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("write failed")
		},
	}
	p := newTestProducer(mock)
	err := p.Publish(context.Background(), newTestProducerMessage("test", "k", "v"))
	assert.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMessageQueueError))
	assert.Equal(t, int64(1), p.Failed())
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	assert.Error(t, p.Publish(context.Background(), newTestProducerMessage("", "k", "v")))
	assert.Error(t, p.Publish(context.Background(), newTestProducerMessage("t", "k", "")))

	big := make([]byte, defaultMaxMessageBytes+1)
	assert.Error(t, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: big}))
}

func TestClose_Success(t *testing.T) {
	closed := 0
	mock := &mockKafkaWriter{
		closeFunc: func() error {
			closed++
			return nil
		},
	}
	p := newTestProducer(mock)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, closed)
	assert.Equal(t, ErrProducerClosed, p.Publish(context.Background(), newTestProducerMessage("t", "k", "v")))
}

//Personal.AI order the ending
