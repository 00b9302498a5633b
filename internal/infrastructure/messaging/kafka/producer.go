package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

var (
	ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")
)

const defaultMaxMessageBytes = 1024 * 1024

// ProducerMessage is one message handed to the Producer.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMetrics holds producer metrics.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
	LastSentAt     atomic.Value // time.Time
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes messages to Kafka.
type Producer struct {
	writer          WriterInterface
	maxMessageBytes int
	logger          logging.Logger
	closed          atomic.Bool
	metrics         *ProducerMetrics
}

// NewProducer creates a Producer for the brokers of cfg.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 100 * time.Millisecond
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}

	var requiredAcks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case 0:
		requiredAcks = kafka.RequireNone
	case -1:
		requiredAcks = kafka.RequireAll
	default:
		requiredAcks = kafka.RequireOne
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		RequiredAcks: requiredAcks,
		Transport:    &kafka.Transport{DialTimeout: 10 * time.Second},
	}

	return newProducer(writer, logger), nil
}

func newProducer(w WriterInterface, logger logging.Logger) *Producer {
	return &Producer{
		writer:          w,
		maxMessageBytes: defaultMaxMessageBytes,
		logger:          logger,
		metrics:         &ProducerMetrics{},
	}
}

// Publish publishes a single message.
func (p *Producer) Publish(ctx context.Context, msg *ProducerMessage) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "Topic required")
	}
	if len(msg.Value) == 0 {
		return errors.New(errors.ErrCodeValidation, "Value required")
	}
	if len(msg.Value) > p.maxMessageBytes {
		return errors.New(errors.ErrCodeValidation, "Message too large")
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		p.metrics.MessagesFailed.Add(1)
		return errors.Wrap(err, errors.CodeMessageQueueError, "publish failed")
	}

	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(len(msg.Value)))
	p.metrics.LastSentAt.Store(time.Now())

	p.logger.Debug("Message published",
		logging.String("topic", msg.Topic),
		logging.Int64("latency_ms", time.Since(start).Milliseconds()))
	return nil
}

// Sent returns the number of messages written successfully.
func (p *Producer) Sent() int64 { return p.metrics.MessagesSent.Load() }

// Failed returns the number of messages that could not be written.
func (p *Producer) Failed() int64 { return p.metrics.MessagesFailed.Load() }

// Close closes the producer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.metrics.MessagesSent.Load()))
	return err
}

func toKafkaMessage(msg *ProducerMessage) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}

func ValidateProducerConfig(cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "Brokers required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "Topic required")
	}
	return nil
}

//Personal.AI order the ending
