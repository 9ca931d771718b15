// Package kafka publishes note change events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/resilience"
)

// messageWriter is the subset of *kafkago.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer writes messages with retries on transient errors.
type Producer struct {
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	writer messageWriter
	closed bool
}

// NewProducer builds a producer. The writer connects lazily on first write.
func NewProducer(cfg Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transport, err := NewTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}
	p := &Producer{cfg: cfg, log: log.WithComponent("kafka.producer")}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  compression(cfg.Compression),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			p.log.Error("writer: "+fmt.Sprintf(msg, args...))
		}),
	}
	p.log.Info("Kafka producer initialized", logger.Fields(
		"brokers", cfg.Brokers, "topic", cfg.Topic, "compression", cfg.Compression))
	return p, nil
}

func newProducerWithWriter(cfg Config, w messageWriter, log *logger.Logger) *Producer {
	cfg.ApplyDefaults()
	return &Producer{cfg: cfg, log: log.WithComponent("kafka.producer"), writer: w}
}

// WriteMessages sends msgs, retrying with exponential backoff while the
// error is retryable.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("kafka: producer is closed")
	}

	err := resilience.RetryFunc(ctx, resilience.RetryConfig{
		MaxAttempts:    p.cfg.Retries,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		RetryIf:        IsRetryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			p.log.Warn("Kafka write failed, retrying", logger.Fields("attempt", attempt, "backoff", backoff.String(), "error", err.Error()))
		},
	}, func(ctx context.Context) error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// SendJSON writes value as a JSON message with the given key.
func (p *Producer) SendJSON(ctx context.Context, key string, value any, headers ...kafkago.Header) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	msg := kafkago.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: append([]kafkago.Header{{Key: "content-type", Value: []byte("application/json")}}, headers...),
	}
	return p.WriteMessages(ctx, msg)
}

func (p *Producer) Stats() kafkago.WriterStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.writer.Stats()
}

// Close flushes pending messages. Safe to call more than once.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
