package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"gatepass/internal/shared/config"
	"gatepass/pkg/logger"
)

// Publisher publishes reservation lifecycle events. Services hold this
// interface so tests can swap in a recording fake and deployments without
// Kafka can run on the noop implementation.
type Publisher interface {
	PublishLifecycleEvent(ctx context.Context, event *LifecycleEvent) error
	PublishAbandonedCart(ctx context.Context, event *AbandonedCartEvent) error
	Close() error
}

// KafkaPublisher publishes events to Kafka via a synchronous producer
type KafkaPublisher struct {
	producer       sarama.SyncProducer
	lifecycleTopic string
	abandonedTopic string
}

// NewKafkaPublisher creates a publisher against the configured brokers.
// Idempotent writes with WaitForAll acks: a lifecycle event is either
// durably on the partition or the send errors.
func NewKafkaPublisher(cfg *config.KafkaConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Timeout = 10 * time.Second
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Hash partitioner keys events by session so each session's events
	// stay ordered on one partition.
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer:       producer,
		lifecycleTopic: cfg.LifecycleTopic,
		abandonedTopic: cfg.AbandonedTopic,
	}, nil
}

func (p *KafkaPublisher) PublishLifecycleEvent(ctx context.Context, event *LifecycleEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.lifecycleTopic,
		Key:   sarama.StringEncoder(event.SessionID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("show_id"), Value: []byte(event.ShowID)},
		},
		Timestamp: event.Timestamp,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish lifecycle event: %w", err)
	}

	logger.GetDefault().Debug("lifecycle event published",
		"type", event.Type, "partition", partition, "offset", offset)
	return nil
}

func (p *KafkaPublisher) PublishAbandonedCart(ctx context.Context, event *AbandonedCartEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal abandoned cart event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.abandonedTopic,
		Key:       sarama.StringEncoder(event.SessionID),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: event.AbandonedAt,
	}

	if _, _, err := p.producer.SendMessage(message); err != nil {
		return fmt.Errorf("failed to publish abandoned cart event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

// NoopPublisher drops all events. Used when Kafka is disabled.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) PublishLifecycleEvent(ctx context.Context, event *LifecycleEvent) error {
	return nil
}

func (p *NoopPublisher) PublishAbandonedCart(ctx context.Context, event *AbandonedCartEvent) error {
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
