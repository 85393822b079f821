// Package events implements the observability event bus used by C9 step
// 12: publish-only, since the gateway only emits events, it does not
// consume its own topic.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/securizon/pkg/models"
)

// EventBus is the publish side consumed by the ingestion pipeline.
type EventBus interface {
	PublishEvent(ctx context.Context, topic string, event models.BaseEvent) error
	Close() error
}

type KafkaConfig struct {
	Brokers         []string
	ClientID        string
	BatchSize       int
	BatchTimeout    time.Duration
	CompressionType string
}

func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:         []string{"localhost:9092"},
		ClientID:        "support-gateway",
		BatchSize:       100,
		BatchTimeout:    10 * time.Millisecond,
		CompressionType: "gzip",
	}
}

type KafkaEventBus struct {
	config   KafkaConfig
	producer *kafka.Writer
}

func NewKafkaEventBus(config KafkaConfig) (*KafkaEventBus, error) {
	producer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		Compression:            kafka.Gzip,
		AllowAutoTopicCreation: true,
	}
	return &KafkaEventBus{config: config, producer: producer}, nil
}

func (bus *KafkaEventBus) PublishEvent(ctx context.Context, topic string, event models.BaseEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(string(event.Type))},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
			{Key: "severity", Value: []byte(string(event.Severity))},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
		Time: time.Now(),
	}

	return bus.producer.WriteMessages(ctx, message)
}

func (bus *KafkaEventBus) Close() error {
	return bus.producer.Close()
}

const TopicTicketIngested = "ticket.ingested"

// NoopEventBus discards events; used when no Kafka broker is configured
// so the ingestion pipeline never blocks on an absent dependency.
type NoopEventBus struct{}

func (NoopEventBus) PublishEvent(ctx context.Context, topic string, event models.BaseEvent) error {
	return nil
}

func (NoopEventBus) Close() error { return nil }
