// Package kafka publishes engram events to a Kafka topic. Events are keyed
// by their subject ID so per-document and per-memory ordering is preserved
// across partitions.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "engram.events"

// Config holds Kafka publisher settings.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the destination topic. Defaults to DefaultTopic.
	Topic string
}

// Publisher writes events to Kafka as JSON messages.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(cfg.Brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}

	return &Publisher{writer: writer, logger: logger}, nil
}

// PublishDocument publishes a document lifecycle event keyed by document ID.
func (p *Publisher) PublishDocument(ctx context.Context, event *eventstream.DocumentEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.DocumentID, event.EventType, event)
}

// PublishMemory publishes a memory revision event keyed by memory ID.
func (p *Publisher) PublishMemory(ctx context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.MemoryID, event.EventType, event)
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	message := kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}

	p.logger.Debug("published event", "type", eventType, "key", key)

	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
