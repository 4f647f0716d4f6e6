package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"push-server/internal/observability"

	"github.com/segmentio/kafka-go"
)

// Producer handles publishing events to Kafka
type Producer struct {
	writer *kafka.Writer
	logger *observability.Logger
}

// ProducerConfig contains configuration for Kafka producer
type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// NewProducer creates a new Kafka producer
func NewProducer(config ProducerConfig, logger *observability.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		Compression:  kafka.Snappy,
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// EventMessage represents an event message structure
type EventMessage struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	ClientID   string                 `json:"client_id"`
	CampaignID *string                `json:"campaign_id,omitempty"`
	Data       map[string]interface{} `json:"data"`
	Timestamp  string                 `json:"timestamp"`
}

func (e EventMessage) toMessage() (kafka.Message, error) {
	eventBytes, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	// Keyed by client so one subscriber's events stay ordered within a partition.
	return kafka.Message{
		Key:   []byte(e.ClientID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}, nil
}

// PublishEvent publishes an event to Kafka
func (p *Producer) PublishEvent(ctx context.Context, event EventMessage) error {
	return p.PublishEvents(ctx, []EventMessage{event})
}

// PublishEvents publishes multiple events in one batch
func (p *Producer) PublishEvents(ctx context.Context, events []EventMessage) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := event.toMessage()
		if err != nil {
			p.logger.Error(ctx, fmt.Sprintf("failed to marshal event %s", event.ID), err)
			continue
		}
		messages = append(messages, msg)
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error(ctx, "failed to write messages to kafka", err)
		return fmt.Errorf("failed to write messages to kafka: %w", err)
	}

	p.logger.Debug(ctx, fmt.Sprintf("published %d events to kafka", len(messages)))
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
