// Package integrations publishes push delivery and engagement events to Kafka
// for downstream consumers (analytics, CRM sync).
package integrations

import (
	"context"
	"time"

	"push-server/internal/clients/kafka"
	"push-server/internal/observability"

	"github.com/google/uuid"
)

// Integration event types
const (
	EventPushSent      = "push.sent"
	EventPushFailed    = "push.failed"
	EventPushExpired   = "push.expired"
	EventPushClicked   = "push.clicked"
	EventPushDismissed = "push.dismissed"
)

// EventProducer is the subset of the Kafka producer used by the publisher
type EventProducer interface {
	PublishEvents(ctx context.Context, events []kafka.EventMessage) error
}

// DeliveryEvent describes one recipient's send outcome
type DeliveryEvent struct {
	Type       string
	ClientID   string
	CampaignID *uuid.UUID
	StatusCode int
	Error      string
	Variant    string
}

// EngagementEvent describes a click or dismiss reported by the service worker
type EngagementEvent struct {
	Type           string
	ClientID       string
	CampaignID     *uuid.UUID
	NotificationID string
	Action         string
}

// Publisher turns domain events into Kafka messages. A nil *Publisher is a
// valid no-op so callers need no Kafka-enabled checks.
type Publisher struct {
	producer EventProducer
	logger   *observability.Logger
	now      func() time.Time
}

// NewPublisher creates a new event publisher
func NewPublisher(producer EventProducer, logger *observability.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// PublishDeliveries publishes one event per delivery outcome in a single batch
func (p *Publisher) PublishDeliveries(ctx context.Context, deliveries []DeliveryEvent) error {
	if p == nil || len(deliveries) == 0 {
		return nil
	}

	ts := p.now().UTC().Format(time.RFC3339)
	messages := make([]kafka.EventMessage, 0, len(deliveries))
	for _, d := range deliveries {
		data := map[string]interface{}{
			"client_id": d.ClientID,
		}
		if d.StatusCode != 0 {
			data["status_code"] = d.StatusCode
		}
		if d.Error != "" {
			data["error"] = d.Error
		}
		if d.Variant != "" {
			data["variant"] = d.Variant
		}
		messages = append(messages, kafka.EventMessage{
			ID:         uuid.New().String(),
			Type:       d.Type,
			ClientID:   d.ClientID,
			CampaignID: campaignString(d.CampaignID),
			Data:       data,
			Timestamp:  ts,
		})
	}
	return p.producer.PublishEvents(ctx, messages)
}

// PublishEngagement publishes a push.clicked or push.dismissed event
func (p *Publisher) PublishEngagement(ctx context.Context, e EngagementEvent) error {
	if p == nil {
		return nil
	}

	data := map[string]interface{}{
		"client_id": e.ClientID,
	}
	if e.NotificationID != "" {
		data["notification_id"] = e.NotificationID
	}
	if e.Action != "" {
		data["action"] = e.Action
	}
	return p.producer.PublishEvents(ctx, []kafka.EventMessage{{
		ID:         uuid.New().String(),
		Type:       e.Type,
		ClientID:   e.ClientID,
		CampaignID: campaignString(e.CampaignID),
		Data:       data,
		Timestamp:  p.now().UTC().Format(time.RFC3339),
	}})
}

func campaignString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
