package events

import (
	"context"
	"encoding/json"
	"fmt"

	"push-server/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BridgeChannel is the Redis pub/sub channel shared by all instances
const BridgeChannel = "push:events"

type pubSubClient interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string) (*redis.PubSub, error)
}

type bridgeMessage struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge relays hub events between server instances so a dashboard
// connected to one instance sees registrations and sends handled by another.
// Messages carry the publishing instance id and are not re-emitted there.
type RedisBridge struct {
	hub        *Hub
	client     pubSubClient
	instanceID string
	logger     *observability.Logger
}

func NewRedisBridge(hub *Hub, client pubSubClient, logger *observability.Logger) *RedisBridge {
	return &RedisBridge{
		hub:        hub,
		client:     client,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// Publish implements Relay
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(bridgeMessage{Origin: b.instanceID, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal bridge message: %w", err)
	}
	return b.client.Publish(ctx, BridgeChannel, data)
}

// Run subscribes to the bridge channel and re-emits remote events locally
// until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub, err := b.client.Subscribe(ctx, BridgeChannel)
	if err != nil {
		b.logger.Error(ctx, "failed to subscribe to event bridge", err)
		return err
	}
	defer sub.Close()

	ctx = observability.WithFields(ctx, observability.Field{Key: "instance_id", Value: b.instanceID})
	b.logger.Info(ctx, "event bridge started")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info(ctx, "event bridge stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.handle(ctx, msg.Payload)
		}
	}
}

func (b *RedisBridge) handle(ctx context.Context, payload string) {
	var msg bridgeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.logger.Error(ctx, "failed to decode bridge message", err)
		return
	}
	if msg.Origin == b.instanceID {
		return
	}
	b.hub.Broadcast(ctx, msg.Event)
}
