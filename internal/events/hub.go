// Package events fans out real-time notifications (client registrations,
// deletions, campaign counter changes) to connected dashboards.
//
// Delivery is best effort and at most once: each subscriber has a buffered
// channel and an event that does not fit is dropped for that subscriber only.
// There is no replay for late subscribers.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"push-server/internal/observability"

	"github.com/google/uuid"
)

// EventType identifies the kind of a dashboard event
type EventType string

const (
	EventNewClient     EventType = "new-client"
	EventClientUpdated EventType = "client-updated"
	EventClientDeleted EventType = "client-deleted"
	EventStatsUpdated  EventType = "stats-updated"
	EventHeartbeat     EventType = "heartbeat"
)

const defaultBufferSize = 32

// Event is one emitted message. It serializes as the payload's fields with
// "type" and "timestamp" added at the top level.
type Event struct {
	Type      EventType
	Data      any
	Timestamp time.Time
}

// MarshalJSON flattens Data into the envelope. Non-object payloads are placed under "data".
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if e.Data != nil {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			out = map[string]any{"data": json.RawMessage(raw)}
		}
	}
	out["type"] = e.Type
	out["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON restores an event produced by MarshalJSON. Data becomes a
// map holding every field other than type and timestamp.
func (e *Event) UnmarshalJSON(b []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if t, ok := fields["type"].(string); ok {
		e.Type = EventType(t)
	}
	if ts, ok := fields["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed
		}
	}
	delete(fields, "type")
	delete(fields, "timestamp")
	e.Data = fields
	return nil
}

// Relay forwards locally emitted events to other server instances.
type Relay interface {
	Publish(ctx context.Context, event Event) error
}

// Hub is the process-wide event emitter. It is safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	bufferSize  int
	relay       Relay
	closed      bool
	logger      *observability.Logger
	now         func() time.Time
}

// NewHub creates a hub with the given per-subscriber buffer size
func NewHub(bufferSize int, logger *observability.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		subscribers: make(map[string]chan Event),
		bufferSize:  bufferSize,
		logger:      logger,
		now:         time.Now,
	}
}

// SetRelay makes every subsequent Emit also publish through r
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

// Subscribe registers a subscriber. The caller must Unsubscribe when done.
func (h *Hub) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, h.bufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return id, ch
	}
	h.subscribers[id] = ch
	n := len(h.subscribers)
	h.mu.Unlock()

	observability.SetEventSubscribers(n)
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(ch)
	}
	n := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		observability.SetEventSubscribers(n)
	}
}

// Close ends every open stream by closing its channel. Later subscribers
// get an already closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
	h.mu.Unlock()

	observability.SetEventSubscribers(0)
}

// Size returns the number of active subscribers
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Emit delivers an event to every current subscriber and to the relay, if any.
// It never blocks on a slow subscriber.
func (h *Hub) Emit(ctx context.Context, eventType EventType, payload any) {
	event := Event{Type: eventType, Data: payload, Timestamp: h.now()}
	h.Broadcast(ctx, event)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.Publish(ctx, event); err != nil {
			h.logger.Error(observability.WithFields(ctx,
				observability.Field{Key: "event_type", Value: string(eventType)},
			), "failed to relay event", err)
		}
	}
}

// Broadcast delivers an already built event to local subscribers only
func (h *Hub) Broadcast(ctx context.Context, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug(observability.WithFields(ctx,
			observability.Field{Key: "event_type", Value: string(event.Type)},
			observability.Field{Key: "dropped", Value: dropped},
		), "dropped event for slow subscribers")
	}
}
