package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"push-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// reconnectDelayMillis is sent to EventSource clients as the reconnect backoff
const reconnectDelayMillis = 5000

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandler serves the hub's events to dashboards over SSE and WebSocket
type StreamHandler struct {
	hub       *Hub
	heartbeat time.Duration
	logger    *observability.Logger
}

func NewStreamHandler(hub *Hub, heartbeat time.Duration, logger *observability.Logger) StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return StreamHandler{hub: hub, heartbeat: heartbeat, logger: logger}
}

// HandleSSE streams events as "data: <json>" frames until the client disconnects
func (h *StreamHandler) HandleSSE(c *gin.Context) {
	ctx := c.Request.Context()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	id, ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	ctx = observability.WithFields(ctx, observability.Field{Key: "subscriber_id", Value: id})
	h.logger.Info(ctx, "event stream connected")
	defer h.logger.Info(ctx, "event stream disconnected")

	if _, err := fmt.Fprintf(c.Writer, "retry: %d\n\n", reconnectDelayMillis); err != nil {
		return
	}
	if err := h.writeSSE(c, h.heartbeatEvent()); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := h.writeSSE(c, event); err != nil {
				return
			}
		case <-ticker.C:
			if err := h.writeSSE(c, h.heartbeatEvent()); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) writeSSE(c *gin.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error(c.Request.Context(), "failed to marshal event", err)
		return nil
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

// HandleWebSocket streams the same events as JSON text frames. Heartbeat
// events are sent alongside protocol pings so browser clients can detect
// a stalled stream without access to ping frames.
func (h *StreamHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "failed to upgrade websocket", err)
		return
	}
	defer conn.Close()

	id, ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	ctx = observability.WithFields(ctx, observability.Field{Key: "subscriber_id", Value: id})
	h.logger.Info(ctx, "websocket stream connected")

	// The read loop only exists to process pongs and notice the close frame.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			h.logger.Info(ctx, "websocket stream disconnected")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := h.writeWS(conn, event); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := h.writeWS(conn, h.heartbeatEvent()); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) writeWS(conn *websocket.Conn, event Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(event)
}

func (h *StreamHandler) heartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: h.hub.now()}
}
