// Package swhandler models the service worker side of a push: displaying the
// message and reporting clicks and dismissals back to the tracking endpoint.
//
// Handler is the executable reference for static/sw.js. The script is served
// to browsers unchanged and must post the same TrackEvent keys and event
// names; script_test.go checks that the two stay in step.
package swhandler

//go:generate go run go.uber.org/mock/mockgen@latest -source=handler.go -destination=mocks_test.go -package=swhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"push-server/internal/observability"
	"push-server/internal/push"
)

// State is a step in the lifecycle of one pushed message
type State string

const (
	StateReceived  State = "received"
	StateParsed    State = "parsed"
	StateDisplayed State = "displayed"
	StateFailed    State = "failed"
)

const (
	EventClicked   = "notification_clicked"
	EventDismissed = "notification_dismissed"

	defaultTrackTimeout = 5 * time.Second
	fallbackURL         = "/"
)

var ErrEmptyPush = errors.New("push message has no data")

// Displayer shows a system notification
type Displayer interface {
	ShowNotification(ctx context.Context, n push.Payload) error
}

// WindowManager focuses a client window already showing url or opens a new one
type WindowManager interface {
	FocusOrOpen(ctx context.Context, url string) error
}

// Tracker delivers a tracking event to trackingURL
type Tracker interface {
	Track(ctx context.Context, trackingURL string, event TrackEvent) error
}

// TrackEvent is the body posted to the tracking endpoint
type TrackEvent struct {
	Event          string `json:"event"`
	CampaignID     string `json:"campaignId,omitempty"`
	ClientID       string `json:"clientId"`
	NotificationID string `json:"notificationId,omitempty"`
	Action         string `json:"action,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// Message records how one pushed message moved through the handler
type Message struct {
	Notification push.Payload
	Transitions  []State
	Err          error
}

func (m *Message) State() State {
	return m.Transitions[len(m.Transitions)-1]
}

func (m *Message) moveTo(s State) {
	m.Transitions = append(m.Transitions, s)
}

type Handler struct {
	displayer    Displayer
	windows      WindowManager
	tracker      Tracker
	logger       *observability.Logger
	trackTimeout time.Duration
	now          func() time.Time
	inflight     sync.WaitGroup
}

func New(displayer Displayer, windows WindowManager, tracker Tracker, logger *observability.Logger) *Handler {
	return &Handler{
		displayer:    displayer,
		windows:      windows,
		tracker:      tracker,
		logger:       logger,
		trackTimeout: defaultTrackTimeout,
		now:          time.Now,
	}
}

// HandlePush parses and displays a pushed message. A display failure is
// logged and not retried; the push service will not redeliver the message.
func (h *Handler) HandlePush(ctx context.Context, raw []byte) *Message {
	msg := &Message{Transitions: []State{StateReceived}}

	if len(raw) == 0 {
		msg.Err = ErrEmptyPush
		msg.moveTo(StateFailed)
		h.logger.Warn(ctx, "received push without data")
		return msg
	}
	if err := json.Unmarshal(raw, &msg.Notification); err != nil {
		msg.Err = fmt.Errorf("failed to parse push data: %w", err)
		msg.moveTo(StateFailed)
		h.logger.InfoWithError(ctx, "failed to parse push data", err)
		return msg
	}
	msg.moveTo(StateParsed)

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "client_id", Value: msg.Notification.Data.ClientID},
		observability.Field{Key: "campaign_id", Value: msg.Notification.Data.CampaignID},
	)
	if err := h.displayer.ShowNotification(ctx, msg.Notification); err != nil {
		msg.Err = err
		msg.moveTo(StateFailed)
		h.logger.Error(ctx, "failed to display notification", err)
		return msg
	}
	msg.moveTo(StateDisplayed)
	return msg
}

// HandleClick reports the click and brings the target page to the front.
// Tracking runs in the background and never delays the window.
func (h *Handler) HandleClick(ctx context.Context, n push.Payload, action string) error {
	target := ResolveURL(n, action)
	h.trackAsync(ctx, n, EventClicked, action)
	return h.windows.FocusOrOpen(ctx, target)
}

// HandleDismiss reports that the notification was closed without a click
func (h *Handler) HandleDismiss(ctx context.Context, n push.Payload) {
	h.trackAsync(ctx, n, EventDismissed, "")
}

// Wait blocks until every in-flight tracking call has finished
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// ResolveURL returns the URL of the clicked action, falling back to the
// notification URL and then to the site root.
func ResolveURL(n push.Payload, action string) string {
	if action != "" {
		for _, a := range n.Actions {
			if a.Action == action && a.URL != "" {
				return a.URL
			}
		}
	}
	if n.Data.URL != "" {
		return n.Data.URL
	}
	return fallbackURL
}

func (h *Handler) trackAsync(ctx context.Context, n push.Payload, event, action string) {
	if n.Data.TrackingURL == "" || n.Data.ClientID == "" {
		h.logger.Debug(ctx, "notification carries no tracking data")
		return
	}

	ev := TrackEvent{
		Event:          event,
		CampaignID:     n.Data.CampaignID,
		ClientID:       n.Data.ClientID,
		NotificationID: n.Data.NotificationID,
		Action:         action,
		Timestamp:      h.now().UnixMilli(),
	}

	trackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.trackTimeout)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer cancel()
		if err := h.tracker.Track(trackCtx, n.Data.TrackingURL, ev); err != nil {
			h.logger.InfoWithError(observability.WithFields(trackCtx,
				observability.Field{Key: "event", Value: event},
			), "tracking call failed", err)
		}
	}()
}
