package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxPayloadSize is the largest plaintext that fits a single aes128gcm record
// of 4096 bytes: minus the 16 byte tag, the padding delimiter and one spare byte.
const MaxPayloadSize = 4078

var (
	ErrMissingContent  = errors.New("missing notification content")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Action is a notification action button.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
	URL    string `json:"url,omitempty"`
}

// NotificationSpec is the caller supplied description of a notification.
type NotificationSpec struct {
	Title              string
	Body               string
	Icon               string
	Badge              string
	Image              string
	URL                string
	Tag                string
	RequireInteraction bool
	Actions            []Action
	Data               map[string]any
}

// Defaults are the platform fallbacks for optional notification fields.
type Defaults struct {
	Icon  string
	Badge string
	URL   string
}

// BuildOptions carries the routing and tracking metadata embedded in payload data.
type BuildOptions struct {
	Defaults    Defaults
	CampaignID  string
	TestMode    bool
	TrackingURL string
	Now         func() time.Time
}

// Payload is the JSON document delivered to the worker-side push handler.
type Payload struct {
	Title              string      `json:"title"`
	Body               string      `json:"body"`
	Icon               string      `json:"icon"`
	Badge              string      `json:"badge"`
	Image              string      `json:"image,omitempty"`
	Tag                string      `json:"tag"`
	RequireInteraction bool        `json:"requireInteraction"`
	Actions            []Action    `json:"actions"`
	Data               PayloadData `json:"data"`
}

// PayloadData is opaque to the transport. The worker uses it for click routing
// and click/dismiss tracking.
type PayloadData struct {
	URL            string         `json:"url"`
	CampaignID     string         `json:"campaignId,omitempty"`
	ClientID       string         `json:"clientId,omitempty"`
	NotificationID string         `json:"notificationId,omitempty"`
	TestMode       bool           `json:"testMode"`
	TrackingURL    string         `json:"trackingUrl,omitempty"`
	Timestamp      int64          `json:"timestamp"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// BuildPayload normalizes a notification spec into a transport ready payload.
// The result carries no recipient identity; use ForRecipient before sending.
func BuildPayload(spec NotificationSpec, opts BuildOptions) (Payload, error) {
	if spec.Title == "" {
		return Payload{}, &ValidationError{Err: ErrMissingContent, Field: "title", Reason: "is required"}
	}
	if spec.Body == "" {
		return Payload{}, &ValidationError{Err: ErrMissingContent, Field: "body", Reason: "is required"}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	p := Payload{
		Title:              spec.Title,
		Body:               spec.Body,
		Icon:               firstNonEmpty(spec.Icon, opts.Defaults.Icon),
		Badge:              firstNonEmpty(spec.Badge, opts.Defaults.Badge),
		Image:              spec.Image,
		Tag:                spec.Tag,
		RequireInteraction: spec.RequireInteraction,
		Actions:            spec.Actions,
		Data: PayloadData{
			URL:            firstNonEmpty(spec.URL, opts.Defaults.URL, "/"),
			CampaignID:     opts.CampaignID,
			NotificationID: uuid.New().String(),
			TestMode:       opts.TestMode,
			TrackingURL:    opts.TrackingURL,
			Timestamp:      now().UnixMilli(),
			Extra:          spec.Data,
		},
	}
	// A shared tag collapses repeated sends into one OS notification.
	if p.Tag == "" {
		p.Tag = "notif-" + uuid.New().String()
	}
	if p.Actions == nil {
		p.Actions = []Action{}
	}
	return p, nil
}

// ForRecipient returns a copy of the payload addressed to one client.
func (p Payload) ForRecipient(clientID string) Payload {
	p.Data.ClientID = clientID
	return p
}

// Encode serializes the payload and enforces the single record size limit.
func (p Payload) Encode() ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	if len(b) > MaxPayloadSize {
		return nil, &ValidationError{
			Err:    ErrPayloadTooLarge,
			Reason: fmt.Sprintf("%d bytes exceeds %d", len(b), MaxPayloadSize),
		}
	}
	return b, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
