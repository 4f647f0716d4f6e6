package deliveries

import (
	"context"
	"errors"

	"push-server/internal/events"
	"push-server/internal/integrations"
	"push-server/internal/observability"
	"push-server/internal/store"

	"github.com/google/uuid"
)

var ErrInvalidTrackEvent = errors.New("invalid tracking event")

// Tracking event names sent by the service worker
const (
	EventNotificationClicked   = "notification_clicked"
	EventNotificationDismissed = "notification_dismissed"
)

// TrackEvent is a click or dismiss report from the service worker
type TrackEvent struct {
	Event          string
	CampaignID     *uuid.UUID
	ClientID       uuid.UUID
	NotificationID string
	Action         string
	Timestamp      int64
}

// Track dispatches a tracking report by its event name
func (b *Bookkeeper) Track(ctx context.Context, e TrackEvent) error {
	if e.ClientID == uuid.Nil {
		return ErrInvalidTrackEvent
	}
	switch e.Event {
	case EventNotificationClicked:
		return b.TrackClick(ctx, e)
	case EventNotificationDismissed:
		return b.TrackDismiss(ctx, e)
	default:
		return ErrInvalidTrackEvent
	}
}

// TrackClick records a notification click. Only the first click on a
// delivery transitions it to clicked and increments the campaign's clicks.
func (b *Bookkeeper) TrackClick(ctx context.Context, e TrackEvent) error {
	ctx = trackContext(ctx, e)
	b.touch(ctx, e.ClientID)

	if e.CampaignID != nil {
		clicked, err := b.store.MarkDeliveryClicked(ctx, *e.CampaignID, e.ClientID)
		if err != nil {
			return err
		}
		if clicked {
			counters, err := b.store.IncrementCampaignClicked(ctx, *e.CampaignID)
			if err != nil {
				return err
			}
			b.emitter.Emit(ctx, events.EventStatsUpdated, statsPayload(counters))
		} else {
			b.logger.Debug(ctx, "click without a fresh delivery, not counted")
		}
	}

	b.publishEngagement(ctx, integrations.EventPushClicked, e)
	return nil
}

// TrackDismiss records a notification closed without a click. There is no
// dismiss counter; the client is touched and the event forwarded.
func (b *Bookkeeper) TrackDismiss(ctx context.Context, e TrackEvent) error {
	ctx = trackContext(ctx, e)
	b.touch(ctx, e.ClientID)
	b.publishEngagement(ctx, integrations.EventPushDismissed, e)
	return nil
}

func (b *Bookkeeper) touch(ctx context.Context, clientID uuid.UUID) {
	err := b.store.TouchClient(ctx, clientID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		b.logger.Warn(ctx, "tracking event for unknown client")
	case err != nil:
		// Activity timestamps are advisory; the tracking call still succeeds.
		b.logger.Error(ctx, "failed to touch client", err)
	}
}

func (b *Bookkeeper) publishEngagement(ctx context.Context, eventType string, e TrackEvent) {
	if b.publisher == nil {
		return
	}
	err := b.publisher.PublishEngagement(ctx, integrations.EngagementEvent{
		Type:           eventType,
		ClientID:       e.ClientID.String(),
		CampaignID:     e.CampaignID,
		NotificationID: e.NotificationID,
		Action:         e.Action,
	})
	if err != nil {
		b.logger.Error(ctx, "failed to publish engagement event", err)
	}
}

func trackContext(ctx context.Context, e TrackEvent) context.Context {
	fields := []observability.Field{
		{Key: "client_id", Value: e.ClientID},
		{Key: "tracking_event", Value: e.Event},
	}
	if e.CampaignID != nil {
		fields = append(fields, observability.Field{Key: "campaign_id", Value: *e.CampaignID})
	}
	return observability.WithFields(ctx, fields...)
}
