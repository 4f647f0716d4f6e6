// Package deliveries persists send outcomes and engagement tracking against
// campaigns and clients.
package deliveries

//go:generate go run go.uber.org/mock/mockgen@latest -source=bookkeeper.go -destination=mocks_test.go -package=deliveries

import (
	"context"
	"errors"
	"fmt"

	"push-server/internal/dispatch"
	"push-server/internal/events"
	"push-server/internal/integrations"
	"push-server/internal/observability"
	"push-server/internal/store"

	"github.com/google/uuid"
)

// DeliveryStore defines the database operations required by Bookkeeper
type DeliveryStore interface {
	MarkClientExpired(ctx context.Context, id uuid.UUID) error
	TouchClient(ctx context.Context, id uuid.UUID) error
	CreateDelivery(ctx context.Context, params store.CreateDeliveryParams) (bool, error)
	IncrementCampaignCounters(ctx context.Context, id uuid.UUID, sent, delivered, failed int) (store.CampaignCounters, error)
	MarkDeliveryClicked(ctx context.Context, campaignID, clientID uuid.UUID) (bool, error)
	IncrementCampaignClicked(ctx context.Context, id uuid.UUID) (store.CampaignCounters, error)
}

// EventEmitter receives live dashboard events
type EventEmitter interface {
	Emit(ctx context.Context, eventType events.EventType, payload any)
}

// IntegrationPublisher forwards outcomes to external consumers
type IntegrationPublisher interface {
	PublishDeliveries(ctx context.Context, deliveries []integrations.DeliveryEvent) error
	PublishEngagement(ctx context.Context, e integrations.EngagementEvent) error
}

// StatsPayload is the body of a stats-updated event
type StatsPayload struct {
	CampaignID     uuid.UUID `json:"campaignId"`
	SentCount      int       `json:"sentCount"`
	DeliveredCount int       `json:"deliveredCount"`
	ClickedCount   int       `json:"clickedCount"`
	FailedCount    int       `json:"failedCount"`
}

func statsPayload(c store.CampaignCounters) StatsPayload {
	return StatsPayload{
		CampaignID:     c.CampaignID,
		SentCount:      c.SentCount,
		DeliveredCount: c.DeliveredCount,
		ClickedCount:   c.ClickedCount,
		FailedCount:    c.FailedCount,
	}
}

type Bookkeeper struct {
	store     DeliveryStore
	emitter   EventEmitter
	publisher IntegrationPublisher
	logger    *observability.Logger
}

// New creates a Bookkeeper. publisher may be nil when no integration sink is configured.
func New(store DeliveryStore, emitter EventEmitter, publisher IntegrationPublisher, logger *observability.Logger) *Bookkeeper {
	return &Bookkeeper{
		store:     store,
		emitter:   emitter,
		publisher: publisher,
		logger:    logger,
	}
}

// Record persists the outcomes of one dispatch against a campaign.
//
// Test sends and sends without a campaign are not recorded at all. Expired
// recipients are demoted to the expired access status. One delivery row is
// written per result; a row that already exists for the (campaign, client)
// pair is left alone and not counted again, so replaying a batch is harmless.
// Counters grow by the freshly inserted rows only, with an atomic increment.
// delivered grows with sent: acceptance by the push service is treated as delivery.
//
// Persistence errors other than duplicates do not stop the remaining results
// from being recorded; they are joined and returned after the counters are updated.
func (b *Bookkeeper) Record(ctx context.Context, campaignID *uuid.UUID, results []dispatch.RecipientResult, testMode bool) (*store.CampaignCounters, error) {
	if testMode || campaignID == nil {
		return nil, nil
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: *campaignID},
		observability.Field{Key: "results", Value: len(results)},
	)

	var (
		errs      []error
		sent      int
		failed    int
		published []integrations.DeliveryEvent
	)
	for _, r := range results {
		clientID, err := uuid.Parse(r.ClientID)
		if err != nil {
			b.logger.Error(ctx, "failed to parse client id of send result", err)
			errs = append(errs, fmt.Errorf("invalid client id %q: %w", r.ClientID, err))
			continue
		}

		if r.Outcome == dispatch.OutcomeExpired {
			b.expire(ctx, clientID, &errs)
		}

		params := store.CreateDeliveryParams{
			CampaignID: *campaignID,
			ClientID:   clientID,
			Variant:    r.Variant,
			Status:     store.DeliveryStatusSent,
		}
		if !r.Success {
			params.Status = store.DeliveryStatusFailed
			reason := r.Error
			params.Error = &reason
		}

		inserted, err := b.store.CreateDelivery(ctx, params)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !inserted {
			continue
		}
		if r.Success {
			sent++
		} else {
			failed++
		}
		published = append(published, deliveryEvent(campaignID, r))
	}

	var counters *store.CampaignCounters
	if sent+failed > 0 {
		c, err := b.store.IncrementCampaignCounters(ctx, *campaignID, sent, sent, failed)
		if err != nil {
			errs = append(errs, err)
		} else {
			counters = &c
			b.emitter.Emit(ctx, events.EventStatsUpdated, statsPayload(c))
		}
	}

	if b.publisher != nil && len(published) > 0 {
		if err := b.publisher.PublishDeliveries(ctx, published); err != nil {
			b.logger.Error(ctx, "failed to publish delivery events", err)
		}
	}

	if len(errs) > 0 {
		return counters, fmt.Errorf("failed to record deliveries: %w", errors.Join(errs...))
	}
	return counters, nil
}

func (b *Bookkeeper) expire(ctx context.Context, clientID uuid.UUID, errs *[]error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "client_id", Value: clientID})
	err := b.store.MarkClientExpired(ctx, clientID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Deleted while the send was in flight.
		b.logger.Warn(ctx, "expired client no longer exists")
	case err != nil:
		*errs = append(*errs, err)
	default:
		b.logger.Info(ctx, "client endpoint expired")
		b.emitter.Emit(ctx, events.EventClientUpdated, map[string]any{
			"clientId":     clientID,
			"accessStatus": store.AccessStatusExpired,
		})
	}
}

func deliveryEvent(campaignID *uuid.UUID, r dispatch.RecipientResult) integrations.DeliveryEvent {
	e := integrations.DeliveryEvent{
		Type:       integrations.EventPushSent,
		ClientID:   r.ClientID,
		CampaignID: campaignID,
		StatusCode: r.StatusCode,
		Error:      r.Error,
		Variant:    r.Variant,
	}
	switch r.Outcome {
	case dispatch.OutcomeExpired:
		e.Type = integrations.EventPushExpired
	case dispatch.OutcomeError:
		e.Type = integrations.EventPushFailed
	}
	return e
}
