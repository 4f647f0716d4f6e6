package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"push-server/internal/deliveries"
	"push-server/internal/dispatch"
	"push-server/internal/observability"
	"push-server/internal/push"
	"push-server/internal/store"

	"github.com/google/uuid"
)

// NotificationStore defines the database operations required by NotificationProcessor
type NotificationStore interface {
	GetClientsByIDs(ctx context.Context, ids []uuid.UUID) ([]store.Client, error)
	GetCampaignByID(ctx context.Context, id uuid.UUID) (store.Campaign, error)
	ListTargetClients(ctx context.Context, filter store.TargetFilter) ([]store.Client, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) (store.Campaign, error)
}

// Dispatcher fans a notification out to recipients
type Dispatcher interface {
	Send(ctx context.Context, recipients []dispatch.Recipient, spec push.NotificationSpec, opts dispatch.SendOptions) (dispatch.Result, error)
}

// Bookkeeper persists send outcomes and tracking events
type Bookkeeper interface {
	Record(ctx context.Context, campaignID *uuid.UUID, results []dispatch.RecipientResult, testMode bool) (*store.CampaignCounters, error)
	Track(ctx context.Context, e deliveries.TrackEvent) error
}

var (
	ErrNoClients             = errors.New("no clients found")
	ErrCampaignNotFound      = errors.New("campaign not found")
	ErrCampaignNotSendable   = errors.New("campaign cannot be sent in its current status")
	ErrBookkeepingIncomplete = errors.New("delivery bookkeeping incomplete")
)

type NotificationProcessor struct {
	store      NotificationStore
	dispatcher Dispatcher
	bookkeeper Bookkeeper
	logger     *observability.Logger
}

func New(store NotificationStore, dispatcher Dispatcher, bookkeeper Bookkeeper, logger *observability.Logger) NotificationProcessor {
	return NotificationProcessor{
		store:      store,
		dispatcher: dispatcher,
		bookkeeper: bookkeeper,
		logger:     logger,
	}
}

// SendParams is a direct send to an explicit list of clients
type SendParams struct {
	ClientIDs    []uuid.UUID
	Notification push.NotificationSpec
	CampaignID   *uuid.UUID
	TestMode     bool
}

// ErrorDetail describes one failed recipient
type ErrorDetail struct {
	ClientID   string `json:"clientId"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
	Expired    bool   `json:"expired"`
}

// SendResult is the outcome of a send. A send with failed recipients is still
// successful; only the absence of any sendable recipient is an error.
type SendResult struct {
	Success      bool                        `json:"success"`
	Sent         int                         `json:"sent"`
	Failed       int                         `json:"failed"`
	Results      []dispatch.RecipientResult  `json:"results"`
	ErrorDetails []ErrorDetail               `json:"errorDetails"`
	Skipped      []dispatch.SkippedRecipient `json:"skipped"`
	Counters     *store.CampaignCounters     `json:"counters,omitempty"`
	// BookkeepingError is set when the pushes went out but recording them failed.
	BookkeepingError string `json:"bookkeepingError,omitempty"`
}

func newSendResult() SendResult {
	return SendResult{
		Success:      true,
		Results:      []dispatch.RecipientResult{},
		ErrorDetails: []ErrorDetail{},
		Skipped:      []dispatch.SkippedRecipient{},
	}
}

// Send pushes a notification to the given clients. Blocked and expired
// clients are skipped without a send attempt.
func (p *NotificationProcessor) Send(ctx context.Context, params SendParams) (SendResult, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "client_count", Value: len(params.ClientIDs)},
		observability.Field{Key: "test_mode", Value: params.TestMode},
	)
	if params.CampaignID != nil {
		ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: *params.CampaignID})
	}

	if len(params.ClientIDs) == 0 {
		return SendResult{}, ErrNoClients
	}

	if params.CampaignID != nil {
		if _, err := p.store.GetCampaignByID(ctx, *params.CampaignID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return SendResult{}, ErrCampaignNotFound
			}
			p.logger.Error(ctx, "failed to get campaign", err)
			return SendResult{}, err
		}
	}

	clients, err := p.store.GetClientsByIDs(ctx, params.ClientIDs)
	if err != nil {
		p.logger.Error(ctx, "failed to load clients", err)
		return SendResult{}, err
	}
	if len(clients) == 0 {
		return SendResult{}, ErrNoClients
	}

	result := newSendResult()
	recipients := make([]dispatch.Recipient, 0, len(clients))
	for i, c := range clients {
		if !sendable(c) {
			result.Skipped = append(result.Skipped, dispatch.SkippedRecipient{
				Index:    i,
				ClientID: c.ID.String(),
				Reason:   "client access status is " + c.AccessStatus,
			})
			continue
		}
		recipients = append(recipients, recipient(c, store.VariantA))
	}

	opts := dispatch.SendOptions{TestMode: params.TestMode}
	if params.CampaignID != nil {
		opts.CampaignID = params.CampaignID.String()
	}

	res, err := p.dispatcher.Send(ctx, recipients, params.Notification, opts)
	if err != nil {
		p.logger.InfoWithError(ctx, "send rejected", err)
		return SendResult{}, err
	}
	result.merge(res)

	p.record(context.WithoutCancel(ctx), &result, params.CampaignID, params.TestMode)

	p.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "sent", Value: result.Sent},
		observability.Field{Key: "failed", Value: result.Failed},
		observability.Field{Key: "skipped", Value: len(result.Skipped)},
	), "notification sent")
	return result, nil
}

// SendCampaign sends a campaign to its targeted audience. When the campaign
// has a second variant, each client is assigned A or B by a stable hash of
// its id so a resend reaches every client with the same variant.
func (p *NotificationProcessor) SendCampaign(ctx context.Context, campaignID uuid.UUID) (SendResult, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaignID})

	campaign, err := p.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SendResult{}, ErrCampaignNotFound
		}
		p.logger.Error(ctx, "failed to get campaign", err)
		return SendResult{}, err
	}
	switch campaign.Status {
	case store.CampaignStatusCompleted, store.CampaignStatusPaused:
		return SendResult{}, ErrCampaignNotSendable
	}

	filter := store.TargetFilter{Browsers: campaign.Browsers, Systems: campaign.Systems}
	if campaign.Audience == store.AudienceSegment {
		// The segment was deleted; never widen the audience to every client.
		if campaign.SegmentID == nil {
			p.logger.Warn(ctx, "campaign segment no longer exists")
			return SendResult{}, ErrNoClients
		}
		filter.SegmentID = campaign.SegmentID
	}
	clients, err := p.store.ListTargetClients(ctx, filter)
	if err != nil {
		p.logger.Error(ctx, "failed to resolve campaign audience", err)
		return SendResult{}, err
	}
	if len(clients) == 0 {
		p.logger.Warn(ctx, "campaign audience is empty")
		return SendResult{}, ErrNoClients
	}

	if _, err := p.store.UpdateCampaignStatus(ctx, campaignID, store.CampaignStatusActive); err != nil {
		p.logger.Error(ctx, "failed to mark campaign active", err)
		return SendResult{}, err
	}

	result := newSendResult()
	groups := splitVariants(clients, campaign)
	opts := dispatch.SendOptions{CampaignID: campaignID.String()}
	for _, variant := range []string{store.VariantA, store.VariantB} {
		group := groups[variant]
		if len(group) == 0 {
			continue
		}
		res, err := p.dispatcher.Send(ctx, group, campaignSpec(campaign, variant), opts)
		if errors.Is(err, dispatch.ErrNoValidSubscriptions) {
			// Every recipient of this variant was skipped; the other variant may still go out.
			p.logger.Warn(observability.WithFields(ctx, observability.Field{Key: "variant", Value: variant}),
				"no valid subscriptions for variant")
			result.Skipped = append(result.Skipped, res.Skipped...)
			continue
		}
		if err != nil {
			p.logger.Error(ctx, "campaign send rejected", err)
			if len(result.Results) == 0 {
				p.restoreStatus(ctx, campaignID, campaign.Status)
			}
			return SendResult{}, err
		}
		result.merge(res)
	}
	if len(result.Results) == 0 {
		p.restoreStatus(ctx, campaignID, campaign.Status)
		return SendResult{Skipped: result.Skipped}, dispatch.ErrNoValidSubscriptions
	}

	// Deliveries already left the process; their bookkeeping outlives the caller.
	ctx = context.WithoutCancel(ctx)
	p.record(ctx, &result, &campaignID, false)

	if _, err := p.store.UpdateCampaignStatus(ctx, campaignID, store.CampaignStatusCompleted); err != nil {
		p.logger.Error(ctx, "failed to mark campaign completed", err)
		return result, err
	}

	p.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "audience", Value: len(clients)},
		observability.Field{Key: "sent", Value: result.Sent},
		observability.Field{Key: "failed", Value: result.Failed},
	), "campaign sent")
	return result, nil
}

// Track records a click or dismiss reported by the service worker
func (p *NotificationProcessor) Track(ctx context.Context, e deliveries.TrackEvent) error {
	if err := p.bookkeeper.Track(ctx, e); err != nil {
		if errors.Is(err, deliveries.ErrInvalidTrackEvent) {
			return err
		}
		p.logger.Error(ctx, "failed to record tracking event", err)
		return err
	}
	return nil
}

func (p *NotificationProcessor) record(ctx context.Context, result *SendResult, campaignID *uuid.UUID, testMode bool) {
	counters, err := p.bookkeeper.Record(ctx, campaignID, result.Results, testMode)
	result.Counters = counters
	if err != nil {
		p.logger.Error(ctx, "failed to record deliveries", err)
		result.BookkeepingError = fmt.Errorf("%w: %v", ErrBookkeepingIncomplete, err).Error()
	}
}

// restoreStatus undoes the move to active when nothing was sent
func (p *NotificationProcessor) restoreStatus(ctx context.Context, campaignID uuid.UUID, status string) {
	if _, err := p.store.UpdateCampaignStatus(ctx, campaignID, status); err != nil {
		p.logger.Error(ctx, "failed to restore campaign status", err)
	}
}

func (r *SendResult) merge(res dispatch.Result) {
	r.Sent += res.Sent
	r.Failed += res.Failed
	r.Results = append(r.Results, res.Results...)
	r.Skipped = append(r.Skipped, res.Skipped...)
	for _, rr := range res.Results {
		if rr.Success {
			continue
		}
		r.ErrorDetails = append(r.ErrorDetails, ErrorDetail{
			ClientID:   rr.ClientID,
			StatusCode: rr.StatusCode,
			Message:    rr.Error,
			Expired:    rr.Outcome == dispatch.OutcomeExpired,
		})
	}
}

func sendable(c store.Client) bool {
	return c.AccessStatus != store.AccessStatusBlocked && c.AccessStatus != store.AccessStatusExpired
}

func recipient(c store.Client, variant string) dispatch.Recipient {
	return dispatch.Recipient{
		ClientID: c.ID.String(),
		Subscription: push.Subscription{
			Endpoint: c.Endpoint,
			Keys:     &push.Keys{P256dh: c.P256dh, Auth: c.Auth},
		},
		Variant: variant,
	}
}

// splitVariants groups clients by A/B variant. ABSplit is the percentage of
// clients receiving variant A.
func splitVariants(clients []store.Client, campaign store.Campaign) map[string][]dispatch.Recipient {
	groups := map[string][]dispatch.Recipient{}
	for _, c := range clients {
		variant := store.VariantA
		if campaign.VariantB != nil && bucket(c.ID) >= campaign.ABSplit {
			variant = store.VariantB
		}
		groups[variant] = append(groups[variant], recipient(c, variant))
	}
	return groups
}

// bucket maps a client id to [0, 100)
func bucket(id uuid.UUID) int {
	h := fnv.New32a()
	h.Write(id[:])
	return int(h.Sum32() % 100)
}

func campaignSpec(c store.Campaign, variant string) push.NotificationSpec {
	spec := push.NotificationSpec{
		Title:              c.Title,
		Body:               c.Message,
		Icon:               deref(c.Icon),
		Badge:              deref(c.Badge),
		Image:              deref(c.Image),
		URL:                deref(c.URL),
		RequireInteraction: c.RequireInteraction,
		Actions:            make([]push.Action, 0, len(c.Actions)),
	}
	for _, a := range c.Actions {
		spec.Actions = append(spec.Actions, push.Action{Action: a.Action, Title: a.Title, Icon: a.Icon, URL: a.URL})
	}

	if variant == store.VariantB && c.VariantB != nil {
		b := c.VariantB
		spec.Title = override(spec.Title, b.Title)
		spec.Body = override(spec.Body, b.Message)
		spec.Icon = override(spec.Icon, b.Icon)
		spec.Image = override(spec.Image, b.Image)
		spec.URL = override(spec.URL, b.URL)
	}
	spec.Data = map[string]any{"variant": variant}
	return spec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func override(base, v string) string {
	if v != "" {
		return v
	}
	return base
}
