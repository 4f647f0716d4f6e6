package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"strings"
	"time"

	notificationsProcessor "push-server/internal/notifications/processor"
	"push-server/internal/observability"
	"push-server/internal/store"

	"github.com/google/uuid"
)

// CampaignStore defines the database operations required by CampaignProcessor
type CampaignStore interface {
	CreateCampaign(ctx context.Context, params store.CreateCampaignParams) (store.Campaign, error)
	GetCampaignByID(ctx context.Context, id uuid.UUID) (store.Campaign, error)
	ListCampaigns(ctx context.Context, params store.ListCampaignsParams) ([]store.Campaign, int, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) (store.Campaign, error)
	DeleteCampaign(ctx context.Context, id uuid.UUID) error
	ResetCampaign(ctx context.Context, id uuid.UUID) (store.Campaign, error)
}

// Scheduler enqueues a campaign send to run at a later time
type Scheduler interface {
	ScheduleCampaign(ctx context.Context, campaignID uuid.UUID, at time.Time) error
}

// CampaignSender delivers a stored campaign to its audience
type CampaignSender interface {
	SendCampaign(ctx context.Context, campaignID uuid.UUID) (notificationsProcessor.SendResult, error)
}

var (
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrInvalidCampaignStatus   = errors.New("invalid campaign status")
	ErrInvalidStatusTransition = errors.New("invalid campaign status transition")
	ErrInvalidSchedule         = errors.New("scheduled time must be in the future")
	ErrInvalidABSplit          = errors.New("ab split must be between 0 and 100")
	ErrInvalidAudience         = errors.New("segment audience requires a segment id")
	ErrSchedulerUnavailable    = errors.New("campaign scheduler is not configured")
)

const (
	defaultABSplit   = 50
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// transitions lists the statuses a campaign may move to from each status.
// scheduled is only entered through Create, which also enqueues the send.
var transitions = map[string][]string{
	store.CampaignStatusDraft:     {store.CampaignStatusActive, store.CampaignStatusPaused},
	store.CampaignStatusScheduled: {store.CampaignStatusDraft, store.CampaignStatusPaused, store.CampaignStatusActive},
	store.CampaignStatusActive:    {store.CampaignStatusPaused, store.CampaignStatusCompleted},
	store.CampaignStatusPaused:    {store.CampaignStatusDraft, store.CampaignStatusActive, store.CampaignStatusCompleted},
	store.CampaignStatusCompleted: {},
}

type CampaignProcessor struct {
	store     CampaignStore
	scheduler Scheduler
	sender    CampaignSender
	logger    *observability.Logger
	now       func() time.Time
}

// New creates a CampaignProcessor. scheduler may be nil when Redis is not
// configured; creating a scheduled campaign then fails with ErrSchedulerUnavailable.
func New(store CampaignStore, scheduler Scheduler, sender CampaignSender, logger *observability.Logger) CampaignProcessor {
	return CampaignProcessor{
		store:     store,
		scheduler: scheduler,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateCampaignParams represents parameters for creating a campaign
type CreateCampaignParams struct {
	Name               string
	Title              string
	Message            string
	Icon               *string
	Badge              *string
	Image              *string
	URL                *string
	Actions            store.CampaignActions
	RequireInteraction bool
	VariantB           *store.CampaignVariant
	ABSplit            *int
	Audience           string
	Browsers           []string
	Systems            []string
	SegmentID          *uuid.UUID
	ScheduledAt        *time.Time
}

func (p *CampaignProcessor) Create(ctx context.Context, params CreateCampaignParams) (store.Campaign, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_name", Value: params.Name})

	split := defaultABSplit
	if params.ABSplit != nil {
		split = *params.ABSplit
	}
	if split < 0 || split > 100 {
		return store.Campaign{}, ErrInvalidABSplit
	}

	audience := params.Audience
	if audience == "" {
		audience = store.AudienceAll
	}
	switch audience {
	case store.AudienceAll:
	case store.AudienceSegment:
		if params.SegmentID == nil {
			return store.Campaign{}, ErrInvalidAudience
		}
	default:
		return store.Campaign{}, ErrInvalidAudience
	}

	scheduleType, status := store.ScheduleTypeImmediate, store.CampaignStatusDraft
	if params.ScheduledAt != nil {
		if !params.ScheduledAt.After(p.now()) {
			return store.Campaign{}, ErrInvalidSchedule
		}
		if p.scheduler == nil {
			return store.Campaign{}, ErrSchedulerUnavailable
		}
		scheduleType, status = store.ScheduleTypeScheduled, store.CampaignStatusScheduled
	}

	campaign, err := p.store.CreateCampaign(ctx, store.CreateCampaignParams{
		Name:               strings.TrimSpace(params.Name),
		Title:              params.Title,
		Message:            params.Message,
		Icon:               params.Icon,
		Badge:              params.Badge,
		Image:              params.Image,
		URL:                params.URL,
		Actions:            params.Actions,
		RequireInteraction: params.RequireInteraction,
		VariantB:           params.VariantB,
		ABSplit:            split,
		Audience:           audience,
		Browsers:           nonNil(params.Browsers),
		Systems:            nonNil(params.Systems),
		SegmentID:          params.SegmentID,
		ScheduleType:       scheduleType,
		ScheduledAt:        params.ScheduledAt,
		Status:             status,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to create campaign", err)
		return store.Campaign{}, err
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaign.ID})

	if params.ScheduledAt != nil {
		if err := p.scheduler.ScheduleCampaign(ctx, campaign.ID, *params.ScheduledAt); err != nil {
			p.logger.Error(ctx, "failed to schedule campaign", err)
			if delErr := p.store.DeleteCampaign(ctx, campaign.ID); delErr != nil {
				p.logger.Error(ctx, "failed to remove unscheduled campaign", delErr)
			}
			return store.Campaign{}, err
		}
	}

	p.logger.Info(ctx, "campaign created")
	return campaign, nil
}

func (p *CampaignProcessor) Get(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error) {
	campaign, err := p.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		p.logger.Error(ctx, "failed to get campaign", err)
		return store.Campaign{}, err
	}
	return campaign, nil
}

type ListParams struct {
	Status string
	Page   int
	Limit  int
}

type ListResult struct {
	Items      []store.Campaign `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

func (p *CampaignProcessor) List(ctx context.Context, params ListParams) (ListResult, error) {
	page, limit := params.Page, params.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := store.ListCampaignsParams{Limit: limit, Offset: (page - 1) * limit}
	if params.Status != "" {
		if _, ok := transitions[params.Status]; !ok {
			return ListResult{}, ErrInvalidCampaignStatus
		}
		filter.Status = &params.Status
	}

	items, total, err := p.store.ListCampaigns(ctx, filter)
	if err != nil {
		p.logger.Error(ctx, "failed to list campaigns", err)
		return ListResult{}, err
	}
	if items == nil {
		items = []store.Campaign{}
	}

	return ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// UpdateStatus moves a campaign to status. Setting the current status again is a no-op.
func (p *CampaignProcessor) UpdateStatus(ctx context.Context, campaignID uuid.UUID, status string) (store.Campaign, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: campaignID},
		observability.Field{Key: "status", Value: status},
	)

	if _, ok := transitions[status]; !ok {
		return store.Campaign{}, ErrInvalidCampaignStatus
	}

	campaign, err := p.Get(ctx, campaignID)
	if err != nil {
		return store.Campaign{}, err
	}
	if campaign.Status == status {
		return campaign, nil
	}
	if !canTransition(campaign.Status, status) {
		return store.Campaign{}, ErrInvalidStatusTransition
	}

	updated, err := p.store.UpdateCampaignStatus(ctx, campaignID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		p.logger.Error(ctx, "failed to update campaign status", err)
		return store.Campaign{}, err
	}

	p.logger.Info(ctx, "campaign status updated")
	return updated, nil
}

func (p *CampaignProcessor) Delete(ctx context.Context, campaignID uuid.UUID) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaignID})

	if err := p.store.DeleteCampaign(ctx, campaignID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCampaignNotFound
		}
		p.logger.Error(ctx, "failed to delete campaign", err)
		return err
	}

	p.logger.Info(ctx, "campaign deleted")
	return nil
}

// Reset zeroes the campaign counters, drops its delivery records and returns it to draft.
func (p *CampaignProcessor) Reset(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaignID})

	campaign, err := p.store.ResetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		p.logger.Error(ctx, "failed to reset campaign", err)
		return store.Campaign{}, err
	}

	p.logger.Info(ctx, "campaign reset")
	return campaign, nil
}

func (p *CampaignProcessor) Send(ctx context.Context, campaignID uuid.UUID) (notificationsProcessor.SendResult, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaignID})

	result, err := p.sender.SendCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, notificationsProcessor.ErrCampaignNotFound) {
			return notificationsProcessor.SendResult{}, ErrCampaignNotFound
		}
		return notificationsProcessor.SendResult{}, err
	}
	return result, nil
}

func canTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
