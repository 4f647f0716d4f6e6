package scheduler

//go:generate go run go.uber.org/mock/mockgen@latest -source=due_campaigns.go -destination=mocks_test.go -package=scheduler

import (
	"context"
	"errors"
	"time"

	notificationsProcessor "push-server/internal/notifications/processor"
	"push-server/internal/observability"
	"push-server/internal/store"

	"github.com/google/uuid"
)

// DueCampaignStore lists scheduled campaigns that are past their send time
type DueCampaignStore interface {
	ListDueCampaigns(ctx context.Context, now time.Time, limit int) ([]store.Campaign, error)
}

// CampaignSender sends a stored campaign to its audience
type CampaignSender interface {
	SendCampaign(ctx context.Context, campaignID uuid.UUID) (notificationsProcessor.SendResult, error)
}

const (
	defaultSweepInterval = time.Minute
	// campaigns normally start from their queued task; the sweep only covers tasks that were lost
	defaultGracePeriod = 5 * time.Minute
	sweepBatchSize     = 20
)

// DueCampaignsJob sends scheduled campaigns whose queued task never ran,
// for example because Redis lost it.
type DueCampaignsJob struct {
	store    DueCampaignStore
	sender   CampaignSender
	logger   *observability.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func NewDueCampaignsJob(store DueCampaignStore, sender CampaignSender, logger *observability.Logger, interval time.Duration) *DueCampaignsJob {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &DueCampaignsJob{
		store:    store,
		sender:   sender,
		logger:   logger,
		interval: interval,
		grace:    defaultGracePeriod,
		now:      time.Now,
	}
}

func (j *DueCampaignsJob) Name() string {
	return "due_campaigns"
}

func (j *DueCampaignsJob) Schedule() time.Duration {
	return j.interval
}

func (j *DueCampaignsJob) Run(ctx context.Context) error {
	campaigns, err := j.store.ListDueCampaigns(ctx, j.now().Add(-j.grace), sweepBatchSize)
	if err != nil {
		return err
	}

	var errs []error
	for _, c := range campaigns {
		cctx := observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: c.ID})
		j.logger.Warn(cctx, "sending overdue scheduled campaign")

		if _, err := j.sender.SendCampaign(cctx, c.ID); err != nil {
			if errors.Is(err, notificationsProcessor.ErrCampaignNotSendable) || errors.Is(err, notificationsProcessor.ErrCampaignNotFound) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
