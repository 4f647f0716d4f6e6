package workers

//go:generate go run go.uber.org/mock/mockgen@latest -source=campaign_worker.go -destination=mocks_test.go -package=workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"push-server/internal/dispatch"
	"push-server/internal/jobs"
	notificationsProcessor "push-server/internal/notifications/processor"
	"push-server/internal/observability"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CampaignSender sends a stored campaign to its audience
type CampaignSender interface {
	SendCampaign(ctx context.Context, campaignID uuid.UUID) (notificationsProcessor.SendResult, error)
}

// CampaignWorker handles scheduled campaign sends
type CampaignWorker struct {
	sender CampaignSender
	logger *observability.Logger
}

// NewCampaignWorker creates a new campaign worker
func NewCampaignWorker(sender CampaignSender, logger *observability.Logger) *CampaignWorker {
	return &CampaignWorker{
		sender: sender,
		logger: logger,
	}
}

// ProcessCampaignSendTask processes a campaign:send task. Outcomes that a retry
// cannot change (campaign gone, paused, completed or without an audience) end the task.
func (w *CampaignWorker) ProcessCampaignSendTask(ctx context.Context, task *asynq.Task) error {
	var payload jobs.CampaignSendPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		w.logger.Error(ctx, "failed to unmarshal campaign send payload", err)
		return fmt.Errorf("failed to unmarshal campaign send payload: %v: %w", err, asynq.SkipRetry)
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: payload.CampaignID})

	result, err := w.sender.SendCampaign(ctx, payload.CampaignID)
	switch {
	case err == nil:
	case errors.Is(err, notificationsProcessor.ErrCampaignNotFound),
		errors.Is(err, notificationsProcessor.ErrCampaignNotSendable),
		errors.Is(err, notificationsProcessor.ErrNoClients),
		errors.Is(err, dispatch.ErrNoValidSubscriptions):
		w.logger.InfoWithError(ctx, "scheduled campaign not sent", err)
		return nil
	default:
		w.logger.Error(ctx, "failed to send scheduled campaign", err)
		return fmt.Errorf("failed to send scheduled campaign: %w", err)
	}

	w.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "sent", Value: result.Sent},
		observability.Field{Key: "failed", Value: result.Failed},
	), "scheduled campaign sent")
	return nil
}
