package jobs

//go:generate go run go.uber.org/mock/mockgen@latest -source=client.go -destination=mocks_test.go -package=jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"push-server/internal/observability"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer is the subset of *asynq.Client used to enqueue tasks
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client handles enqueueing background jobs
type Client struct {
	client Enqueuer
	logger *observability.Logger
}

// NewClient creates a new job client
func NewClient(redisOpt asynq.RedisClientOpt, logger *observability.Logger) *Client {
	return NewClientWithEnqueuer(asynq.NewClient(redisOpt), logger)
}

func NewClientWithEnqueuer(enqueuer Enqueuer, logger *observability.Logger) *Client {
	return &Client{
		client: enqueuer,
		logger: logger,
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

// ScheduleCampaign enqueues a campaign send to run at the given time.
// Scheduling a campaign that already has a pending task is a no-op.
func (c *Client) ScheduleCampaign(ctx context.Context, campaignID uuid.UUID, at time.Time) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: campaignID},
		observability.Field{Key: "process_at", Value: at.UTC().Format(time.RFC3339)},
	)

	task, err := NewCampaignSendTask(CampaignSendPayload{CampaignID: campaignID}, at)
	if err != nil {
		c.logger.Error(ctx, "failed to create campaign send task", err)
		return fmt.Errorf("failed to create campaign send task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			c.logger.Info(ctx, "campaign send already scheduled")
			return nil
		}
		c.logger.Error(ctx, "failed to enqueue campaign send task", err)
		return fmt.Errorf("failed to enqueue campaign send task: %w", err)
	}

	c.logger.Info(ctx, fmt.Sprintf("enqueued campaign send task: %s (queue: %s)", info.ID, info.Queue))
	return nil
}
