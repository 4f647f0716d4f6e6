package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeCampaignSend = "campaign:send"
)

// Queue names
const (
	QueueCampaigns = "campaigns"
)

// CampaignSendPayload is the payload of a scheduled campaign send
type CampaignSendPayload struct {
	CampaignID uuid.UUID `json:"campaign_id"`
}

// NewCampaignSendTask creates a campaign send task that runs at the given time.
// The task id is derived from the campaign so a campaign is enqueued at most once.
func NewCampaignSendTask(payload CampaignSendPayload, at time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCampaignSend, data,
		asynq.Queue(QueueCampaigns),
		asynq.MaxRetry(3),
		asynq.ProcessAt(at),
		asynq.TaskID(campaignTaskID(payload.CampaignID)),
	), nil
}

func campaignTaskID(id uuid.UUID) string {
	return TypeCampaignSend + ":" + id.String()
}
