package handler

import (
	"errors"
	"net/http"

	"push-server/internal/apierrors"
	"push-server/internal/deliveries"
	"push-server/internal/notifications/processor"
	"push-server/internal/observability"
	"push-server/internal/push"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.NotificationProcessor
	logger    *observability.Logger
}

func New(processor processor.NotificationProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// NotificationRequest is the notification content of a send request
type NotificationRequest struct {
	Title              string         `json:"title"`
	Message            string         `json:"message"`
	Icon               string         `json:"icon"`
	Badge              string         `json:"badge"`
	Image              string         `json:"image"`
	URL                string         `json:"url"`
	Tag                string         `json:"tag"`
	RequireInteraction bool           `json:"requireInteraction"`
	Actions            []push.Action  `json:"actions" binding:"omitempty,max=2"`
	CampaignID         *string        `json:"campaignId" binding:"omitempty,uuid"`
	Data               map[string]any `json:"data"`
}

type SendRequest struct {
	ClientIDs    []string            `json:"clientIds" binding:"required,min=1,dive,uuid"`
	Notification NotificationRequest `json:"notification"`
	TestMode     bool                `json:"testMode"`
}

// HandleSend handles POST /api/notifications/send
func (h *Handler) HandleSend(c *gin.Context) {
	ctx := c.Request.Context()

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	clientIDs := make([]uuid.UUID, 0, len(req.ClientIDs))
	for _, id := range req.ClientIDs {
		// Already validated by the binding.
		clientIDs = append(clientIDs, uuid.MustParse(id))
	}

	params := processor.SendParams{
		ClientIDs: clientIDs,
		Notification: push.NotificationSpec{
			Title:              req.Notification.Title,
			Body:               req.Notification.Message,
			Icon:               req.Notification.Icon,
			Badge:              req.Notification.Badge,
			Image:              req.Notification.Image,
			URL:                req.Notification.URL,
			Tag:                req.Notification.Tag,
			RequireInteraction: req.Notification.RequireInteraction,
			Actions:            req.Notification.Actions,
			Data:               req.Notification.Data,
		},
		TestMode: req.TestMode,
	}
	if req.Notification.CampaignID != nil && *req.Notification.CampaignID != "" {
		campaignID := uuid.MustParse(*req.Notification.CampaignID)
		params.CampaignID = &campaignID
	}

	result, err := h.processor.Send(ctx, params)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// TrackRequest is the service worker's click or dismiss report
type TrackRequest struct {
	Event          string  `json:"event" binding:"required,oneof=notification_clicked notification_dismissed"`
	CampaignID     *string `json:"campaignId"`
	NotificationID string  `json:"notificationId"`
	ClientID       string  `json:"clientId" binding:"required,uuid"`
	Action         string  `json:"action"`
	Timestamp      int64   `json:"timestamp"`
}

// HandleTrack handles POST /api/notifications/track. The caller is fire and
// forget, so only a malformed report is answered with an error.
func (h *Handler) HandleTrack(c *gin.Context) {
	ctx := c.Request.Context()

	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	event := deliveries.TrackEvent{
		Event:          req.Event,
		ClientID:       uuid.MustParse(req.ClientID),
		NotificationID: req.NotificationID,
		Action:         req.Action,
		Timestamp:      req.Timestamp,
	}
	if req.CampaignID != nil && *req.CampaignID != "" {
		campaignID, err := uuid.Parse(*req.CampaignID)
		if err != nil {
			apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid campaign ID"))
			return
		}
		event.CampaignID = &campaignID
	}

	// Storage failures are logged by the processor; the worker never retries.
	if err := h.processor.Track(ctx, event); errors.Is(err, deliveries.ErrInvalidTrackEvent) {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
