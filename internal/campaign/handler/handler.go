package handler

import (
	"net/http"
	"strconv"
	"time"

	"push-server/internal/apierrors"
	"push-server/internal/campaign/processor"
	"push-server/internal/observability"
	"push-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.CampaignProcessor
	logger    *observability.Logger
}

func New(processor processor.CampaignProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

type ActionRequest struct {
	Action string `json:"action" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Icon   string `json:"icon"`
	URL    string `json:"url"`
}

type VariantRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
	Icon    string `json:"icon"`
	Image   string `json:"image"`
	URL     string `json:"url"`
}

// CreateCampaignRequest represents the HTTP request for creating a campaign
type CreateCampaignRequest struct {
	Name               string          `json:"name" binding:"required,max=255"`
	Title              string          `json:"title" binding:"required"`
	Message            string          `json:"message" binding:"required"`
	Icon               *string         `json:"icon"`
	Badge              *string         `json:"badge"`
	Image              *string         `json:"image"`
	URL                *string         `json:"url"`
	Actions            []ActionRequest `json:"actions" binding:"omitempty,max=2,dive"`
	RequireInteraction bool            `json:"requireInteraction"`
	VariantB           *VariantRequest `json:"variantB"`
	ABSplit            *int            `json:"abSplit"`
	Audience           string          `json:"audience" binding:"omitempty,oneof=all segment"`
	Browsers           []string        `json:"browsers"`
	Systems            []string        `json:"systems"`
	SegmentID          *string         `json:"segmentId" binding:"omitempty,uuid"`
	ScheduledAt        *time.Time      `json:"scheduledAt"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// HandleCreateCampaign handles POST /api/campaigns
func (h *Handler) HandleCreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	params := processor.CreateCampaignParams{
		Name:               req.Name,
		Title:              req.Title,
		Message:            req.Message,
		Icon:               req.Icon,
		Badge:              req.Badge,
		Image:              req.Image,
		URL:                req.URL,
		RequireInteraction: req.RequireInteraction,
		ABSplit:            req.ABSplit,
		Audience:           req.Audience,
		Browsers:           req.Browsers,
		Systems:            req.Systems,
		ScheduledAt:        req.ScheduledAt,
	}
	for _, a := range req.Actions {
		params.Actions = append(params.Actions, store.CampaignAction{Action: a.Action, Title: a.Title, Icon: a.Icon, URL: a.URL})
	}
	if req.VariantB != nil {
		params.VariantB = &store.CampaignVariant{
			Title:   req.VariantB.Title,
			Message: req.VariantB.Message,
			Icon:    req.VariantB.Icon,
			Image:   req.VariantB.Image,
			URL:     req.VariantB.URL,
		}
	}
	if req.SegmentID != nil {
		segmentID := uuid.MustParse(*req.SegmentID)
		params.SegmentID = &segmentID
	}

	campaign, err := h.processor.Create(c.Request.Context(), params)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// HandleListCampaigns handles GET /api/campaigns
func (h *Handler) HandleListCampaigns(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid page"))
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid limit"))
		return
	}

	result, err := h.processor.List(c.Request.Context(), processor.ListParams{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetCampaign handles GET /api/campaigns/:id
func (h *Handler) HandleGetCampaign(c *gin.Context) {
	campaignID, ok := parseIDParam(c)
	if !ok {
		return
	}

	campaign, err := h.processor.Get(c.Request.Context(), campaignID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// HandleUpdateStatus handles PATCH /api/campaigns/:id/status
func (h *Handler) HandleUpdateStatus(c *gin.Context) {
	campaignID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	campaign, err := h.processor.UpdateStatus(c.Request.Context(), campaignID, req.Status)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// HandleDeleteCampaign handles DELETE /api/campaigns/:id
func (h *Handler) HandleDeleteCampaign(c *gin.Context) {
	campaignID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.processor.Delete(c.Request.Context(), campaignID); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleResetCampaign handles POST /api/campaigns/:id/reset
func (h *Handler) HandleResetCampaign(c *gin.Context) {
	campaignID, ok := parseIDParam(c)
	if !ok {
		return
	}

	campaign, err := h.processor.Reset(c.Request.Context(), campaignID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// HandleSendCampaign handles POST /api/campaigns/:id/send
func (h *Handler) HandleSendCampaign(c *gin.Context) {
	campaignID, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.processor.Send(c.Request.Context(), campaignID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid campaign ID"))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
