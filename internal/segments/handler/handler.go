package handler

import (
	"net/http"

	"push-server/internal/apierrors"
	"push-server/internal/observability"
	"push-server/internal/segments/processor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.SegmentProcessor
	logger    *observability.Logger
}

func New(processor processor.SegmentProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

type CreateSegmentRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type AddClientsRequest struct {
	ClientIDs []string `json:"clientIds" binding:"required,min=1,max=1000,dive,uuid"`
}

// HandleCreate handles POST /api/segments
func (h *Handler) HandleCreate(c *gin.Context) {
	var req CreateSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	segment, err := h.processor.Create(c.Request.Context(), req.Name)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, segment)
}

// HandleList handles GET /api/segments
func (h *Handler) HandleList(c *gin.Context) {
	segments, err := h.processor.List(c.Request.Context())
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": segments})
}

// HandleGet handles GET /api/segments/:id
func (h *Handler) HandleGet(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid segment ID")
	if !ok {
		return
	}

	segment, err := h.processor.Get(c.Request.Context(), id)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, segment)
}

// HandleDelete handles DELETE /api/segments/:id
func (h *Handler) HandleDelete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid segment ID")
	if !ok {
		return
	}

	if err := h.processor.Delete(c.Request.Context(), id); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAddClients handles POST /api/segments/:id/clients
func (h *Handler) HandleAddClients(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid segment ID")
	if !ok {
		return
	}

	var req AddClientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	// binding already checked the format
	clientIDs := make([]uuid.UUID, len(req.ClientIDs))
	for i, raw := range req.ClientIDs {
		clientIDs[i] = uuid.MustParse(raw)
	}

	result, err := h.processor.AddClients(c.Request.Context(), id, clientIDs)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleRemoveClient handles DELETE /api/segments/:id/clients/:clientId
func (h *Handler) HandleRemoveClient(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid segment ID")
	if !ok {
		return
	}
	clientID, ok := parseUUIDParam(c, "clientId", "Invalid client ID")
	if !ok {
		return
	}

	if err := h.processor.RemoveClient(c.Request.Context(), id, clientID); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseUUIDParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, message))
		return uuid.Nil, false
	}
	return id, true
}
