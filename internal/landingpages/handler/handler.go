package handler

import (
	"net/http"

	"push-server/internal/apierrors"
	"push-server/internal/landingpages/processor"
	"push-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.LandingPageProcessor
	logger    *observability.Logger
}

func New(processor processor.LandingPageProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

type CreateLandingPageRequest struct {
	LandingID        string  `json:"landingId" binding:"omitempty,max=64"`
	Name             string  `json:"name" binding:"required,max=255"`
	Domain           string  `json:"domain" binding:"required,max=255"`
	BotProtection    bool    `json:"botProtection"`
	AllowRedirectURL *string `json:"allowRedirectUrl" binding:"omitempty,url"`
	BlockRedirectURL *string `json:"blockRedirectUrl" binding:"omitempty,url"`
}

// HandleCreate handles POST /api/landing-pages
func (h *Handler) HandleCreate(c *gin.Context) {
	var req CreateLandingPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	page, err := h.processor.Create(c.Request.Context(), processor.CreateParams{
		LandingID:        req.LandingID,
		Name:             req.Name,
		Domain:           req.Domain,
		BotProtection:    req.BotProtection,
		AllowRedirectURL: req.AllowRedirectURL,
		BlockRedirectURL: req.BlockRedirectURL,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

// HandleGetPublic handles GET /api/landing-pages/public/:landingId
func (h *Handler) HandleGetPublic(c *gin.Context) {
	page, err := h.processor.GetPublic(c.Request.Context(), c.Param("landingId"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// HandleList handles GET /api/landing-pages
func (h *Handler) HandleList(c *gin.Context) {
	pages, err := h.processor.List(c.Request.Context())
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": pages})
}

// HandleDelete handles DELETE /api/landing-pages/:id
func (h *Handler) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid landing page ID"))
		return
	}

	if err := h.processor.Delete(c.Request.Context(), id); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
