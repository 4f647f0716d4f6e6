package handler

import (
	"net/http"
	"strconv"

	"push-server/internal/apierrors"
	"push-server/internal/observability"
	"push-server/internal/push"
	"push-server/internal/registry/processor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.RegistryProcessor
	logger    *observability.Logger
}

func New(processor processor.RegistryProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

type BrowserInfoRequest struct {
	UserAgent string `json:"userAgent"`
	Browser   string `json:"browser"`
	Version   string `json:"version"`
	OS        string `json:"os"`
	Device    string `json:"device"`
	Language  string `json:"language"`
	Platform  string `json:"platform"`
	Timezone  string `json:"timezone"`
}

type LocationRequest struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// RegisterRequest is the subscription document posted by the browser widget
type RegisterRequest struct {
	Subscription push.Subscription `json:"subscription"`
	BrowserInfo  BrowserInfoRequest `json:"browserInfo"`
	Location     LocationRequest    `json:"location"`
	LandingID    string             `json:"landingId"`
	Domain       string             `json:"domain"`
	URL          string             `json:"url"`
	Tags         []string           `json:"tags" binding:"omitempty,max=50,dive,max=64"`
	AccessStatus string             `json:"accessStatus" binding:"omitempty,oneof=allowed blocked expired pending"`
}

type RegisterResponse struct {
	Success bool `json:"success"`
	Client  any  `json:"client"`
	IsNew   bool `json:"isNew"`
}

// HandleRegister handles POST /api/clients/register
func (h *Handler) HandleRegister(c *gin.Context) {
	ctx := c.Request.Context()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	if req.BrowserInfo.UserAgent == "" && req.BrowserInfo.Browser == "" {
		req.BrowserInfo.UserAgent = c.GetHeader("User-Agent")
	}

	// Viewer headers fill in location and device details the page could not
	// determine itself.
	viewer := observability.GetCloudFrontViewerInfo(c)
	if req.Location.Country == "" && viewer.Country != nil {
		req.Location.Country = *viewer.Country
	}
	if req.Location.City == "" && viewer.City != nil {
		req.Location.City = *viewer.City
	}
	if req.BrowserInfo.Timezone == "" && viewer.UserTimezone != nil {
		req.BrowserInfo.Timezone = *viewer.UserTimezone
	}

	subscribedURL := req.URL
	if subscribedURL == "" && req.Domain != "" {
		subscribedURL = "https://" + req.Domain
	}

	result, err := h.processor.RegisterOrUpdate(ctx, processor.RegisterParams{
		Subscription: req.Subscription,
		BrowserInfo: processor.BrowserInfo{
			UserAgent: req.BrowserInfo.UserAgent,
			Browser:   req.BrowserInfo.Browser,
			Version:   req.BrowserInfo.Version,
			OS:        req.BrowserInfo.OS,
			Device:    req.BrowserInfo.Device,
			Language:  req.BrowserInfo.Language,
			Platform:  req.BrowserInfo.Platform,
			Timezone:  req.BrowserInfo.Timezone,

			ViewerDevice: viewer.DeviceType,
			ViewerOS:     viewer.DeviceOS,
		},
		Location:     processor.Location{Country: req.Location.Country, City: req.Location.City},
		IP:           observability.GetRealClientIP(c),
		LandingID:    req.LandingID,
		URL:          subscribedURL,
		Tags:         req.Tags,
		AccessStatus: req.AccessStatus,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.IsNew {
		status = http.StatusCreated
	}
	c.JSON(status, RegisterResponse{Success: true, Client: result.Client, IsNew: result.IsNew})
}

// HandleDelete handles DELETE /api/clients?id=<clientId>
func (h *Handler) HandleDelete(c *gin.Context) {
	ctx := c.Request.Context()

	idParam := c.Query("id")
	if idParam == "" {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Client ID is required"))
		return
	}
	clientID, err := uuid.Parse(idParam)
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid client ID"))
		return
	}

	if err := h.processor.Delete(ctx, clientID); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Client deleted successfully",
	})
}

// HandleList handles GET /api/clients
func (h *Handler) HandleList(c *gin.Context) {
	ctx := c.Request.Context()

	page, err := queryInt(c, "page")
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "page must be a number"))
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "limit must be a number"))
		return
	}

	result, err := h.processor.List(ctx, processor.ListParams{
		Search:  c.Query("search"),
		Browser: c.Query("browser"),
		Country: c.Query("country"),
		Device:  c.Query("device"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleGet handles GET /api/clients/:id
func (h *Handler) HandleGet(c *gin.Context) {
	clientID, ok := parseIDParam(c)
	if !ok {
		return
	}

	client, err := h.processor.Get(c.Request.Context(), clientID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

type UpdateAccessStatusRequest struct {
	AccessStatus string `json:"accessStatus" binding:"required,oneof=allowed blocked expired pending"`
}

// HandleUpdateAccessStatus handles PATCH /api/clients/:id/status
func (h *Handler) HandleUpdateAccessStatus(c *gin.Context) {
	clientID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateAccessStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	client, err := h.processor.UpdateAccessStatus(c.Request.Context(), clientID, req.AccessStatus)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// HandleStats handles GET /api/clients/stats
func (h *Handler) HandleStats(c *gin.Context) {
	stats, err := h.processor.Stats(c.Request.Context())
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "Invalid client ID"))
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
