package api

import (
	"net/http"

	authHandler "push-server/internal/auth/handler"
	campaignHandler "push-server/internal/campaign/handler"
	"push-server/internal/events"
	landingHandler "push-server/internal/landingpages/handler"
	notificationsHandler "push-server/internal/notifications/handler"
	"push-server/internal/observability"
	"push-server/internal/ratelimit"
	registryHandler "push-server/internal/registry/handler"
	segmentsHandler "push-server/internal/segments/handler"
	"push-server/internal/swhandler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router               *gin.RouterGroup
	authHandler          *authHandler.Handler
	registryHandler      registryHandler.Handler
	notificationsHandler notificationsHandler.Handler
	campaignHandler      campaignHandler.Handler
	landingPageHandler   landingHandler.Handler
	segmentHandler       segmentsHandler.Handler
	streamHandler        events.StreamHandler
	rateLimiter          *ratelimit.Service
	vapidPublicKey       string
}

// Handlers groups the route handlers. Auth may be nil, leaving the
// dashboard routes unauthenticated. RateLimiter may be nil.
type Handlers struct {
	Auth          *authHandler.Handler
	Registry      registryHandler.Handler
	Notifications notificationsHandler.Handler
	Campaigns     campaignHandler.Handler
	LandingPages  landingHandler.Handler
	Segments      segmentsHandler.Handler
	Stream        events.StreamHandler
	RateLimiter   *ratelimit.Service
}

func New(router *gin.RouterGroup, handlers Handlers, vapidPublicKey string) API {
	return API{
		router:               router,
		authHandler:          handlers.Auth,
		registryHandler:      handlers.Registry,
		notificationsHandler: handlers.Notifications,
		campaignHandler:      handlers.Campaigns,
		landingPageHandler:   handlers.LandingPages,
		segmentHandler:       handlers.Segments,
		streamHandler:        handlers.Stream,
		rateLimiter:          handlers.RateLimiter,
		vapidPublicKey:       vapidPublicKey,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	a.router.GET("/metrics", observability.MetricsHandler())
	a.router.GET("/sw.js", swhandler.HandleScript)

	apiGroup := a.router.Group("/api")
	{
		apiGroup.POST("/clients/register", a.limited(a.registryHandler.HandleRegister)...)
		apiGroup.POST("/notifications/track", a.limited(a.notificationsHandler.HandleTrack)...)
		apiGroup.GET("/push/vapid-public-key", a.VAPIDPublicKey)
		apiGroup.GET("/landing-pages/public/:landingId", a.landingPageHandler.HandleGetPublic)
	}

	protectedGroup := apiGroup.Group("")
	if a.authHandler != nil {
		protectedGroup.Use(a.authHandler.HandleJWTMiddleware)
	}
	{
		protectedGroup.GET("/clients", a.registryHandler.HandleList)
		protectedGroup.GET("/clients/stats", a.registryHandler.HandleStats)
		protectedGroup.GET("/clients/:id", a.registryHandler.HandleGet)
		protectedGroup.PATCH("/clients/:id/status", a.registryHandler.HandleUpdateAccessStatus)
		protectedGroup.DELETE("/clients", a.registryHandler.HandleDelete)

		protectedGroup.POST("/notifications/send", a.notificationsHandler.HandleSend)

		protectedGroup.GET("/events", a.streamHandler.HandleSSE)
		protectedGroup.GET("/events/ws", a.streamHandler.HandleWebSocket)

		protectedGroup.POST("/campaigns", a.campaignHandler.HandleCreateCampaign)
		protectedGroup.GET("/campaigns", a.campaignHandler.HandleListCampaigns)
		protectedGroup.GET("/campaigns/:id", a.campaignHandler.HandleGetCampaign)
		protectedGroup.PATCH("/campaigns/:id/status", a.campaignHandler.HandleUpdateStatus)
		protectedGroup.DELETE("/campaigns/:id", a.campaignHandler.HandleDeleteCampaign)
		protectedGroup.POST("/campaigns/:id/reset", a.campaignHandler.HandleResetCampaign)
		protectedGroup.POST("/campaigns/:id/send", a.campaignHandler.HandleSendCampaign)

		protectedGroup.POST("/landing-pages", a.landingPageHandler.HandleCreate)
		protectedGroup.GET("/landing-pages", a.landingPageHandler.HandleList)
		protectedGroup.DELETE("/landing-pages/:id", a.landingPageHandler.HandleDelete)

		protectedGroup.POST("/segments", a.segmentHandler.HandleCreate)
		protectedGroup.GET("/segments", a.segmentHandler.HandleList)
		protectedGroup.GET("/segments/:id", a.segmentHandler.HandleGet)
		protectedGroup.DELETE("/segments/:id", a.segmentHandler.HandleDelete)
		protectedGroup.POST("/segments/:id/clients", a.segmentHandler.HandleAddClients)
		protectedGroup.DELETE("/segments/:id/clients/:clientId", a.segmentHandler.HandleRemoveClient)
	}
}

// limited prefixes h with the rate limiter when one is configured
func (a *API) limited(h gin.HandlerFunc) []gin.HandlerFunc {
	if a.rateLimiter == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{a.rateLimiter.Middleware(), h}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}

// VAPIDPublicKey serves the applicationServerKey browsers subscribe with
func (a *API) VAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": a.vapidPublicKey})
}
