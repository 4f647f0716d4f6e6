package handler

import (
	"strings"

	"push-server/internal/apierrors"
	"push-server/internal/auth/processor"
	"push-server/internal/observability"

	"github.com/gin-gonic/gin"
)

// OperatorKey is the gin context key holding the authenticated token subject
const OperatorKey = "Operator"

type Handler struct {
	authProcessor processor.AuthProcessor
	logger        *observability.Logger
}

func New(authProcessor processor.AuthProcessor, logger *observability.Logger) Handler {
	return Handler{authProcessor: authProcessor, logger: logger}
}

// HandleJWTMiddleware rejects requests without a valid bearer token
func (h *Handler) HandleJWTMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	tokenHeader := c.GetHeader("Authorization")

	if tokenHeader == "" || !strings.HasPrefix(tokenHeader, "Bearer ") {
		apierrors.RespondWithError(c, apierrors.Unauthorized("Authorization token is missing or invalid"))
		c.Abort()
		return
	}

	claims, err := h.authProcessor.ValidateJWTToken(ctx, strings.TrimPrefix(tokenHeader, "Bearer "))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.Unauthorized(err.Error()))
		c.Abort()
		return
	}

	c.Set(OperatorKey, claims.Subject)
	c.Request = c.Request.WithContext(observability.WithFields(ctx, observability.Field{Key: "operator", Value: claims.Subject}))
	c.Next()
}
