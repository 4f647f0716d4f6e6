package ratelimit

import (
	"math"
	"strconv"

	"push-server/internal/apierrors"
	"push-server/internal/observability"

	"github.com/gin-gonic/gin"
)

// Middleware limits requests per client IP and route. Limiter failures let
// the request through so subscriptions keep working when Redis is degraded.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := observability.WithFields(c.Request.Context(),
			observability.Field{Key: "client_ip", Value: c.ClientIP()},
			observability.Field{Key: "rate_limit_rpm", Value: s.limit},
		)

		result, err := s.Check(ctx, c.FullPath()+"|"+c.ClientIP())
		if err != nil {
			s.logger.Error(ctx, "rate limit check failed", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			// Round up so clients never retry early.
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			s.logger.Warn(ctx, "rate limit exceeded")
			apierrors.RespondWithError(c, apierrors.TooManyRequests("Rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}
