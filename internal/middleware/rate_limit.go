package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mentor_chat/internal/service"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit allows limit requests per window for each authenticated user, or
// each client IP before authentication.
func (m *RateLimitMiddleware) Limit(scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		if userID := c.GetString(ContextKeyUserID); userID != "" {
			key = scope + ":" + userID
		}

		allowed, err := m.rateLimitService.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			m.log.Error("Rate limit check failed", "key", key, "error", err)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			abortWithError(c, apperrors.ErrRateLimited)
			return
		}

		c.Next()
	}
}
