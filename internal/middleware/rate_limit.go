package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gallan_chat/internal/service"
	"gallan_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	limit            int
	window           time.Duration
	log              logger.Logger
}

// NewRateLimitMiddleware accepts a nil service, which turns every Limit into a pass-through.
func NewRateLimitMiddleware(rateLimitService service.RateLimitService, perMinute int, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		limit:            perMinute,
		window:           time.Minute,
		log:              log,
	}
}

// Limit counts requests per scope and caller (user id when authenticated, client IP otherwise).
func (m *RateLimitMiddleware) Limit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.rateLimitService == nil || m.limit <= 0 {
			c.Next()
			return
		}

		caller := "ip:" + c.ClientIP()
		if userID, ok := c.Get(UserIDKey); ok {
			caller = fmt.Sprintf("user:%d", userID)
		}
		key := fmt.Sprintf("ratelimit:%s:%s", scope, caller)

		allowed, remaining, err := m.rateLimitService.Allow(c.Request.Context(), key, m.limit, m.window)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}
