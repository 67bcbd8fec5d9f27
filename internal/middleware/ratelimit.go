package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/redis"
)

const rateLimitWindow = time.Minute

// RateLimitMiddleware caps mutating requests per caller per minute. The
// caller identity comes from the X-User-ID header, falling back to the client
// IP for anonymous traffic. Limiter errors fail open: dispatch availability
// beats strict accounting.
func RateLimitMiddleware(store *redis.RateLimitStore, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		caller := c.GetHeader("X-User-ID")
		if caller == "" {
			caller = c.ClientIP()
		}

		allowed, err := store.Allow(c.Request.Context(), caller, limit, rateLimitWindow)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
