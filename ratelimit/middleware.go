// Package ratelimit provides a Redis-backed fixed-window request
// limiter. The generation endpoint fronts rate-limited third-party
// providers, so one client must not be able to monopolize them.
package ratelimit

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Middleware limits each client IP to limit requests per window. A nil
// client or a Redis outage fails open: generation still works, it just
// is not throttled.
func Middleware(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP()
		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Printf("Rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(c.Request.Context(), key, window)
		}
		if count > int64(limit) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
