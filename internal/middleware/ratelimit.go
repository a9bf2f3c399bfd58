package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimit caps requests per client IP inside a fixed window kept in
// redis. When redis is unreachable the request is let through; throttling
// is protection, not correctness.
func RateLimit(client *redis.Client, log zerolog.Logger, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", scope, c.ClientIP())

		count, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		if count == 1 {
			client.Expire(c.Request.Context(), key, window)
		}

		if count > int64(limit) {
			retryAfter := window
			if ttl, err := client.TTL(c.Request.Context(), key).Result(); err == nil && ttl > 0 {
				retryAfter = ttl
			}

			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":       "too_many_requests",
					"message":    "too many requests, slow down",
					"retryAfter": int(retryAfter.Seconds()),
				},
			})
			return
		}

		c.Next()
	}
}
