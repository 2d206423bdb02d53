package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window counter shared across instances.
// Used on the login and contact endpoints where per-process counters would
// let an attacker multiply the budget by the replica count.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

func (rl *RedisRateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		redisKey := "ratelimit:" + rl.prefix + ":" + key

		ctx := c.Request.Context()

		n, err := rl.rdb.Incr(ctx, redisKey).Result()

		if err != nil {
			// redis down must not take logins down with it
			c.Next()
			return
		}

		if n == 1 {
			rl.rdb.Expire(ctx, redisKey, rl.window)
		}

		if n > int64(rl.limit) {
			ttl, err := rl.rdb.TTL(ctx, redisKey).Result()

			retryAfter := int(rl.window.Seconds())

			if err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds())
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})

			return
		}

		c.Next()
	}
}
