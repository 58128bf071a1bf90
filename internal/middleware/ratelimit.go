// ratelimit.go provides Gin middleware that enforces per-client rate limits
// backed by Redis (GCRA via redis_rate), returning 429 responses when the
// configured requests-per-minute threshold is exceeded. Limits are shared
// across instances through Redis; when Redis is unavailable the limiter
// fails open so an outage never takes down the API with it.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/societyhub/societyhub/internal/config"
)

// RateLimitConfig holds configuration for one rate-limit bucket.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate allowed per client key.
	RequestsPerMinute int
	// Burst is the short-term burst allowance above the sustained rate.
	Burst int
}

// NewRedisClient connects to Redis for rate limiting. Returns nil when no
// address is configured or the server is unreachable; callers pass the nil
// on to RateLimitMiddleware, which then disables limiting.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, rate limiting disabled", "addr", cfg.Addr, "error", err)
		return nil
	}
	return client
}

// RateLimitMiddleware creates a Gin middleware enforcing the given bucket
// against Redis. prefix namespaces the Redis keys so the general and auth
// buckets do not share state. A nil client yields a pass-through handler.
func RateLimitMiddleware(rdb *redis.Client, cfg RateLimitConfig, prefix string) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := redis_rate.NewLimiter(rdb)
	limit := redis_rate.Limit{
		Rate:   cfg.RequestsPerMinute,
		Burst:  cfg.Burst,
		Period: time.Minute,
	}

	return func(c *gin.Context) {
		key := prefix + ":" + rateLimitKey(c)

		res, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			// Fail open: a Redis hiccup must not reject traffic.
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			retryAfter := int(res.RetryAfter.Seconds() + 1)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     "Too many requests, slow down",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// rateLimitKey identifies the client: authenticated user id when present,
// otherwise the client IP.
func rateLimitKey(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok && id != "" {
			return "user:" + id
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
