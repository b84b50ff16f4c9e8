package transport

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/ratelimit"
)

// RateLimit enforces each API key's own request budget. The limiter is
// consulted after authentication so limits are always attributed to a key.
// A limiter outage fails open: throttling is protection, not a gate.
func RateLimit(limiter ratelimit.RateLimiter, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		key, err := APIKeyFromCtx(c)
		if err != nil {
			return err
		}

		window := time.Duration(key.RateWindowMS) * time.Millisecond
		result, err := limiter.Allow(c.Context(), key.ID, key.RateLimit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("apiKeyId", key.ID),
				zap.Error(err),
			)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			c.Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}

		return c.Next()
	}
}
