package transport

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ryan-Karimov/notification-service/internal/domain"
)

const apiKeyLocal = "apiKey"

// APIKeyResolver resolves an API key secret to its active record.
type APIKeyResolver interface {
	FindByKey(ctx context.Context, key string) (*domain.APIKey, error)
}

// APIKeyAuth authenticates requests by the X-API-Key header and stores the
// resolved key on the request context for downstream handlers.
func APIKeyAuth(resolver APIKeyResolver, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		secret := strings.TrimSpace(c.Get("X-API-Key"))
		if secret == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing api key")
		}

		key, err := resolver.FindByKey(c.Context(), secret)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid api key")
			}
			logger.Error("api key lookup failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "authentication unavailable")
		}

		c.Locals(apiKeyLocal, key)
		return c.Next()
	}
}

// APIKeyFromCtx returns the authenticated key stored by APIKeyAuth.
func APIKeyFromCtx(c *fiber.Ctx) (*domain.APIKey, error) {
	key, ok := c.Locals(apiKeyLocal).(*domain.APIKey)
	if !ok || key == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "missing api key")
	}
	return key, nil
}
