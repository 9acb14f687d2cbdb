package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/croftje/billingd/internal/app"
	"github.com/croftje/billingd/internal/httpserver/httputil"
	"github.com/croftje/billingd/internal/limits"
)

// clientLimitMiddleware throttles each client IP. Redis outages fail open so
// a broken limiter cannot take the reporting API down with it.
func clientLimitMiddleware(container *app.Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "client:" + c.IP()
		cfg := container.ClientLimit

		if err := container.RateLimiter.Allow(c.Context(), key, cfg); err != nil {
			if errors.Is(err, limits.ErrLimitExceeded) {
				return httputil.WriteError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
			}
			container.Logger.Warn("rate limiter unavailable", "error", err)
			return c.Next()
		}
		defer container.RateLimiter.Release(c.Context(), key, cfg)
		return c.Next()
	}
}
