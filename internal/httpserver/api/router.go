// Package api wires the reporting endpoints under /api.
package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/croftje/billingd/internal/app"
)

// Register mounts all /api routes behind the per-client rate limit.
func Register(fiberApp *fiber.App, container *app.Container) {
	group := fiberApp.Group("/api", clientLimitMiddleware(container))
	registerBillingRoutes(group, container)
	registerCacheRoutes(group, container)
	registerOrganizationRoutes(group, container)
	registerAnalyticsRoutes(group, container)
}
