package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/croftje/billingd/internal/app"
)

type cacheHandler struct {
	container *app.Container
}

func registerCacheRoutes(router fiber.Router, container *app.Container) {
	h := &cacheHandler{container: container}
	router.Post("/cache/clear", h.clear)
}

func (h *cacheHandler) clear(c *fiber.Ctx) error {
	removed := h.container.Cache.ClearAll()
	h.container.Logger.Info("result cache cleared", "entries_removed", removed)
	return c.JSON(fiber.Map{
		"cleared_at":      time.Now().UTC().Format(time.RFC3339),
		"entries_removed": removed,
	})
}
