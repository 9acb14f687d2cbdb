package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/croftje/billingd/internal/app"
	"github.com/croftje/billingd/internal/httpserver/httputil"
)

type analyticsHandler struct {
	container *app.Container
}

func registerAnalyticsRoutes(router fiber.Router, container *app.Container) {
	h := &analyticsHandler{container: container}
	router.Get("/analytics/org-stats", h.orgStats)
	router.Get("/analytics/call-stats", h.callStats)
	router.Get("/analytics/revenue", h.revenue)
}

func (h *analyticsHandler) orgStats(c *fiber.Ctx) error {
	result, err := h.container.Analytics.OrgStats(c.Context(), c.Query("period"), c.Query("date"))
	if err != nil {
		return httputil.WriteAppError(c, err)
	}
	return c.JSON(result)
}

func (h *analyticsHandler) callStats(c *fiber.Ctx) error {
	result, err := h.container.Analytics.CallStats(c.Context(), c.Query("period"), c.Query("date"), c.Query("org_id"))
	if err != nil {
		return httputil.WriteAppError(c, err)
	}
	return c.JSON(result)
}

func (h *analyticsHandler) revenue(c *fiber.Ctx) error {
	result, err := h.container.Analytics.RevenueTrend(c.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return httputil.WriteAppError(c, err)
	}
	return c.JSON(result)
}
