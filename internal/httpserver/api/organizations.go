package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/croftje/billingd/internal/app"
	"github.com/croftje/billingd/internal/httpserver/httputil"
	"github.com/croftje/billingd/internal/logstore"
)

type organizationsHandler struct {
	container *app.Container
}

func registerOrganizationRoutes(router fiber.Router, container *app.Container) {
	h := &organizationsHandler{container: container}
	router.Get("/organizations", h.list)
}

func (h *organizationsHandler) list(c *fiber.Ctx) error {
	orgs, err := h.container.Analytics.Organizations(c.Context())
	if err != nil {
		return httputil.WriteAppError(c, err)
	}
	if orgs == nil {
		orgs = []logstore.Organization{}
	}
	return c.JSON(fiber.Map{"organizations": orgs})
}
