package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/croftje/billingd/internal/app"
	"github.com/croftje/billingd/internal/httpserver/httputil"
	billingsvc "github.com/croftje/billingd/internal/services/billing"
	reconciliationsvc "github.com/croftje/billingd/internal/services/reconciliation"
)

type billingHandler struct {
	container *app.Container
}

func registerBillingRoutes(router fiber.Router, container *app.Container) {
	h := &billingHandler{container: container}
	router.Post("/billing/preview", h.preview)
	router.Post("/billing/reconciliation", h.reconciliation)
}

// billingConfigPayload is the shared request config for billing endpoints.
// Prices are per valid call in minor currency units; reconciliation ignores
// them.
type billingConfigPayload struct {
	OrgID            string `json:"org_id"`
	PeriodStart      string `json:"period_start"`
	PeriodEnd        string `json:"period_end"`
	TwoFactorPrice   int64  `json:"two_factor_price"`
	ThreeFactorPrice int64  `json:"three_factor_price"`
}

type reconciliationPayload struct {
	Config   billingConfigPayload `json:"config"`
	Page     *int                 `json:"page"`
	PageSize *int                 `json:"page_size"`
}

func (h *billingHandler) preview(c *fiber.Ctx) error {
	var payload billingConfigPayload
	if err := c.BodyParser(&payload); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid JSON body")
	}

	result, err := h.container.Billing.Preview(c.Context(), billingsvc.PreviewRequest{
		OrgID:            payload.OrgID,
		PeriodStart:      payload.PeriodStart,
		PeriodEnd:        payload.PeriodEnd,
		TwoFactorPrice:   payload.TwoFactorPrice,
		ThreeFactorPrice: payload.ThreeFactorPrice,
	})
	if err != nil {
		return httputil.WriteAppError(c, err)
	}
	return c.JSON(result)
}

func (h *billingHandler) reconciliation(c *fiber.Ctx) error {
	var payload reconciliationPayload
	if err := c.BodyParser(&payload); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid JSON body")
	}

	// Absent fields fall back to defaults; explicit values are validated
	// as given, including out-of-range ones.
	page := 1
	if payload.Page != nil {
		page = *payload.Page
	}
	pageSize := h.container.Config.Reporting.DefaultPageSize
	if payload.PageSize != nil {
		pageSize = *payload.PageSize
	}

	result, err := h.container.Reconciliation.Page(c.Context(), reconciliationsvc.PageRequest{
		OrgID:       payload.Config.OrgID,
		PeriodStart: payload.Config.PeriodStart,
		PeriodEnd:   payload.Config.PeriodEnd,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		return httputil.WriteAppError(c, err)
	}
	return c.JSON(result)
}
