package httputil

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/croftje/billingd/internal/apperror"
)

// WriteError standardizes JSON error responses.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// WriteAppError maps a pipeline error to its HTTP status and renders the
// category alongside the message so clients can branch without parsing text.
func WriteAppError(c *fiber.Ctx, err error) error {
	cat := apperror.CategoryOf(err)
	status := fiber.StatusInternalServerError
	switch cat {
	case apperror.CategoryNotFound:
		status = fiber.StatusNotFound
	case apperror.CategoryInvalidArgument:
		status = fiber.StatusBadRequest
	case apperror.CategoryUpstreamFailure:
		status = fiber.StatusBadGateway
	}
	body := fiber.Map{"error": err.Error()}
	if cat != "" {
		body["category"] = string(cat)
	}
	return c.Status(status).JSON(body)
}
