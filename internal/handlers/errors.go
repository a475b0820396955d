package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/lumenchat/lumen-backend/internal/httpx"
	"github.com/lumenchat/lumen-backend/internal/service"
)

// sendServiceHTTPError maps service sentinels onto HTTP statuses; anything
// unrecognized collapses to a 500 with the handler-provided code.
func sendServiceHTTPError(c *fiber.Ctx, err error, fallbackCode string) error {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		return httpx.Forbidden(c, "access_denied", "Access denied")
	case errors.Is(err, service.ErrNotFound):
		return httpx.NotFound(c, "not_found", "Resource not found")
	default:
		return httpx.Internal(c, fallbackCode)
	}
}
