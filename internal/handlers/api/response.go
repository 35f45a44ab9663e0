package api

import (
	"github.com/gofiber/fiber/v3"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// jsonNeedsOnboarding returns the 404 payload for users with no profile
// document yet. The flag tells the frontend to route into onboarding instead
// of showing a generic failure.
func jsonNeedsOnboarding(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success":          false,
		"error":            "profile_not_found",
		"needs_onboarding": true,
	})
}

// jsonInsufficientCredits returns the 402 payload callers use to drive the
// upgrade flow: the error code plus the current balance.
func jsonInsufficientCredits(c fiber.Ctx, remaining int) error {
	return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
		"success":           false,
		"error":             "insufficient_credits",
		"credits_remaining": remaining,
	})
}
