package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware gates the API behind a shared secret. User identity itself
// comes from the trusted backend caller; this only keeps the engine off the
// open internet.
type AuthMiddleware struct {
	apiKey string
}

// NewAuthMiddleware creates a new auth middleware instance. An empty key
// disables the check (development mode).
func NewAuthMiddleware(apiKey string) *AuthMiddleware {
	return &AuthMiddleware{apiKey: apiKey}
}

// RequireKey rejects requests without a matching X-API-Key header.
func (m *AuthMiddleware) RequireKey(c fiber.Ctx) error {
	if m.apiKey == "" {
		return c.Next()
	}

	provided := c.Get("X-API-Key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(m.apiKey)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": "error",
			"error":  "invalid api key",
		})
	}
	return c.Next()
}
