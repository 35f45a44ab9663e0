package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"

	"unifit/internal/engine"
)

// ProfileHandler serves profile version and staleness operations.
type ProfileHandler struct {
	engine *engine.Engine
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(eng *engine.Engine) *ProfileHandler {
	return &ProfileHandler{engine: eng}
}

// BumpVersion registers an upstream profile mutation. Records are not
// touched; they become stale by version comparison.
func (h *ProfileHandler) BumpVersion(c fiber.Ctx) error {
	var body struct {
		UserEmail string `json:"user_email"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, ok := requireEmail(c, body.UserEmail)
	if !ok {
		return nil
	}

	version, err := h.engine.BumpProfile(c.Context(), email)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to bump profile version")
	}

	return jsonSuccess(c, fiber.Map{"profile_version": version})
}

// Staleness reports whether the user's matrix needs recomputation, and why.
func (h *ProfileHandler) Staleness(c fiber.Ctx) error {
	email, ok := requireEmail(c, c.Query("user_email"))
	if !ok {
		return nil
	}

	resp, err := h.engine.NeedsRecomputation(c.Context(), email)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to check staleness")
	}
	return jsonSuccess(c, resp)
}
