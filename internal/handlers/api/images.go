package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"

	"unifit/internal/db"
	"unifit/internal/engine"
	"unifit/internal/models"
)

// ImageHandler meters the infographic regeneration operation. Rendering
// itself happens in an external service; the engine owns the charge.
type ImageHandler struct {
	engine *engine.Engine
}

// NewImageHandler creates a new image handler.
func NewImageHandler(eng *engine.Engine) *ImageHandler {
	return &ImageHandler{engine: eng}
}

// Regenerate charges for one infographic regeneration.
func (h *ImageHandler) Regenerate(c fiber.Ctx) error {
	var body struct {
		UserEmail    string `json:"user_email"`
		UniversityID string `json:"university_id"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, ok := requireEmail(c, body.UserEmail)
	if !ok {
		return nil
	}
	if body.UniversityID == "" {
		return jsonError(c, fiber.StatusBadRequest, "university_id is required")
	}

	remaining, err := h.engine.ChargeImageRegeneration(c.Context(), email)
	if err != nil {
		if errors.Is(err, db.ErrInsufficientCredits) {
			check, cerr := h.engine.CheckCredits(c.Context(), email, 0)
			if cerr != nil {
				return jsonInsufficientCredits(c, 0)
			}
			return jsonInsufficientCredits(c, check.CreditsRemaining)
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to charge for regeneration")
	}

	return jsonSuccess(c, models.CreditMutationResponse{CreditsRemaining: remaining})
}
