package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"unifit/internal/db"
	"unifit/internal/engine"
	"unifit/internal/models"
)

// CreditHandler serves the credit ledger operations.
type CreditHandler struct {
	engine *engine.Engine
}

// NewCreditHandler creates a new credit handler.
func NewCreditHandler(eng *engine.Engine) *CreditHandler {
	return &CreditHandler{engine: eng}
}

// Check handles check-credits.
func (h *CreditHandler) Check(c fiber.Ctx) error {
	var body struct {
		UserEmail     string `json:"user_email"`
		CreditsNeeded int    `json:"credits_needed"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, ok := requireEmail(c, body.UserEmail)
	if !ok {
		return nil
	}
	if body.CreditsNeeded < 0 {
		return jsonError(c, fiber.StatusBadRequest, "credits_needed must be non-negative")
	}

	resp, err := h.engine.CheckCredits(c.Context(), email, body.CreditsNeeded)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to check credits")
	}
	return jsonSuccess(c, resp)
}

// Deduct handles deduct-credit.
func (h *CreditHandler) Deduct(c fiber.Ctx) error {
	var body struct {
		UserEmail   string `json:"user_email"`
		CreditCount int    `json:"credit_count"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, ok := requireEmail(c, body.UserEmail)
	if !ok {
		return nil
	}
	if body.CreditCount <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "credit_count must be positive")
	}
	if body.Reason == "" {
		return jsonError(c, fiber.StatusBadRequest, "reason is required")
	}

	remaining, err := h.engine.DeductCredits(c.Context(), email, body.CreditCount, body.Reason)
	if err != nil {
		if errors.Is(err, db.ErrInsufficientCredits) {
			check, cerr := h.engine.CheckCredits(c.Context(), email, 0)
			if cerr != nil {
				return jsonInsufficientCredits(c, 0)
			}
			return jsonInsufficientCredits(c, check.CreditsRemaining)
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to deduct credits")
	}

	return jsonSuccess(c, models.CreditMutationResponse{CreditsRemaining: remaining})
}

// Add handles add-credits.
func (h *CreditHandler) Add(c fiber.Ctx) error {
	var body struct {
		UserEmail   string `json:"user_email"`
		CreditCount int    `json:"credit_count"`
		Source      string `json:"source"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, ok := requireEmail(c, body.UserEmail)
	if !ok {
		return nil
	}
	if body.CreditCount <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "credit_count must be positive")
	}
	if body.Source == "" {
		return jsonError(c, fiber.StatusBadRequest, "source is required")
	}

	remaining, err := h.engine.AddCredits(c.Context(), email, body.CreditCount, body.Source)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to add credits")
	}

	return jsonSuccess(c, models.CreditMutationResponse{CreditsRemaining: remaining})
}

// Upgrade moves a user onto a paid tier.
func (h *CreditHandler) Upgrade(c fiber.Ctx) error {
	var body struct {
		UserEmail string     `json:"user_email"`
		Tier      string     `json:"tier"`
		Expires   *time.Time `json:"expires"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, ok := requireEmail(c, body.UserEmail)
	if !ok {
		return nil
	}
	if body.Tier != models.TierFree && body.Tier != models.TierPro {
		return jsonError(c, fiber.StatusBadRequest, "invalid tier")
	}

	if err := h.engine.UpgradeTier(c.Context(), email, body.Tier, body.Expires); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to upgrade tier")
	}

	return jsonSuccess(c, fiber.Map{"tier": body.Tier})
}
