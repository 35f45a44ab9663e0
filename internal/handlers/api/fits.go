package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"unifit/internal/db"
	"unifit/internal/engine"
	"unifit/internal/evaluator"
	"unifit/internal/models"
	"unifit/internal/validation"
)

const (
	defaultQueryLimit = 20
	maxQueryLimit     = 100
)

// FitHandler serves the fit computation and query operations.
type FitHandler struct {
	engine *engine.Engine
}

// NewFitHandler creates a new fit handler.
func NewFitHandler(eng *engine.Engine) *FitHandler {
	return &FitHandler{engine: eng}
}

// ComputeSingle handles compute-single-fit: cache-first, credit-gated.
func (h *FitHandler) ComputeSingle(c fiber.Ctx) error {
	var body struct {
		UserEmail      string `json:"user_email"`
		UniversityID   string `json:"university_id"`
		ForceRecompute bool   `json:"force_recompute"`
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

	record, fromCache, err := h.engine.ComputeFit(c.Context(), email, body.UniversityID, body.ForceRecompute)
	if err != nil {
		return h.computeError(c, email, err)
	}

	return jsonSuccess(c, models.ComputeFitResponse{
		FitAnalysis: record,
		FromCache:   fromCache,
	})
}

// ComputeAll handles compute-all-fits over the whole catalog.
func (h *FitHandler) ComputeAll(c fiber.Ctx) error {
	var body struct {
		UserEmail string `json:"user_email"`
		Force     bool   `json:"force"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, ok := requireEmail(c, body.UserEmail)
	if !ok {
		return nil
	}

	result, err := h.engine.RecomputeAll(c.Context(), email, nil, body.Force)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to recompute fits")
	}

	return jsonSuccess(c, models.ComputeAllResponse{
		Computed:       result.Computed,
		Failures:       result.Failures,
		FitsComputedAt: result.FitsComputedAt,
	})
}

// List handles get-fits with category/state/exclusion filters.
func (h *FitHandler) List(c fiber.Ctx) error {
	email, ok := requireEmail(c, c.Query("user_email"))
	if !ok {
		return nil
	}

	category := c.Query("category")
	if !validation.ValidateCategory(category) {
		return jsonError(c, fiber.StatusBadRequest, "invalid category")
	}
	sortBy := c.Query("sort_by")
	if !validation.ValidateSortBy(sortBy) {
		return jsonError(c, fiber.StatusBadRequest, "sort_by must be rank or match_score")
	}

	var excludeIDs []string
	if raw := c.Query("exclude"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				excludeIDs = append(excludeIDs, id)
			}
		}
	}

	query := db.FitQuery{
		Category:   category,
		State:      c.Query("state"),
		ExcludeIDs: excludeIDs,
		Limit:      validation.ClampLimit(fiber.Query[int](c, "limit"), defaultQueryLimit, maxQueryLimit),
		SortBy:     sortBy,
	}

	resp, err := h.engine.Query(c.Context(), email, query)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to query fits")
	}
	return jsonSuccess(c, resp)
}

// Balanced handles the composite SAFETY/TARGET/REACH list.
func (h *FitHandler) Balanced(c fiber.Ctx) error {
	email, ok := requireEmail(c, c.Query("user_email"))
	if !ok {
		return nil
	}

	resp, err := h.engine.GetBalancedList(c.Context(), email)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to build balanced list")
	}
	return jsonSuccess(c, resp)
}

// Reset destroys a user's fit matrix (explicit profile reset).
func (h *FitHandler) Reset(c fiber.Ctx) error {
	email, ok := requireEmail(c, c.Query("user_email"))
	if !ok {
		return nil
	}

	deleted, err := h.engine.ResetProfile(c.Context(), email)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to reset fits")
	}
	return jsonSuccess(c, fiber.Map{"deleted": deleted})
}

// computeError maps engine failures onto the API's error taxonomy.
func (h *FitHandler) computeError(c fiber.Ctx, email string, err error) error {
	switch {
	case errors.Is(err, db.ErrInsufficientCredits):
		remaining := 0
		if check, cerr := h.engine.CheckCredits(context.WithoutCancel(c.Context()), email, 0); cerr == nil {
			remaining = check.CreditsRemaining
		}
		return jsonInsufficientCredits(c, remaining)
	case errors.Is(err, evaluator.ErrProfileNotFound), errors.Is(err, db.ErrProfileNotFound):
		return jsonNeedsOnboarding(c)
	case errors.Is(err, db.ErrUniversityNotFound):
		return jsonError(c, fiber.StatusNotFound, "university not found")
	case errors.Is(err, evaluator.ErrTimeout):
		return jsonError(c, fiber.StatusGatewayTimeout, "evaluator timed out; cached results remain available")
	case errors.Is(err, evaluator.ErrUnavailable):
		return jsonError(c, fiber.StatusBadGateway, "evaluator unavailable; cached results remain available")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return jsonError(c, fiber.StatusRequestTimeout, "request cancelled")
	default:
		return jsonError(c, fiber.StatusInternalServerError, "failed to compute fit")
	}
}

// requireEmail validates and normalizes the user email; on failure it writes
// the error response and returns ok=false.
func requireEmail(c fiber.Ctx, email string) (string, bool) {
	email = validation.NormalizeEmail(email)
	if !validation.ValidateEmail(email) {
		_ = jsonError(c, fiber.StatusBadRequest, "a valid user_email is required")
		return "", false
	}
	return email, true
}
