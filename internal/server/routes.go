package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unifit/internal/db"
	"unifit/internal/engine"
	"unifit/internal/handlers/api"
	"unifit/internal/middleware"
)

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(database *db.DB, eng *engine.Engine) {
	authMiddleware := middleware.NewAuthMiddleware(s.Cfg.APIKey)

	fitHandler := api.NewFitHandler(eng)
	creditHandler := api.NewCreditHandler(eng)
	profileHandler := api.NewProfileHandler(eng)
	imageHandler := api.NewImageHandler(eng)
	healthHandler := api.NewHealthHandler(database)

	// Operational endpoints, outside the API key gate
	s.App.Get("/healthz", healthHandler.Check)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiGroup := s.App.Group("/api", authMiddleware.RequireKey)

	// Fit matrix
	apiGroup.Post("/fits/compute", fitHandler.ComputeSingle)
	apiGroup.Post("/fits/compute-all", fitHandler.ComputeAll)
	apiGroup.Get("/fits", fitHandler.List)
	apiGroup.Get("/fits/balanced", fitHandler.Balanced)
	apiGroup.Delete("/fits", fitHandler.Reset)

	// Credit ledger
	apiGroup.Post("/credits/check", creditHandler.Check)
	apiGroup.Post("/credits/deduct", creditHandler.Deduct)
	apiGroup.Post("/credits/add", creditHandler.Add)
	apiGroup.Post("/credits/upgrade", creditHandler.Upgrade)

	// Profile versioning
	apiGroup.Post("/profile/version", profileHandler.BumpVersion)
	apiGroup.Get("/profile/staleness", profileHandler.Staleness)

	// Sibling metered operation
	apiGroup.Post("/images/regenerate", imageHandler.Regenerate)
}
