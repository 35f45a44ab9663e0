package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"unifit/internal/db"
	"unifit/internal/models"
)

// Balanced list sub-limits: the UI's default mixed view.
const (
	balancedSafetyLimit = 3
	balancedTargetLimit = 4
	balancedReachLimit  = 3
)

// Query serves filtered, sorted reads over the fit matrix. Stale records are
// still served; staleness is a recompute signal, not a read error.
func (e *Engine) Query(ctx context.Context, userEmail string, q db.FitQuery) (*models.FitListResponse, error) {
	profile, err := e.profiles.GetProfile(ctx, userEmail)
	if err != nil && !errors.Is(err, db.ErrProfileNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	results, err := e.records.QueryFitRecords(ctx, userEmail, q)
	if err != nil {
		return nil, fmt.Errorf("query fit records: %w", err)
	}

	countQuery := q
	countQuery.Limit = 0
	total, err := e.records.CountFitRecords(ctx, userEmail, countQuery)
	if err != nil {
		return nil, fmt.Errorf("count fit records: %w", err)
	}

	fitsReady := profile != nil && profile.FitsReady()
	if results == nil {
		results = []models.FitRecord{}
	}
	return &models.FitListResponse{Results: results, Total: total, FitsReady: fitsReady}, nil
}

// GetBalancedList issues the three category queries in parallel and merges
// them, so the default view is one round trip for the caller.
func (e *Engine) GetBalancedList(ctx context.Context, userEmail string) (*models.BalancedListResponse, error) {
	profile, err := e.profiles.GetProfile(ctx, userEmail)
	if err != nil && !errors.Is(err, db.ErrProfileNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	resp := &models.BalancedListResponse{
		Safety: []models.FitRecord{},
		Target: []models.FitRecord{},
		Reach:  []models.FitRecord{},
	}

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(category string, limit int, dst *[]models.FitRecord) {
		g.Go(func() error {
			records, err := e.records.QueryFitRecords(gctx, userEmail, db.FitQuery{
				Category: category,
				Limit:    limit,
				SortBy:   "match_score",
			})
			if err != nil {
				return fmt.Errorf("query %s records: %w", category, err)
			}
			if records != nil {
				*dst = records
			}
			return nil
		})
	}

	fetch(models.CategorySafety, balancedSafetyLimit, &resp.Safety)
	fetch(models.CategoryTarget, balancedTargetLimit, &resp.Target)
	fetch(models.CategoryReach, balancedReachLimit, &resp.Reach)

	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp.FitsReady = profile != nil && profile.FitsReady()
	return resp, nil
}

// ResetProfile destroys a user's fit matrix: the only path that deletes fit
// records. Cache entries go first so a racing read cannot resurrect one.
func (e *Engine) ResetProfile(ctx context.Context, userEmail string) (int64, error) {
	ids, err := e.records.ListFitUniversityIDs(ctx, userEmail)
	if err != nil {
		return 0, fmt.Errorf("list fit records: %w", err)
	}
	for _, id := range ids {
		e.cache.Delete(userEmail, id)
	}

	deleted, err := e.records.DeleteFitRecords(ctx, userEmail)
	if err != nil {
		return 0, fmt.Errorf("delete fit records: %w", err)
	}

	if err := e.profiles.ResetFits(ctx, userEmail); err != nil && !errors.Is(err, db.ErrProfileNotFound) {
		return deleted, fmt.Errorf("reset fits marker: %w", err)
	}
	return deleted, nil
}
