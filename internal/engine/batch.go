package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"unifit/internal/models"
)

// BatchResult reports one compute-all pass. Partial success is the expected
// steady state: failures never abort sibling keys.
type BatchResult struct {
	Computed       int
	Failures       []models.FailedUniversity
	FitsComputedAt *time.Time
}

// RecomputeAll walks the given universities (nil means the whole catalog) in
// fixed-size batches, computing fits concurrently within a batch and
// sequentially across batches. With force=false only missing or stale
// entries cost anything; force=true recharges and recomputes every entry,
// which is why nothing in the engine triggers it automatically.
func (e *Engine) RecomputeAll(ctx context.Context, userEmail string, universityIDs []string, force bool) (*BatchResult, error) {
	fullCatalog := universityIDs == nil
	if fullCatalog {
		universities, err := e.catalog.ListUniversities(ctx)
		if err != nil {
			return nil, fmt.Errorf("list catalog: %w", err)
		}
		for _, u := range universities {
			universityIDs = append(universityIDs, u.ID)
		}
	}

	profile, err := e.profiles.GetOrCreateProfile(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	result := &BatchResult{}
	var mu sync.Mutex

	for start := 0; start < len(universityIDs); start += e.cfg.BatchSize {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		end := start + e.cfg.BatchSize
		if end > len(universityIDs) {
			end = len(universityIDs)
		}

		var g errgroup.Group
		for _, id := range universityIDs[start:end] {
			g.Go(func() error {
				_, _, err := e.ComputeFit(ctx, userEmail, id, force)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Failures = append(result.Failures, models.FailedUniversity{
						UniversityID: id,
						Reason:       err.Error(),
					})
					return nil
				}
				result.Computed++
				return nil
			})
		}
		g.Wait()
	}

	// A completed full pass flips fits_ready even with partial failures;
	// failed keys stay eligible on the next pass.
	if fullCatalog {
		now := time.Now().UTC()
		if err := e.profiles.MarkFitsComputed(ctx, userEmail, profile.ProfileVersion, now); err != nil {
			return nil, fmt.Errorf("mark fits computed: %w", err)
		}
		result.FitsComputedAt = &now
	}

	e.logger.Info("recompute pass finished",
		zap.String("user_email", userEmail),
		zap.Bool("force", force),
		zap.Int("computed", result.Computed),
		zap.Int("failures", len(result.Failures)),
	)

	return result, nil
}
