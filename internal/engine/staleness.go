package engine

import (
	"context"
	"errors"
	"fmt"

	"unifit/internal/db"
	"unifit/internal/models"
)

// Staleness reasons surfaced to callers.
const (
	ReasonNeverComputed  = "fits_never_computed"
	ReasonProfileUpdated = "profile_updated"
	ReasonStaleRecords   = "stale_records"
)

// BumpProfile registers an external profile mutation and returns the new
// version. Existing records are left in place and detected as stale lazily;
// no bulk invalidation write happens here.
func (e *Engine) BumpProfile(ctx context.Context, userEmail string) (int64, error) {
	return e.profiles.BumpProfileVersion(ctx, userEmail)
}

// NeedsRecomputation reports whether the user's fit matrix lags their
// profile, and why.
func (e *Engine) NeedsRecomputation(ctx context.Context, userEmail string) (*models.StalenessResponse, error) {
	profile, err := e.profiles.GetProfile(ctx, userEmail)
	if errors.Is(err, db.ErrProfileNotFound) {
		return &models.StalenessResponse{Needed: true, Reason: ReasonNeverComputed}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if !profile.FitsReady() {
		return &models.StalenessResponse{Needed: true, Reason: ReasonNeverComputed}, nil
	}

	// The stale count is authoritative: single-key recomputes bring records
	// up to the current version without a full pass, so a bumped version
	// with zero stale records needs nothing.
	stale, err := e.records.CountStaleFitRecords(ctx, userEmail, profile.ProfileVersion)
	if err != nil {
		return nil, fmt.Errorf("count stale records: %w", err)
	}
	if stale == 0 {
		return &models.StalenessResponse{}, nil
	}

	if profile.FitsVersion != profile.ProfileVersion {
		return &models.StalenessResponse{Needed: true, Reason: ReasonProfileUpdated}, nil
	}
	return &models.StalenessResponse{Needed: true, Reason: ReasonStaleRecords}, nil
}
