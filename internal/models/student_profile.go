package models

import "time"

// StudentProfile is the engine's view of a profile: identity plus a
// monotonically increasing version used for staleness detection. The profile
// document itself lives in the external profile store.
type StudentProfile struct {
	UserEmail      string     `json:"user_email"`
	ProfileVersion int64      `json:"profile_version"`
	FitsComputedAt *time.Time `json:"fits_computed_at"` // last completed full pass, nil until one finishes
	FitsVersion    int64      `json:"fits_version"`     // profile version the last full pass ran against
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FitsReady reports whether at least one full compute-all pass has completed.
func (p *StudentProfile) FitsReady() bool {
	return p.FitsComputedAt != nil
}
