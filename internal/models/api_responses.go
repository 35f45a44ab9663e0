package models

import "time"

// ComputeFitResponse is the payload for compute-single-fit.
type ComputeFitResponse struct {
	FitAnalysis *FitRecord `json:"fit_analysis"`
	FromCache   bool       `json:"from_cache"`
}

// FailedUniversity identifies one catalog entry that failed inside a batch,
// with enough context for the UI to present a partial result.
type FailedUniversity struct {
	UniversityID string `json:"university_id"`
	Reason       string `json:"reason"`
}

// ComputeAllResponse is the payload for compute-all-fits.
type ComputeAllResponse struct {
	Computed       int                `json:"computed"`
	Failures       []FailedUniversity `json:"failures,omitempty"`
	FitsComputedAt *time.Time         `json:"fits_computed_at"`
}

// FitListResponse is the payload for get-fits.
type FitListResponse struct {
	Results   []FitRecord `json:"results"`
	Total     int         `json:"total"`
	FitsReady bool        `json:"fits_ready"`
}

// BalancedListResponse merges the three category-filtered queries the UI's
// default view wants.
type BalancedListResponse struct {
	Safety    []FitRecord `json:"safety"`
	Target    []FitRecord `json:"target"`
	Reach     []FitRecord `json:"reach"`
	FitsReady bool        `json:"fits_ready"`
}

// CreditCheckResponse is the payload for check-credits.
type CreditCheckResponse struct {
	HasCredits       bool `json:"has_credits"`
	CreditsRemaining int  `json:"credits_remaining"`
}

// CreditMutationResponse is the payload for deduct-credit / add-credits.
type CreditMutationResponse struct {
	CreditsRemaining int `json:"credits_remaining"`
}

// StalenessResponse is the payload for the staleness probe.
type StalenessResponse struct {
	Needed bool   `json:"needed"`
	Reason string `json:"reason,omitempty"`
}
