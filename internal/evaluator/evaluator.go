// Package evaluator defines the external factor evaluator contract: given a
// student profile and a university, produce factor scores and narrative
// artifacts. The engine treats implementations as slow and unreliable.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"

	"unifit/internal/models"
)

// Taxonomy sentinels. Callers match with errors.Is; none ever follows a
// credit charge. ErrProfileNotFound is a caller problem, not a transient
// fault: the user has no profile document yet and needs onboarding, so
// retrying is pointless.
var (
	ErrUnavailable     = errors.New("factor evaluator unavailable")
	ErrTimeout         = errors.New("factor evaluator timed out")
	ErrProfileNotFound = errors.New("profile document not found")
)

// Result is everything one evaluation produces. The engine adds the score,
// category, profile version and timestamp before persisting.
type Result struct {
	Factors             []models.FitFactor `json:"factors"`
	GapAnalysis         string             `json:"gap_analysis"`
	Recommendations     []string           `json:"recommendations"`
	EssayAngles         []string           `json:"essay_angles"`
	ScholarshipMatches  []string           `json:"scholarship_matches"`
	ApplicationTimeline string             `json:"application_timeline"`
}

// Evaluator is the expensive external call behind every fresh computation.
type Evaluator interface {
	Evaluate(ctx context.Context, profile *models.StudentProfile, university *models.University) (*Result, error)
}

// ProfileSource fetches the raw profile document from the external profile
// store. Document parsing is out of scope here; the engine only forwards it.
type ProfileSource interface {
	ProfileDocument(ctx context.Context, userEmail string) (json.RawMessage, error)
}
