package models

import (
	"time"
)

// Fit category constants, ordered from most to least favorable.
const (
	CategorySafety     = "SAFETY"
	CategoryTarget     = "TARGET"
	CategoryReach      = "REACH"
	CategorySuperReach = "SUPER_REACH"
)

// categoryRank maps categories to a favorability rank (higher is better).
var categoryRank = map[string]int{
	CategorySuperReach: 0,
	CategoryReach:      1,
	CategoryTarget:     2,
	CategorySafety:     3,
}

// CategoryRank returns the favorability rank of a category (higher is more
// favorable). Unknown categories rank below SUPER_REACH.
func CategoryRank(category string) int {
	if r, ok := categoryRank[category]; ok {
		return r
	}
	return -1
}

// ValidCategory reports whether the string is a known fit category.
func ValidCategory(category string) bool {
	_, ok := categoryRank[category]
	return ok
}

// FitFactor is a single named sub-score. Score may be negative; Max is
// positive for scoring factors and zero for display-only context factors.
type FitFactor struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Max    float64 `json:"max"`
	Detail string  `json:"detail,omitempty"`
}

// IsScoring reports whether the factor contributes to the match percentage.
func (f FitFactor) IsScoring() bool {
	return f.Max > 0
}

// FitRecord is the cached result of one (user, university) fit computation.
// Records are overwritten whole on recompute, never patched.
type FitRecord struct {
	UserEmail           string      `json:"user_email"`
	UniversityID        string      `json:"university_id"`
	MatchPercentage     int         `json:"match_percentage"`
	FitCategory         string      `json:"fit_category"`
	Factors             []FitFactor `json:"factors"`
	GapAnalysis         string      `json:"gap_analysis"`
	Recommendations     []string    `json:"recommendations"`
	EssayAngles         []string    `json:"essay_angles"`
	ScholarshipMatches  []string    `json:"scholarship_matches"`
	ApplicationTimeline string      `json:"application_timeline"`
	ProfileVersion      int64       `json:"profile_version"`
	ComputedAt          time.Time   `json:"computed_at"`
}

// IsStale reports whether the record was computed against an older profile
// version than the one currently on file.
func (r *FitRecord) IsStale(currentVersion int64) bool {
	return r.ProfileVersion != currentVersion
}
