// Package scoring implements the pure fit scorer: factor scores in, match
// percentage and fit category out. No I/O, fully deterministic.
package scoring

import (
	"math"

	"unifit/internal/models"
)

// Canonical scoring factor names and their point ceilings. The evaluator is
// expected to return these factors; anything with max <= 0 (such as the
// Selectivity Context factor) is carried for display but never scored.
const (
	FactorGPAMatch    = "GPA Match"
	FactorTestScores  = "Test Scores"
	FactorCourseRigor = "Course Rigor"
	FactorMajorFit    = "Major Fit"
	FactorActivities  = "Activities"
	FactorEarlyAction = "Early Action"

	FactorSelectivityContext = "Selectivity Context"
)

// FactorMax maps scoring factor names to their fixed point ceilings.
var FactorMax = map[string]float64{
	FactorGPAMatch:    25,
	FactorTestScores:  20,
	FactorCourseRigor: 15,
	FactorMajorFit:    15,
	FactorActivities:  15,
	FactorEarlyAction: 10,
}

// Bands holds the percentage thresholds separating base categories.
// Comparisons are strict, so a percentage exactly on a boundary falls to the
// less favorable category. The defaults are tuning constants, not derived
// truths; override via config when the product team re-tunes them.
type Bands struct {
	Safety int // percentage must exceed this for SAFETY
	Target int // percentage must exceed this for TARGET
	Reach  int // percentage must exceed this for REACH; at or below is SUPER_REACH
}

// DefaultBands are the shipped band boundaries.
var DefaultBands = Bands{Safety: 70, Target: 40, Reach: 20}

// Selectivity cap thresholds: a university's baseline acceptance rate caps
// the best label a student can receive there. Caps never touch the numeric
// percentage ("fair mode": the score reflects the profile alone).
const (
	ultraSelectiveRate  = 0.10 // below this, best possible label is REACH
	highlySelectiveRate = 0.25 // below this, best possible label is TARGET
)

// Scorer maps factor lists to match percentages and fit categories.
type Scorer struct {
	bands Bands
}

// New returns a Scorer using the given bands. Zero-valued bands fall back to
// the defaults.
func New(bands Bands) *Scorer {
	if bands == (Bands{}) {
		bands = DefaultBands
	}
	return &Scorer{bands: bands}
}

// MatchPercentage computes round(100 * sum(score)/sum(max)) over scoring
// factors only, clamped to [0,100]. Negative factor scores are allowed and
// pull the percentage down.
func (s *Scorer) MatchPercentage(factors []models.FitFactor) int {
	var sum, max float64
	for _, f := range factors {
		if !f.IsScoring() {
			continue
		}
		sum += f.Score
		max += f.Max
	}
	if max == 0 {
		return 0
	}
	pct := int(math.Round(100 * sum / max))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// BaseCategory maps a percentage to its band category, before any
// selectivity cap is applied.
func (s *Scorer) BaseCategory(percentage int) string {
	switch {
	case percentage > s.bands.Safety:
		return models.CategorySafety
	case percentage > s.bands.Target:
		return models.CategoryTarget
	case percentage > s.bands.Reach:
		return models.CategoryReach
	default:
		return models.CategorySuperReach
	}
}

// CategoryCap returns the most favorable label allowed at a university with
// the given baseline acceptance rate. A single-digit acceptance rate can
// never yield SAFETY regardless of the student's numbers.
func CategoryCap(acceptanceRate float64) string {
	switch {
	case acceptanceRate > 0 && acceptanceRate < ultraSelectiveRate:
		return models.CategoryReach
	case acceptanceRate > 0 && acceptanceRate < highlySelectiveRate:
		return models.CategoryTarget
	default:
		return models.CategorySafety
	}
}

// Category derives the final fit category: the band category capped by the
// university's selectivity. The cap only demotes the label, never promotes.
func (s *Scorer) Category(percentage int, university *models.University) string {
	base := s.BaseCategory(percentage)
	cap := CategoryCap(university.AcceptanceRate)
	if models.CategoryRank(base) > models.CategoryRank(cap) {
		return cap
	}
	return base
}

// Score runs the full pipeline on one factor list.
func (s *Scorer) Score(factors []models.FitFactor, university *models.University) (percentage int, category string) {
	percentage = s.MatchPercentage(factors)
	return percentage, s.Category(percentage, university)
}
