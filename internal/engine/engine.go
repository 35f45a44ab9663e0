// Package engine implements the fit matching and caching engine: cache-first
// single computations, credit-gated recomputes, batched catalog passes,
// filtered queries and staleness tracking.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"unifit/internal/cache"
	"unifit/internal/db"
	"unifit/internal/evaluator"
	"unifit/internal/models"
	"unifit/internal/scoring"
)

// RecordStore is the durable keyed storage for fit records.
type RecordStore interface {
	GetFitRecord(ctx context.Context, userEmail, universityID string) (*models.FitRecord, error)
	PutFitRecord(ctx context.Context, record *models.FitRecord) error
	QueryFitRecords(ctx context.Context, userEmail string, q db.FitQuery) ([]models.FitRecord, error)
	CountFitRecords(ctx context.Context, userEmail string, q db.FitQuery) (int, error)
	CountStaleFitRecords(ctx context.Context, userEmail string, currentVersion int64) (int, error)
	ListFitUniversityIDs(ctx context.Context, userEmail string) ([]string, error)
	DeleteFitRecords(ctx context.Context, userEmail string) (int64, error)
}

// Catalog is the read-only university catalog.
type Catalog interface {
	GetUniversity(ctx context.Context, id string) (*models.University, error)
	ListUniversities(ctx context.Context) ([]models.University, error)
}

// ProfileStore tracks profile versions and the full-pass marker.
type ProfileStore interface {
	GetProfile(ctx context.Context, userEmail string) (*models.StudentProfile, error)
	GetOrCreateProfile(ctx context.Context, userEmail string) (*models.StudentProfile, error)
	BumpProfileVersion(ctx context.Context, userEmail string) (int64, error)
	MarkFitsComputed(ctx context.Context, userEmail string, version int64, at time.Time) error
	ResetFits(ctx context.Context, userEmail string) error
}

// Ledger is the per-user credit metering store. Deduct must be atomic with
// respect to concurrent deductions and must never leave a negative balance.
type Ledger interface {
	GetOrCreateAccount(ctx context.Context, userEmail string, freeCredits int) (*models.CreditAccount, error)
	DeductCredits(ctx context.Context, userEmail string, n int, reason string) (int, error)
	AddCredits(ctx context.Context, userEmail string, n int, source string) (int, error)
	UpgradeTier(ctx context.Context, userEmail, tier string, expires *time.Time) error
}

// Charge reasons recorded in the credit audit trail.
const (
	ReasonFitComputation    = "fit_computation"
	ReasonImageRegeneration = "image_regeneration"
)

// Config holds the engine's tuning knobs.
type Config struct {
	BatchSize        int           // universities per concurrent batch
	FitCreditCost    int           // credits per fit computation
	ImageCreditCost  int           // credits per infographic regeneration
	FreeCredits      int           // starting balance for new accounts
	EvaluatorTimeout time.Duration // per-evaluation deadline
	Bands            scoring.Bands // category band overrides
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.FitCreditCost <= 0 {
		c.FitCreditCost = 1
	}
	if c.ImageCreditCost <= 0 {
		c.ImageCreditCost = 1
	}
	if c.EvaluatorTimeout <= 0 {
		c.EvaluatorTimeout = 60 * time.Second
	}
	return c
}

// Engine ties the stores, the evaluator and the scorer together.
type Engine struct {
	records   RecordStore
	catalog   Catalog
	profiles  ProfileStore
	ledger    Ledger
	evaluator evaluator.Evaluator
	scorer    *scoring.Scorer
	cache     *cache.FitCache // nil disables caching
	cfg       Config
	logger    *zap.Logger

	flights singleflight.Group
}

// New creates an engine. The cache may be nil.
func New(records RecordStore, catalog Catalog, profiles ProfileStore, ledger Ledger,
	eval evaluator.Evaluator, fitCache *cache.FitCache, cfg Config, logger *zap.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		records:   records,
		catalog:   catalog,
		profiles:  profiles,
		ledger:    ledger,
		evaluator: eval,
		scorer:    scoring.New(cfg.Bands),
		cache:     fitCache,
		cfg:       cfg,
		logger:    logger,
	}
}
