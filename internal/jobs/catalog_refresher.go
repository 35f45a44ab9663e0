package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"unifit/internal/catalog"
	"unifit/internal/db"
)

// CatalogRefresher periodically syncs the university catalog from its JSON
// source into the database. Entries are upserted, never deleted, so existing
// fit records always keep a valid catalog reference.
type CatalogRefresher struct {
	db       *db.DB
	path     string
	interval time.Duration
	logger   *zap.Logger
}

// NewCatalogRefresher creates a new catalog refresher.
func NewCatalogRefresher(database *db.DB, path string, interval time.Duration, logger *zap.Logger) *CatalogRefresher {
	return &CatalogRefresher{
		db:       database,
		path:     path,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the background refresh loop.
func (r *CatalogRefresher) Start(ctx context.Context) {
	r.logger.Info("catalog refresher started",
		zap.String("path", r.path),
		zap.Duration("interval", r.interval),
	)

	// Run immediately on start
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("catalog refresher stopped")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *CatalogRefresher) refresh(ctx context.Context) {
	universities, err := catalog.Load(r.path)
	if err != nil {
		r.logger.Error("catalog refresh: load failed", zap.Error(err))
		return
	}

	updated := 0
	for _, u := range universities {
		if ctx.Err() != nil {
			return
		}
		if err := r.db.UpsertUniversity(ctx, &u); err != nil {
			r.logger.Error("catalog refresh: upsert failed",
				zap.String("university_id", u.ID),
				zap.Error(err),
			)
			continue
		}
		updated++
	}

	r.logger.Info("catalog refreshed", zap.Int("updated", updated))
}
