// Package cache provides an optional Redis read-through cache for fit
// record point reads, so repeated page views never touch Postgres.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/storage/redis/v3"

	"unifit/internal/models"
)

// FitCache stores serialized fit records keyed by (user, university).
// A nil *FitCache is valid and disables caching.
type FitCache struct {
	storage *redis.Storage
	ttl     time.Duration
}

// New connects to Redis using the given URL. Returns nil when url is empty
// so callers can pass the result straight through.
func New(url string, ttl time.Duration) *FitCache {
	if url == "" {
		return nil
	}
	storage := redis.New(redis.Config{URL: url})
	return &FitCache{storage: storage, ttl: ttl}
}

func recordKey(userEmail, universityID string) string {
	return fmt.Sprintf("fit:%s:%s", userEmail, universityID)
}

// Get returns the cached record, or nil on a miss. Decode failures are
// treated as misses so a schema change never wedges reads.
func (c *FitCache) Get(userEmail, universityID string) *models.FitRecord {
	if c == nil {
		return nil
	}
	raw, err := c.storage.Get(recordKey(userEmail, universityID))
	if err != nil || len(raw) == 0 {
		return nil
	}
	var record models.FitRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil
	}
	return &record
}

// Put writes a record through to the cache. Errors are ignored; the store
// remains the source of truth.
func (c *FitCache) Put(record *models.FitRecord) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	_ = c.storage.Set(recordKey(record.UserEmail, record.UniversityID), raw, c.ttl)
}

// Delete removes one cached record.
func (c *FitCache) Delete(userEmail, universityID string) {
	if c == nil {
		return
	}
	_ = c.storage.Delete(recordKey(userEmail, universityID))
}

// Close releases the Redis connection.
func (c *FitCache) Close() error {
	if c == nil {
		return nil
	}
	return c.storage.Close()
}
