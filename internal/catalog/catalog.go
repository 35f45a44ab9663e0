// Package catalog loads university catalog data. The catalog itself is
// owned elsewhere; the engine only syncs a read-only copy.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	_ "embed"

	"unifit/internal/models"
)

//go:embed seed.json
var seedJSON []byte

// Load reads a catalog file: a JSON array of university records.
func Load(path string) ([]models.University, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return parse(raw)
}

// Seed returns the embedded development catalog.
func Seed() []models.University {
	universities, err := parse(seedJSON)
	if err != nil {
		// The embedded file is fixed at build time.
		panic(fmt.Sprintf("invalid embedded catalog: %v", err))
	}
	return universities
}

func parse(raw []byte) ([]models.University, error) {
	var universities []models.University
	if err := json.Unmarshal(raw, &universities); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, u := range universities {
		if u.ID == "" || u.Name == "" {
			return nil, fmt.Errorf("catalog entry %d: id and name are required", i)
		}
	}
	return universities, nil
}
