package models

// University is a static catalog entry. Read-only to the engine; the catalog
// is maintained externally and synced by the catalog refresher job.
type University struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Rank           int     `json:"rank"`
	State          string  `json:"state"`
	AcceptanceRate float64 `json:"acceptance_rate"` // fraction in (0,1]
}
