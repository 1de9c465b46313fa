package model

import "time"

// RunStatus is the lifecycle state of an enrichment run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind names which enrichment stages a run executed.
type RunKind string

const (
	RunKindFull   RunKind = "full"
	RunKindEmails RunKind = "emails"
	RunKindCoords RunKind = "coords"
)

// Run is one recorded execution of the enrichment pipeline.
type Run struct {
	ID        string      `json:"id"`
	Kind      RunKind     `json:"kind"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// GeoCacheEntry is one persisted city resolution from a run's geocode cache.
// Latitude and Longitude are nil for statuses that carry no coordinates.
type GeoCacheEntry struct {
	CityKey   string      `json:"city_key"`
	City      string      `json:"city"`
	Latitude  *float64    `json:"latitude"`
	Longitude *float64    `json:"longitude"`
	Status    CoordStatus `json:"status"`
}
