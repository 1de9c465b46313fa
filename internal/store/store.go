package store

import (
	"context"

	"github.com/painel-rs/enrich-cli/internal/model"
)

// Store defines the persistence interface for the enrichment pipeline. The
// records table holds the current working snapshot of the registry, which
// doubles as the checkpoint an interrupted run resumes from. Email results
// and the geocode cache are kept per run for auditing.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	LatestRun(ctx context.Context) (*model.Run, error)

	// Registry snapshot
	ReplaceRecords(ctx context.Context, records []model.InstitutionRecord) error
	LoadRecords(ctx context.Context) ([]model.InstitutionRecord, error)

	// Email discovery
	SaveEmailResults(ctx context.Context, runID string, results []model.EmailDiscoveryResult) error
	LoadEmailResults(ctx context.Context, runID string) ([]model.EmailDiscoveryResult, error)

	// Geocode cache
	SaveGeoCache(ctx context.Context, runID string, entries []model.GeoCacheEntry) error
	LoadGeoCache(ctx context.Context, runID string) ([]model.GeoCacheEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
