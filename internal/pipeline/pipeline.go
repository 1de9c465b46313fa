// Package pipeline orchestrates the enrichment run: email discovery over
// the records that have a site but no email, then coordinate resolution
// over the unique cities. Individual lookup failures never abort a run;
// only context cancellation does.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/painel-rs/enrich-cli/internal/config"
	"github.com/painel-rs/enrich-cli/internal/model"
	"github.com/painel-rs/enrich-cli/internal/resilience"
	"github.com/painel-rs/enrich-cli/internal/store"
	"github.com/painel-rs/enrich-cli/pkg/geocode"
)

// EmailDiscoverer crawls one institution site for contact emails.
type EmailDiscoverer interface {
	DiscoverEmails(ctx context.Context, baseURL string) ([]string, error)
}

// Geocoder resolves a city within a state to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, city, state string) geocode.Result
	CacheSnapshot() map[string]geocode.Result
}

// Pipeline runs the enrichment stages over a registry snapshot.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	crawler  EmailDiscoverer
	geocoder Geocoder
	pacer    *resilience.Pacer
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store, crawler EmailDiscoverer, geocoder Geocoder) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		crawler:  crawler,
		geocoder: geocoder,
		pacer:    resilience.NewPacer(cfg.Pipeline.RecordGap()),
	}
}

// Run executes the stages selected by kind over records, mutating them in
// place, and returns the run summary. Records untouched by a stage keep
// their fields exactly as loaded.
func (p *Pipeline) Run(ctx context.Context, kind model.RunKind, records []model.InstitutionRecord) (*model.RunSummary, error) {
	log := zap.L().With(zap.String("kind", string(kind)), zap.Int("records", len(records)))
	log.Info("pipeline: starting run")

	run, err := p.store.CreateRun(ctx, kind)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	summary := &model.RunSummary{
		StartedAt:    time.Now().UTC(),
		TotalRecords: len(records),
	}

	fail := func(stageErr error) (*model.RunSummary, error) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed); statusErr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(statusErr))
		}
		return nil, stageErr
	}

	if kind == model.RunKindFull || kind == model.RunKindEmails {
		if err := p.discoverEmails(ctx, run.ID, records, summary); err != nil {
			return fail(err)
		}
	}
	if kind == model.RunKindFull || kind == model.RunKindCoords {
		if err := p.resolveCoords(ctx, run.ID, records, summary); err != nil {
			return fail(err)
		}
	}

	if err := p.store.ReplaceRecords(ctx, records); err != nil {
		return fail(eris.Wrap(err, "pipeline: save records"))
	}

	summary.FinishedAt = time.Now().UTC()
	if err := p.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}

	log.Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("emails_found", summary.EmailsFound),
		zap.Int("unique_cities", summary.UniqueCities),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

// discoverEmails crawls every record that has a site but no email yet, in
// input order, pausing between institutions and checkpointing progress so
// an interrupted run can resume from the store.
func (p *Pipeline) discoverEmails(ctx context.Context, runID string, records []model.InstitutionRecord, summary *model.RunSummary) error {
	var results []model.EmailDiscoveryResult

	for i := range records {
		rec := &records[i]
		if !rec.NeedsEmail() {
			continue
		}
		summary.EmailCandidates++

		if err := p.pacer.Wait(ctx); err != nil {
			return eris.Wrap(err, "pipeline: email discovery interrupted")
		}

		log := zap.L().With(zap.String("institution", rec.Name), zap.String("site", rec.Site))
		result := model.EmailDiscoveryResult{
			Institution: rec.Name,
			City:        rec.City,
			Site:        rec.Site,
			Status:      model.EmailStatusNotFound,
			AttemptedAt: time.Now().UTC(),
		}

		emails, err := p.crawler.DiscoverEmails(ctx, rec.Site)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "pipeline: email discovery interrupted")
			}
			summary.EmailsNotFound++
			log.Warn("pipeline: site crawl failed",
				zap.String("kind", string(resilience.Classify(err))),
				zap.Error(err),
			)
		case len(emails) > 0:
			rec.Email = emails[0]
			result.Emails = emails
			result.Status = model.EmailStatusFound
			summary.EmailsFound++
			log.Info("pipeline: emails found", zap.Strings("emails", emails))
		default:
			summary.EmailsNotFound++
			log.Info("pipeline: no emails on site")
		}

		results = append(results, result)
		if p.checkpointDue(len(results)) {
			p.checkpoint(ctx, runID, records, results)
		}
	}

	if err := p.store.SaveEmailResults(ctx, runID, results); err != nil {
		return eris.Wrap(err, "pipeline: save email results")
	}
	return nil
}

// resolveCoords assigns coordinates to every record that lacks them. The
// geocoder caches by normalized city name, so each distinct city costs at
// most one remote query and every record sharing it gets the same result.
func (p *Pipeline) resolveCoords(ctx context.Context, runID string, records []model.InstitutionRecord, summary *model.RunSummary) error {
	processed := 0
	for i := range records {
		rec := &records[i]
		if !rec.NeedsCoords() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: coordinate resolution interrupted")
		}

		result := p.geocoder.Resolve(ctx, rec.City, rec.State)
		if result.HasCoords {
			rec.SetCoords(result.Latitude, result.Longitude, model.CoordStatus(result.Status))
		} else {
			rec.ClearCoords(model.CoordStatus(result.Status))
			if result.Status == geocode.StatusOutOfRegion {
				summary.OutOfRegion++
			} else {
				summary.Unresolved++
			}
		}

		processed++
		if p.checkpointDue(processed) {
			p.checkpoint(ctx, runID, records, nil)
		}
	}

	snapshot := p.geocoder.CacheSnapshot()
	summary.UniqueCities = len(snapshot)
	entries := make([]model.GeoCacheEntry, 0, len(snapshot))
	for key, res := range snapshot {
		summary.CountCoordStatus(model.CoordStatus(res.Status))
		entry := model.GeoCacheEntry{
			CityKey: key,
			City:    res.City,
			Status:  model.CoordStatus(res.Status),
		}
		if res.HasCoords {
			lat, lng := res.Latitude, res.Longitude
			entry.Latitude = &lat
			entry.Longitude = &lng
		}
		entries = append(entries, entry)
	}
	if err := p.store.SaveGeoCache(ctx, runID, entries); err != nil {
		return eris.Wrap(err, "pipeline: save geo cache")
	}
	return nil
}

func (p *Pipeline) checkpointDue(processed int) bool {
	interval := p.cfg.Pipeline.CheckpointInterval
	return interval > 0 && processed%interval == 0
}

// checkpoint persists intermediate progress. Failures are logged, not
// fatal: losing a checkpoint only costs re-doing work after a crash.
func (p *Pipeline) checkpoint(ctx context.Context, runID string, records []model.InstitutionRecord, results []model.EmailDiscoveryResult) {
	if err := p.store.ReplaceRecords(ctx, records); err != nil {
		zap.L().Warn("pipeline: checkpoint records failed", zap.Error(err))
	}
	if results != nil {
		if err := p.store.SaveEmailResults(ctx, runID, results); err != nil {
			zap.L().Warn("pipeline: checkpoint email results failed", zap.Error(err))
		}
	}
}
