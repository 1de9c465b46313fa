package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/painel-rs/enrich-cli/internal/crawler"
	"github.com/painel-rs/enrich-cli/internal/model"
	"github.com/painel-rs/enrich-cli/internal/pipeline"
	"github.com/painel-rs/enrich-cli/internal/registry"
	"github.com/painel-rs/enrich-cli/internal/store"
	"github.com/painel-rs/enrich-cli/pkg/geocode"
)

// newEnrichmentCmd builds a command that runs the stages selected by kind.
// The three run commands (enrich, emails, coords) share flags and flow.
func newEnrichmentCmd(use, short string, kind model.RunKind) *cobra.Command {
	var (
		inputPath string
		outDir    string
		state     string
		quick     bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnrichment(cmd.Context(), kind, inputPath, outDir, state, quick)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "registry .xlsx to import before running (default: previously imported records)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for JSON snapshots (default: from config)")
	cmd.Flags().StringVar(&state, "state", "", "target state for coordinate assignment (default: from config)")
	cmd.Flags().BoolVar(&quick, "quick", false, "crawl at most one contact page per site")
	return cmd
}

func runEnrichment(ctx context.Context, kind model.RunKind, inputPath, outDir, state string, quick bool) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	var records []model.InstitutionRecord
	if inputPath != "" {
		records, err = registry.Load(inputPath)
		if err != nil {
			return eris.Wrap(err, "load registry")
		}
	} else {
		records, err = st.LoadRecords(ctx)
		if err != nil {
			return eris.Wrap(err, "load stored records")
		}
	}
	if len(records) == 0 {
		return eris.New("no records to enrich: run `enrich-cli import` first or pass --input")
	}

	maxContactPages := cfg.Crawl.MaxContactPages
	if quick {
		maxContactPages = 1
	}
	c := crawler.New(crawler.Options{
		Timeout:         cfg.Crawl.Timeout(),
		MaxContactPages: maxContactPages,
		PageGap:         cfg.Crawl.PageGap(),
		UserAgent:       cfg.Crawl.UserAgent,
	})

	region := geocode.RioGrandeDoSul
	if cfg.Pipeline.TargetState != "" {
		region.State = cfg.Pipeline.TargetState
	}
	if state != "" {
		region.State = state
	}
	g := geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithQueryGap(cfg.Geocode.QueryGap()),
		geocode.WithCountry(cfg.Geocode.CountryCode, cfg.Geocode.Country),
		geocode.WithRegion(region),
	)

	p := pipeline.New(cfg, st, c, g)
	summary, err := p.Run(ctx, kind, records)
	if err != nil {
		return eris.Wrap(err, "pipeline run")
	}

	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if err := exportSnapshots(ctx, st, outDir, records, summary); err != nil {
		return err
	}

	fmt.Print(pipeline.FormatSummary(summary))
	return nil
}

// exportSnapshots writes the enriched records, the run summary, and the
// per-run email and geocode artifacts as JSON files.
func exportSnapshots(ctx context.Context, st store.Store, outDir string, records []model.InstitutionRecord, summary *model.RunSummary) error {
	if err := store.WriteSnapshot(filepath.Join(outDir, "instituicoes_enriquecidas.json"), records); err != nil {
		return eris.Wrap(err, "export records")
	}
	if err := store.WriteSnapshot(filepath.Join(outDir, "resumo.json"), summary); err != nil {
		return eris.Wrap(err, "export summary")
	}

	run, err := st.LatestRun(ctx)
	if err != nil || run == nil {
		return eris.Wrap(err, "load latest run")
	}

	if results, loadErr := st.LoadEmailResults(ctx, run.ID); loadErr == nil && len(results) > 0 {
		if err := store.WriteSnapshot(filepath.Join(outDir, "emails_descobertos.json"), results); err != nil {
			return eris.Wrap(err, "export email results")
		}
	}
	if entries, loadErr := st.LoadGeoCache(ctx, run.ID); loadErr == nil && len(entries) > 0 {
		if err := store.WriteSnapshot(filepath.Join(outDir, "cache_coordenadas.json"), entries); err != nil {
			return eris.Wrap(err, "export geo cache")
		}
	}

	zap.L().Info("snapshots exported", zap.String("dir", outDir))
	return nil
}

var enrichCmd = newEnrichmentCmd("enrich", "Run email discovery and coordinate resolution", model.RunKindFull)

func init() {
	rootCmd.AddCommand(enrichCmd)
}
