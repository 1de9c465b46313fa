package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/painel-rs/enrich-cli/internal/model"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry completeness and the latest run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := st.LoadRecords(ctx)
		if err != nil {
			return eris.Wrap(err, "load records")
		}
		run, err := st.LatestRun(ctx)
		if err != nil {
			return eris.Wrap(err, "load latest run")
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"registry": computeRegistryStats(records),
				"last_run": run,
			})
		}

		formatStatus(os.Stdout, records, run)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
	rootCmd.AddCommand(statusCmd)
}

// registryStats summarizes how complete the stored registry is.
type registryStats struct {
	Total      int `json:"total"`
	WithSite   int `json:"with_site"`
	WithEmail  int `json:"with_email"`
	WithCoords int `json:"with_coords"`

	ByCoordStatus map[model.CoordStatus]int `json:"by_coord_status"`
}

func computeRegistryStats(records []model.InstitutionRecord) registryStats {
	s := registryStats{
		Total:         len(records),
		ByCoordStatus: make(map[model.CoordStatus]int),
	}
	for _, r := range records {
		if r.Site != "" {
			s.WithSite++
		}
		if r.Email != "" {
			s.WithEmail++
		}
		if !r.NeedsCoords() {
			s.WithCoords++
		}
		if r.CoordStatus != "" {
			s.ByCoordStatus[r.CoordStatus]++
		}
	}
	return s
}

func formatStatus(out io.Writer, records []model.InstitutionRecord, run *model.Run) {
	s := computeRegistryStats(records)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "With site:\t%d\n", s.WithSite)
	_, _ = fmt.Fprintf(w, "With email:\t%d\n", s.WithEmail)
	_, _ = fmt.Fprintf(w, "With coordinates:\t%d\n", s.WithCoords)
	for _, status := range []model.CoordStatus{
		model.CoordStatusKnown,
		model.CoordStatusResolved,
		model.CoordStatusRegionalDefault,
		model.CoordStatusOutOfRegion,
		model.CoordStatusUnresolved,
	} {
		if n := s.ByCoordStatus[status]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", status, n)
		}
	}

	if run == nil {
		_, _ = fmt.Fprintln(w, "Last run:\t(none)")
	} else {
		_, _ = fmt.Fprintf(w, "Last run:\t%s %s (%s, %s)\n",
			truncateID(run.ID),
			run.Kind,
			run.Status,
			run.StartedAt.Format("2006-01-02 15:04"),
		)
		if run.Summary != nil {
			dur := run.Summary.FinishedAt.Sub(run.Summary.StartedAt).Round(time.Second)
			_, _ = fmt.Fprintf(w, "  Emails found:\t%d/%d\n", run.Summary.EmailsFound, run.Summary.EmailCandidates)
			_, _ = fmt.Fprintf(w, "  Unique cities:\t%d\n", run.Summary.UniqueCities)
			_, _ = fmt.Fprintf(w, "  Duration:\t%s\n", dur)
		}
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
