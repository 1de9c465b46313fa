package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/painel-rs/enrich-cli/internal/model"
)

// FormatSummary generates a human-readable run report.
func FormatSummary(summary *model.RunSummary) string {
	var b strings.Builder

	b.WriteString("# Enrichment Report\n")
	fmt.Fprintf(&b, "Started: %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Finished: %s (%s)\n\n",
		summary.FinishedAt.Format("2006-01-02 15:04:05 MST"),
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second))

	b.WriteString("## Records\n")
	fmt.Fprintf(&b, "- Total: %d\n\n", summary.TotalRecords)

	b.WriteString("## Email Discovery\n")
	if summary.EmailCandidates == 0 {
		b.WriteString("No sites to crawl.\n\n")
	} else {
		fmt.Fprintf(&b, "- Candidates (site, no email): %d\n", summary.EmailCandidates)
		fmt.Fprintf(&b, "- Found: %d\n", summary.EmailsFound)
		fmt.Fprintf(&b, "- Not found: %d\n", summary.EmailsNotFound)
		fmt.Fprintf(&b, "- Success rate: %.1f%%\n\n", summary.EmailSuccessRate())
	}

	b.WriteString("## Coordinates\n")
	if summary.UniqueCities == 0 && summary.OutOfRegion == 0 && summary.Unresolved == 0 {
		b.WriteString("No cities to resolve.\n")
	} else {
		fmt.Fprintf(&b, "- Unique cities: %d\n", summary.UniqueCities)
		fmt.Fprintf(&b, "- Known table: %d\n", summary.CoordsKnown)
		fmt.Fprintf(&b, "- Remote lookup: %d\n", summary.CoordsResolved)
		fmt.Fprintf(&b, "- Regional centroid: %d\n", summary.CoordsDefaulted)
		fmt.Fprintf(&b, "- Out of state: %d records\n", summary.OutOfRegion)
		fmt.Fprintf(&b, "- Unresolved: %d records\n", summary.Unresolved)
		fmt.Fprintf(&b, "- City success rate: %.1f%%\n", summary.CoordSuccessRate())
	}

	return b.String()
}
