// internal/export/report.go
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

// ReportInput collects everything the debug report renders.
type ReportInput struct {
	Business  string
	SourceURL string
	Partial   bool
	Records   []models.FinalizedRecord
	Trace     models.RunTrace
	Images    map[string][]models.ImageOutcome
	Salvaged  map[string]string
}

// WriteReport renders a Markdown debug report: outcome tallies from the
// trace, recovered and skipped items, per-record excerpts converted from
// the fragment markup, and any page state salvaged from a partial run.
func WriteReport(w io.Writer, in ReportInput) error {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Review extraction report: %s\n\n", in.Business))
	sb.WriteString(fmt.Sprintf("- Source: %s\n", in.SourceURL))
	sb.WriteString(fmt.Sprintf("- Generated: %s\n", time.Now().UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- Records exported: %d\n", len(in.Records)))
	if in.Partial {
		sb.WriteString("- **Partial run**: the listing stopped responding before scrolling finished\n")
	}
	sb.WriteString("\n")

	writeTraceSummary(&sb, in.Trace)
	writeImageSummary(&sb, in.Images)
	writeRecordExcerpts(&sb, converter, in.Records)
	writeSalvaged(&sb, in.Salvaged)

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeTraceSummary(sb *strings.Builder, trace models.RunTrace) {
	if len(trace) == 0 {
		return
	}
	tally := make(map[string]int)
	for _, entry := range trace {
		tally[entry.Outcome]++
	}
	keys := make([]string, 0, len(tally))
	for k := range tally {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("## Trace summary\n\n")
	sb.WriteString("| outcome | count |\n|---|---|\n")
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", k, tally[k]))
	}
	sb.WriteString("\n")

	var recovered []models.TraceEntry
	for _, entry := range trace {
		if entry.Outcome == models.OutcomeRecovered {
			recovered = append(recovered, entry)
		}
	}
	if len(recovered) > 0 {
		sb.WriteString("### Recovered fields\n\n")
		for _, entry := range recovered {
			sb.WriteString(fmt.Sprintf("- fragment %d: %s via %s\n", entry.FragmentIndex, entry.Field, entry.Strategy))
		}
		sb.WriteString("\n")
	}
}

func writeImageSummary(sb *strings.Builder, images map[string][]models.ImageOutcome) {
	if len(images) == 0 {
		return
	}
	var total, skipped int
	var failures []string
	keys := make([]string, 0, len(images))
	for k := range images {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, out := range images[k] {
			total++
			if out.Skipped {
				skipped++
				failures = append(failures, fmt.Sprintf("- %s: %s (%d attempts)", k, out.URL, out.Attempts))
			}
		}
	}

	sb.WriteString("## Images\n\n")
	sb.WriteString(fmt.Sprintf("%d references, %d skipped.\n\n", total, skipped))
	if len(failures) > 0 {
		sb.WriteString("### Skipped references\n\n")
		sb.WriteString(strings.Join(failures, "\n"))
		sb.WriteString("\n\n")
	}
}

func writeRecordExcerpts(sb *strings.Builder, converter *md.Converter, records []models.FinalizedRecord) {
	if len(records) == 0 {
		return
	}
	sb.WriteString("## Records\n\n")
	for _, rec := range records {
		name := rec.Reviewer
		if name == "" {
			name = "(unknown reviewer)"
		}
		sb.WriteString(fmt.Sprintf("### %s\n\n", name))
		if rec.Rating > 0 {
			sb.WriteString(fmt.Sprintf("Rating: %d/5", rec.Rating))
			if rec.TimeRaw != "" {
				sb.WriteString(fmt.Sprintf(", %s", rec.TimeRaw))
			}
			sb.WriteString("\n\n")
		}

		excerpt := fragmentExcerpt(converter, rec.Fragment.HTML)
		if excerpt != "" {
			sb.WriteString(excerpt)
			sb.WriteString("\n\n")
		} else if rec.Text != "" {
			sb.WriteString(rec.Text)
			sb.WriteString("\n\n")
		}
	}
}

// fragmentExcerpt converts cleaned fragment markup to Markdown, truncated
// to keep the report skimmable.
func fragmentExcerpt(converter *md.Converter, fragmentHTML string) string {
	cleaned, err := CleanHTML(fragmentHTML)
	if err != nil || cleaned == "" {
		return ""
	}
	mdStr, err := converter.ConvertString(cleaned)
	if err != nil {
		return ""
	}
	mdStr = strings.TrimSpace(mdStr)
	const maxExcerpt = 2000
	if len(mdStr) > maxExcerpt {
		mdStr = mdStr[:maxExcerpt] + "…"
	}
	return mdStr
}

func writeSalvaged(sb *strings.Builder, salvaged map[string]string) {
	if len(salvaged) == 0 {
		return
	}
	keys := make([]string, 0, len(salvaged))
	for k := range salvaged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("## Salvaged page state\n\n")
	sb.WriteString("Globals recovered from inline scripts of the last page snapshot:\n\n")
	for _, k := range keys {
		v := salvaged[k]
		if len(v) > 200 {
			v = v[:200] + "…"
		}
		sb.WriteString(fmt.Sprintf("- `%s`: %s\n", k, v))
	}
	sb.WriteString("\n")
}
