// internal/export/report_test.go
package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

func TestWriteReport_Sections(t *testing.T) {
	records := []models.FinalizedRecord{
		{
			CandidateRecord: models.CandidateRecord{
				Fragment: models.RawFragment{HTML: `<div><span class="wiI7pd">Lovely spot, great espresso.</span></div>`},
				Reviewer: "Jane Miller",
				Rating:   5,
				Text:     "Lovely spot, great espresso.",
				TimeRaw:  "2 weeks ago",
			},
			Valid: true,
		},
	}
	trace := models.RunTrace{
		{FragmentIndex: 0, Outcome: models.OutcomeDirect},
		{FragmentIndex: 1, Field: models.FieldText, Outcome: models.OutcomeRecovered, Strategy: models.ProvenanceSecondary},
	}
	images := map[string][]models.ImageOutcome{
		"k1": {
			{URL: "https://m.test/a.jpg", File: "k1_0.jpg"},
			{URL: "https://m.test/b.jpg", Skipped: true, Attempts: 3, Error: "HTTP 500"},
		},
	}

	var buf bytes.Buffer
	err := WriteReport(&buf, ReportInput{
		Business: "acme_cafe",
		Partial:  true,
		Records:  records,
		Trace:    trace,
		Images:   images,
		Salvaged: map[string]string{"loadedPages": "4"},
	})
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Review extraction report: acme_cafe",
		"Partial run",
		"## Trace summary",
		"| recovered | 1 |",
		"fragment 1: text via secondary-location",
		"## Images",
		"2 references, 1 skipped",
		"### Jane Miller",
		"Rating: 5/5, 2 weeks ago",
		"Lovely spot, great espresso.",
		"## Salvaged page state",
		"`loadedPages`: 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport_EmptyRunIsStillAReport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, ReportInput{Business: "empty"}); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Records exported: 0") {
		t.Errorf("Empty report wrong:\n%s", out)
	}
	if strings.Contains(out, "## Trace summary") || strings.Contains(out, "## Images") {
		t.Error("Empty sections should be omitted")
	}
}
