// internal/export/json.go
package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

// Dataset is the top-level JSON export document.
type Dataset struct {
	Business    string         `json:"business"`
	SourceURL   string         `json:"source_url"`
	GeneratedAt time.Time      `json:"generated_at"`
	Partial     bool           `json:"partial"`
	Count       int            `json:"count"`
	Reviews     []ReviewExport `json:"reviews"`
}

// ReviewExport is one finalized record in JSON form. Fragment markup is
// dropped; provenance and the dedup key ride along for downstream auditing.
type ReviewExport struct {
	Reviewer       string            `json:"reviewer,omitempty"`
	Rating         int               `json:"rating,omitempty"`
	Text           string            `json:"text,omitempty"`
	Timestamp      *time.Time        `json:"timestamp,omitempty"`
	TimeRaw        string            `json:"time_raw,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Services       []string          `json:"services,omitempty"`
	Positive       []string          `json:"positive,omitempty"`
	Negative       []string          `json:"negative,omitempty"`
	Price          []string          `json:"price,omitempty"`
	LikeCount      int               `json:"like_count,omitempty"`
	OwnerResponded bool              `json:"owner_responded,omitempty"`
	Provenance     map[string]string `json:"provenance,omitempty"`
	DedupKey       string            `json:"dedup_key"`
}

// NewDataset builds the export document from finalized records.
func NewDataset(business, sourceURL string, partial bool, records []models.FinalizedRecord) *Dataset {
	ds := &Dataset{
		Business:    business,
		SourceURL:   sourceURL,
		GeneratedAt: time.Now().UTC(),
		Partial:     partial,
		Count:       len(records),
		Reviews:     make([]ReviewExport, 0, len(records)),
	}
	for _, rec := range records {
		ds.Reviews = append(ds.Reviews, newReviewExport(rec))
	}
	return ds
}

func newReviewExport(rec models.FinalizedRecord) ReviewExport {
	out := ReviewExport{
		Reviewer:       rec.Reviewer,
		Rating:         rec.Rating,
		Text:           rec.Text,
		TimeRaw:        rec.TimeRaw,
		Images:         rec.Images,
		Services:       rec.Tags.Services,
		Positive:       rec.Tags.Positive,
		Negative:       rec.Tags.Negative,
		Price:          rec.Tags.Price,
		LikeCount:      rec.LikeCount,
		OwnerResponded: rec.OwnerResponded,
		Provenance:     rec.Provenance,
		DedupKey:       rec.DedupKey,
	}
	if !rec.Time.IsZero() {
		t := rec.Time
		out.Timestamp = &t
	}
	return out
}

// WriteJSON writes the dataset as indented JSON.
func WriteJSON(w io.Writer, ds *Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

// TraceExport wraps the run trace for the trace artifact.
type TraceExport struct {
	Business    string              `json:"business"`
	GeneratedAt time.Time           `json:"generated_at"`
	Entries     []models.TraceEntry `json:"entries"`
}

// WriteTraceJSON writes the run trace as indented JSON.
func WriteTraceJSON(w io.Writer, business string, trace models.RunTrace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(TraceExport{
		Business:    business,
		GeneratedAt: time.Now().UTC(),
		Entries:     trace,
	})
}
