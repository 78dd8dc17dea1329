// internal/export/csv_test.go
package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

func TestWriteCSV_FixedColumns(t *testing.T) {
	when := time.Date(2026, 7, 18, 12, 0, 0, 0, time.UTC)
	records := []models.FinalizedRecord{
		{
			CandidateRecord: models.CandidateRecord{
				Reviewer:       "Jane Miller",
				Rating:         5,
				Text:           "Great place",
				TimeRaw:        "2 weeks ago",
				Time:           when,
				Images:         []string{"https://media.example.com/p/1.jpg", "https://media.example.com/p/2.jpg"},
				Tags:           models.TagSet{Services: []string{"Dine in"}, Positive: []string{"Food"}},
				LikeCount:      7,
				OwnerResponded: true,
			},
			DedupKey: "abc123",
			Valid:    true,
		},
		{
			// A record recovered down to bare text has empty cells elsewhere.
			CandidateRecord: models.CandidateRecord{Text: "Just text", TimeRaw: "a year ago"},
			DedupKey:        "def456",
			Valid:           true,
		},
	}
	images := map[string][]models.ImageOutcome{
		"abc123": {
			{URL: "https://media.example.com/p/1.jpg", File: "abc123_0.jpg"},
			{URL: "https://media.example.com/p/2.jpg", File: "abc123_1.jpg"},
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, "acme_cafe", records, images); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Export is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}

	header := rows[0]
	if len(header) != 10 || header[0] != "business" || header[9] != "owner_responded" {
		t.Errorf("Unexpected header: %v", header)
	}

	full := rows[1]
	if full[0] != "acme_cafe" || full[1] != "Jane Miller" || full[2] != "5" {
		t.Errorf("Unexpected row values: %v", full)
	}
	if full[4] != "2026-07-18T12:00:00Z" {
		t.Errorf("Timestamp should render RFC3339, got %q", full[4])
	}
	if full[6] != "Dine in, Food" {
		t.Errorf("Tags should flatten comma-joined, got %q", full[6])
	}
	if full[7] != "abc123_0.jpg abc123_1.jpg" {
		t.Errorf("Images column should list the saved file names, got %q", full[7])
	}
	if strings.Contains(full[7], "https://") {
		t.Errorf("Images column must not carry source URIs, got %q", full[7])
	}
	if full[8] != "7" || full[9] != "yes" {
		t.Errorf("Likes/owner rendered wrong: %q %q", full[8], full[9])
	}

	sparse := rows[2]
	for _, col := range []int{1, 2, 4, 6, 7, 8, 9} {
		if sparse[col] != "" {
			t.Errorf("Absent field in column %d should be empty, got %q", col, sparse[col])
		}
	}
	if sparse[3] != "Just text" || sparse[5] != "a year ago" {
		t.Errorf("Present fields lost: %v", sparse)
	}
}

func TestWriteCSV_SkippedImagesExcluded(t *testing.T) {
	records := []models.FinalizedRecord{
		{
			CandidateRecord: models.CandidateRecord{Text: "Fine spot for lunch"},
			DedupKey:        "k9",
			Valid:           true,
		},
	}
	images := map[string][]models.ImageOutcome{
		"k9": {
			{URL: "https://media.example.com/a.jpg", Skipped: true, Error: "HTTP 500"},
			{URL: "https://media.example.com/b.jpg", File: "k9_1.jpg"},
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, "acme_cafe", records, images); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Export is not valid CSV: %v", err)
	}
	if rows[1][7] != "k9_1.jpg" {
		t.Errorf("Only saved files should be referenced, got %q", rows[1][7])
	}
}

func TestWriteCSV_NoRecords(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, "empty", nil, nil); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil || len(rows) != 1 {
		t.Errorf("Empty export should still carry the header, got %v (%v)", rows, err)
	}
}
