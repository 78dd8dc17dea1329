// internal/export/csv.go
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

// csvHeader is the fixed column set of the review CSV export.
var csvHeader = []string{
	"business",
	"reviewer",
	"rating",
	"text",
	"timestamp",
	"time_raw",
	"tags",
	"images",
	"likes",
	"owner_responded",
}

// WriteCSV writes the finalized records as CSV. Columns are fixed so the
// export shape does not shift with which fields individual records carry;
// absent values render as empty cells. The images column carries the local
// file names of the record's collected images, keyed by dedup key, so each
// row maps back to the entries of the images archive.
func WriteCSV(w io.Writer, business string, records []models.FinalizedRecord, images map[string][]models.ImageOutcome) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, rec := range records {
		rating := ""
		if rec.Rating > 0 {
			rating = strconv.Itoa(rec.Rating)
		}
		timestamp := ""
		if !rec.Time.IsZero() {
			timestamp = rec.Time.Format(time.RFC3339)
		}
		likes := ""
		if rec.LikeCount > 0 {
			likes = strconv.Itoa(rec.LikeCount)
		}
		owner := ""
		if rec.OwnerResponded {
			owner = "yes"
		}

		row := []string{
			business,
			rec.Reviewer,
			rating,
			rec.Text,
			timestamp,
			rec.TimeRaw,
			rec.Tags.Joined(),
			strings.Join(imageFiles(images[rec.DedupKey]), " "),
			likes,
			owner,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// imageFiles lists the saved file names among the record's image outcomes,
// preserving reference order. Skipped references contribute nothing.
func imageFiles(outcomes []models.ImageOutcome) []string {
	var files []string
	for _, out := range outcomes {
		if out.Skipped || out.File == "" {
			continue
		}
		files = append(files, out.File)
	}
	return files
}
