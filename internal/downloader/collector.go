// internal/downloader/collector.go
package downloader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

// Collector resolves image references for one record into files on disk.
// A failed reference yields a skipped outcome, never an aborted record;
// outcomes preserve the order the references appeared in.
type Collector struct {
	downloader *Downloader
}

// NewCollector creates a Collector backed by the given Downloader.
func NewCollector(d *Downloader) *Collector {
	return &Collector{downloader: d}
}

// Collect fetches each reference and writes it under destDir as
// <recordKey>_<n><ext>. One outcome is returned per reference, in order.
func (c *Collector) Collect(ctx context.Context, recordKey string, refs []string, destDir string) []models.ImageOutcome {
	if len(refs) == 0 {
		return nil
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		outcomes := make([]models.ImageOutcome, len(refs))
		for i, ref := range refs {
			outcomes[i] = models.ImageOutcome{
				URL:     ref,
				Skipped: true,
				Error:   fmt.Sprintf("failed to create image directory: %v", err),
			}
		}
		return outcomes
	}

	outcomes := make([]models.ImageOutcome, 0, len(refs))
	for i, ref := range refs {
		outcomes = append(outcomes, c.collectOne(ctx, recordKey, ref, i, destDir))
	}
	return outcomes
}

// collectOne fetches a single reference. Skips, never fails the record.
func (c *Collector) collectOne(ctx context.Context, recordKey, ref string, index int, destDir string) models.ImageOutcome {
	outcome := models.ImageOutcome{URL: ref}

	body, attempts, err := c.downloader.FetchBytes(ctx, ref)
	outcome.Attempts = attempts
	if err != nil {
		outcome.Skipped = true
		outcome.Error = err.Error()
		log.Warn().
			Str("record", recordKey).
			Str("url", ref).
			Int("attempts", attempts).
			Err(err).
			Msg("Image skipped after retries")
		return outcome
	}

	filename := fmt.Sprintf("%s_%d%s", recordKey, index, extensionFor(ref))
	filePath := filepath.Join(destDir, filename)
	if err := os.WriteFile(filePath, body, 0644); err != nil {
		outcome.Skipped = true
		outcome.Error = fmt.Sprintf("failed to write file: %v", err)
		return outcome
	}

	outcome.File = filename
	log.Debug().
		Str("record", recordKey).
		Str("file", filename).
		Int("bytes", len(body)).
		Msg("Image saved")
	return outcome
}

// extensionFor derives a file extension from the reference URL path,
// defaulting to .jpg when the path carries none.
func extensionFor(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	return ".jpg"
}
