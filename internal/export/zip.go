// internal/export/zip.go
package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

// BuildZip bundles the given artifacts into a single zip archive.
func BuildZip(artifacts []Artifact) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, art := range artifacts {
		w, err := zw.Create(art.Filename)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to add %s: %w", art.Filename, err)
		}
		if _, err := w.Write(art.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to write %s: %w", art.Filename, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildImagesZip bundles the saved image files for all records into one
// archive. Entries are ordered by record key, then by the order the
// references appeared in. Skipped outcomes contribute nothing.
func BuildImagesZip(imageDir string, images map[string][]models.ImageOutcome) ([]byte, error) {
	keys := make([]string, 0, len(images))
	for k := range images {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, key := range keys {
		for _, out := range images[key] {
			if out.Skipped || out.File == "" {
				continue
			}
			data, err := os.ReadFile(filepath.Join(imageDir, out.File))
			if err != nil {
				zw.Close()
				return nil, fmt.Errorf("failed to read image %s: %w", out.File, err)
			}
			w, err := zw.Create(out.File)
			if err != nil {
				zw.Close()
				return nil, fmt.Errorf("failed to add image %s: %w", out.File, err)
			}
			if _, err := w.Write(data); err != nil {
				zw.Close()
				return nil, fmt.Errorf("failed to write image %s: %w", out.File, err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
