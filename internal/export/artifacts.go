// internal/export/artifacts.go
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

// Artifact is one export file, named and ready to write.
type Artifact struct {
	Filename string
	Data     []byte
}

// Options selects which artifacts a run produces.
type Options struct {
	Business  string
	SourceURL string
	Partial   bool
	ImageDir  string
	Trace     bool // emit the trace JSON
	Report    bool // emit the Markdown debug report
	Bundle    bool // wrap everything in a combined zip
}

// BuildArtifacts assembles the export set for one run. The CSV and JSON
// datasets are always produced; trace, report, images zip and the combined
// bundle follow the options. Filenames carry the business name and a
// date stamp, e.g. acme_cafe_reviews_2026-08-29.csv.
func BuildArtifacts(opts Options, records []models.FinalizedRecord, trace models.RunTrace, images map[string][]models.ImageOutcome, salvaged map[string]string) ([]Artifact, error) {
	stamp := time.Now().Format("2006-01-02")
	name := func(kind, ext string) string {
		return fmt.Sprintf("%s_%s_%s.%s", opts.Business, kind, stamp, ext)
	}

	var artifacts []Artifact

	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, opts.Business, records, images); err != nil {
		return nil, fmt.Errorf("building CSV: %w", err)
	}
	artifacts = append(artifacts, Artifact{Filename: name("reviews", "csv"), Data: csvBuf.Bytes()})

	var jsonBuf bytes.Buffer
	if err := WriteJSON(&jsonBuf, NewDataset(opts.Business, opts.SourceURL, opts.Partial, records)); err != nil {
		return nil, fmt.Errorf("building JSON: %w", err)
	}
	artifacts = append(artifacts, Artifact{Filename: name("reviews", "json"), Data: jsonBuf.Bytes()})

	if opts.Trace {
		var traceBuf bytes.Buffer
		if err := WriteTraceJSON(&traceBuf, opts.Business, trace); err != nil {
			return nil, fmt.Errorf("building trace: %w", err)
		}
		artifacts = append(artifacts, Artifact{Filename: name("trace", "json"), Data: traceBuf.Bytes()})
	}

	if opts.Report {
		var reportBuf bytes.Buffer
		err := WriteReport(&reportBuf, ReportInput{
			Business:  opts.Business,
			SourceURL: opts.SourceURL,
			Partial:   opts.Partial,
			Records:   records,
			Trace:     trace,
			Images:    images,
			Salvaged:  salvaged,
		})
		if err != nil {
			return nil, fmt.Errorf("building report: %w", err)
		}
		artifacts = append(artifacts, Artifact{Filename: name("report", "md"), Data: reportBuf.Bytes()})
	}

	if len(images) > 0 && opts.ImageDir != "" {
		imagesZip, err := BuildImagesZip(opts.ImageDir, images)
		if err != nil {
			return nil, fmt.Errorf("building images zip: %w", err)
		}
		artifacts = append(artifacts, Artifact{Filename: name("images", "zip"), Data: imagesZip})
	}

	if opts.Bundle {
		bundle, err := BuildZip(artifacts)
		if err != nil {
			return nil, fmt.Errorf("building bundle: %w", err)
		}
		artifacts = append(artifacts, Artifact{Filename: name("Completed", "zip"), Data: bundle})
	}

	return artifacts, nil
}

// WriteArtifacts writes each artifact into dir, creating it if needed.
// Returns the paths written.
func WriteArtifacts(dir string, artifacts []Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(artifacts))
	for _, art := range artifacts {
		p := filepath.Join(dir, art.Filename)
		if err := os.WriteFile(p, art.Data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", art.Filename, err)
		}
		log.Debug().Str("file", p).Int("bytes", len(art.Data)).Msg("Artifact written")
		paths = append(paths, p)
	}
	return paths, nil
}
