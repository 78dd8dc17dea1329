// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/echo-works/reviewcrawl/internal/engine/snapshot"
	"github.com/echo-works/reviewcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// ImageCollector retrieves the media references of one record into a
// destination directory. Implementations preserve input order in their
// outcomes.
type ImageCollector interface {
	Collect(ctx context.Context, recordKey string, refs []string, destDir string) []models.ImageOutcome
}

// RunOptions configures one extraction run.
type RunOptions struct {
	Loader LoaderOptions

	// CollectImages enables image retrieval; ImageDir is the caller-provided
	// destination, released by the caller on every exit path.
	CollectImages bool
	ImageDir      string

	// OnRecord, when set, is called after each fragment is processed with the
	// running record count.
	OnRecord func(processed int)
}

// Result is everything one run produced.
type Result struct {
	// Records is the exported dataset: valid records in discovery order.
	Records []models.FinalizedRecord

	// Trace is the full decision log, including invalid and duplicate
	// records that the dataset excludes.
	Trace models.RunTrace

	// Partial is set when the surface became unreachable mid-run.
	Partial bool

	// Images maps record dedup keys to ordered retrieval outcomes.
	Images map[string][]models.ImageOutcome

	// Salvaged holds script globals recovered from the last snapshot of a
	// surface that died mid-run.
	Salvaged map[string]string
}

// Engine wires the extraction pipeline: content loader, fragment parser,
// fallback resolver, image collector, run ledger.
type Engine struct {
	parser      *Parser
	resolver    *Resolver
	collector   ImageCollector
	concurrency int
}

// New creates an Engine. collector may be nil when image collection is never
// wanted; concurrency bounds in-flight image jobs across records.
func New(parser *Parser, resolver *Resolver, collector ImageCollector, concurrency int) *Engine {
	if parser == nil {
		parser = NewParser()
	}
	if resolver == nil {
		resolver = NewResolver(DefaultSelectors())
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Engine{parser: parser, resolver: resolver, collector: collector, concurrency: concurrency}
}

type imageJob struct {
	key  string
	refs []string
}

// Run executes one extraction against the surface. The surface is exclusively
// owned by this run; the caller opens it beforehand and releases it afterwards.
//
// Error semantics: when the surface is unreachable before any content loads,
// Run returns (nil, ErrRunNotStarted) and no partial ledger exists. When the
// context is cancelled mid-run, Run returns the finalized partial result
// together with the context error. Everything below run level degrades locally
// and is visible only in the trace.
func (e *Engine) Run(ctx context.Context, surface Surface, opts RunOptions) (*Result, error) {
	start := time.Now()
	ledger := NewLedger()
	loader := NewLoader(surface, opts.Loader)

	images := make(map[string][]models.ImageOutcome)
	var imagesMu sync.Mutex
	jobs := make(chan imageJob)
	var workers sync.WaitGroup

	collecting := opts.CollectImages && e.collector != nil
	if collecting {
		for i := 0; i < e.concurrency; i++ {
			workers.Add(1)
			go func() {
				defer workers.Done()
				for job := range jobs {
					outcomes := e.collector.Collect(ctx, job.key, job.refs, opts.ImageDir)
					imagesMu.Lock()
					images[job.key] = outcomes
					imagesMu.Unlock()
				}
			}()
		}
	}

	processed := 0
	for frag := range loader.Load(ctx) {
		cand := e.parser.Parse(frag)
		resolved, prov := e.resolver.Resolve(cand)
		rec := NewFinalizedRecord(resolved, prov)

		e.traceFields(ledger, rec)
		if !rec.Valid {
			ledger.Trace(models.TraceEntry{
				FragmentIndex: frag.Index,
				Outcome:       models.OutcomeInvalid,
			})
		}

		if ledger.Ingest(rec) == IngestAccepted && rec.Valid && collecting && len(rec.Images) > 0 {
			select {
			case jobs <- imageJob{key: rec.DedupKey, refs: rec.Images}:
			case <-ctx.Done():
			}
		}

		processed++
		if opts.OnRecord != nil {
			opts.OnRecord(processed)
		}
	}

	close(jobs)
	workers.Wait()

	partial := loader.Partial()
	loadErr := loader.Err()

	// Surface unreachable before any content: distinct start failure, no
	// partial ledger.
	if partial && processed == 0 {
		return nil, NewEngineError(ErrCodeStartFailure, "no content loaded", errors.Join(ErrRunNotStarted, loadErr))
	}

	result := &Result{Partial: partial, Images: images}

	if partial {
		ledger.Trace(models.TraceEntry{
			FragmentIndex: processed,
			Outcome:       models.OutcomePartialLoad,
		})
		if html, err := surface.HTML(context.WithoutCancel(ctx)); err == nil && html != "" {
			result.Salvaged = snapshot.Salvage(html)
		}
	}

	result.Records, result.Trace = ledger.Finalize()

	log.Info().
		Int("fragments", processed).
		Int("records", len(result.Records)).
		Bool("partial", partial).
		Dur("elapsed", time.Since(start)).
		Msg("Run complete")

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

func (e *Engine) traceFields(ledger *Ledger, rec models.FinalizedRecord) {
	for _, field := range []string{models.FieldText, models.FieldRating} {
		strategy := rec.Provenance[field]
		outcome := models.OutcomeRecovered
		switch strategy {
		case models.ProvenanceDirect:
			outcome = models.OutcomeDirect
		case models.ProvenanceUnrecoverable:
			outcome = models.OutcomeUnrecoverable
		}
		ledger.Trace(models.TraceEntry{
			FragmentIndex: rec.Fragment.Index,
			Field:         field,
			Outcome:       outcome,
			Strategy:      strategy,
		})
	}
}
