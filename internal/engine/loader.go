// internal/engine/loader.go
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/echo-works/reviewcrawl/internal/retry"
	"github.com/echo-works/reviewcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// Surface is the rendering surface a run drives. It is stateful and owned by
// exactly one run: opened before the run starts and released by the owner after
// finalize or cancellation, never shared.
type Surface interface {
	// Reveal triggers one further content reveal (a scroll step).
	Reveal(ctx context.Context) error

	// ExpandTruncated expands any collapsed review text currently rendered.
	// Best effort; failures are not fatal.
	ExpandTruncated(ctx context.Context) error

	// Fragments samples the currently rendered set of review containers.
	Fragments(ctx context.Context) ([]models.RawFragment, error)

	// HTML returns the full current markup, used to salvage data when the
	// surface dies mid-run.
	HTML(ctx context.Context) (string, error)
}

// LoaderOptions tunes one loading pass.
type LoaderOptions struct {
	// MaxRounds caps reveal rounds; loading never blocks indefinitely.
	MaxRounds int

	// IdleRoundThreshold is how many consecutive rounds without a new fragment
	// end the pass.
	IdleRoundThreshold int

	// Settle is how long to wait after a reveal before re-sampling, giving the
	// surface time to render.
	Settle time.Duration

	// Retry bounds re-sampling after a transient read failure.
	Retry retry.Config

	// OnRound, when set, is called after every round with the round number and
	// the count of fragments first observed in it.
	OnRound func(round, fresh int)
}

// Loader drives progressive reveal of off-screen content until no new content
// appears or a limit is reached, yielding each newly observed fragment exactly
// once in the order first observed. A loader is single-use.
type Loader struct {
	surface Surface
	opts    LoaderOptions

	mu      sync.Mutex
	started bool
	partial bool
	err     error
}

// NewLoader wraps a surface for one loading pass.
func NewLoader(surface Surface, opts LoaderOptions) *Loader {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 60
	}
	if opts.IdleRoundThreshold <= 0 {
		opts.IdleRoundThreshold = 3
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Config{
			MaxAttempts:    2,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     time.Second,
			Multiplier:     2.0,
		}
	}
	return &Loader{surface: surface, opts: opts}
}

// Load starts the loading pass and returns the fragment sequence. The channel
// is closed when loading terminates; consumers must then check Partial and
// Err. Calling Load twice returns an immediately closed channel.
func (l *Loader) Load(ctx context.Context) <-chan models.RawFragment {
	out := make(chan models.RawFragment)

	l.mu.Lock()
	if l.started {
		// Keep the condition that ended the first pass readable; only record
		// exhaustion when the pass finished clean.
		if l.err == nil {
			l.err = ErrLoaderExhausted
		}
		l.mu.Unlock()
		close(out)
		return out
	}
	l.started = true
	l.mu.Unlock()

	go l.run(ctx, out)
	return out
}

// Partial reports whether the surface became unreachable mid-pass. An
// early-terminated sequence is still valid, partial data.
func (l *Loader) Partial() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.partial
}

// Err returns the condition that ended the pass early, if any.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Loader) run(ctx context.Context, out chan<- models.RawFragment) {
	defer close(out)

	seen := make(map[string]bool)
	next := 0
	idle := 0

	for round := 1; round <= l.opts.MaxRounds && idle < l.opts.IdleRoundThreshold; round++ {
		if ctx.Err() != nil {
			l.fail(ctx.Err(), false)
			return
		}

		if err := l.surface.Reveal(ctx); err != nil {
			log.Warn().Err(err).Int("round", round).Msg("Surface unreachable during reveal, ending with partial load")
			l.fail(err, true)
			return
		}

		if l.opts.Settle > 0 {
			select {
			case <-time.After(l.opts.Settle):
			case <-ctx.Done():
				l.fail(ctx.Err(), false)
				return
			}
		}

		if err := l.surface.ExpandTruncated(ctx); err != nil {
			log.Debug().Err(err).Msg("Expanding truncated text failed")
		}

		frags, err := l.sample(ctx)
		if err != nil {
			log.Warn().Err(err).Int("round", round).Msg("Sampling failed after retries, ending with partial load")
			l.fail(err, true)
			return
		}

		fresh := 0
		for _, f := range frags {
			key := f.ID
			if key == "" {
				key = contentKey(f.HTML)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			f.Index = next
			next++
			fresh++

			select {
			case out <- f:
			case <-ctx.Done():
				l.fail(ctx.Err(), false)
				return
			}
		}

		if fresh == 0 {
			idle++
		} else {
			idle = 0
		}

		log.Debug().Int("round", round).Int("fresh", fresh).Int("total", next).Int("idle", idle).Msg("Loading round complete")
		if l.opts.OnRound != nil {
			l.opts.OnRound(round, fresh)
		}
	}
}

func (l *Loader) sample(ctx context.Context) ([]models.RawFragment, error) {
	var frags []models.RawFragment
	err := retry.WithRetry(ctx, l.opts.Retry, func() error {
		var err error
		frags, err = l.surface.Fragments(ctx)
		return err
	})
	return frags, err
}

func (l *Loader) fail(err error, partial bool) {
	l.mu.Lock()
	l.err = err
	l.partial = partial
	l.mu.Unlock()
}

// contentKey identifies fragments that expose no identifier of their own.
func contentKey(html string) string {
	sum := sha256.Sum256([]byte(html))
	return "h:" + hex.EncodeToString(sum[:8])
}
