// internal/browser/surface.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/echo-works/reviewcrawl/pkg/models"
)

// Selectors for the review listing surface. The pane is the scrollable
// container holding review cards; cards carry a data-review-id attribute.
const (
	paneSelector   = "div.m6QErb.DxyBCb"
	expandSelector = "button.w8nwRe"
)

// revealJS scrolls the listing pane to its bottom so the next batch of
// reviews renders. Falls back to scrolling the window when the pane is
// not present.
const revealJS = `(() => {
	const pane = document.querySelector('` + paneSelector + `');
	if (pane) {
		pane.scrollTop = pane.scrollHeight;
		return true;
	}
	window.scrollTo(0, document.body.scrollHeight);
	return false;
})()`

// expandJS clicks every visible truncation button so full review text is
// in the DOM before sampling.
const expandJS = `(() => {
	const buttons = document.querySelectorAll('` + expandSelector + `');
	let clicked = 0;
	for (const b of buttons) {
		try { b.click(); clicked++; } catch (e) {}
	}
	return clicked;
})()`

// fragmentsJS samples the rendered review containers in document order.
// Nested elements carrying the identity attribute are excluded so each
// review yields exactly one fragment.
const fragmentsJS = `(() => {
	const out = [];
	for (const el of document.querySelectorAll('[data-review-id]')) {
		if (el.parentElement && el.parentElement.closest('[data-review-id]')) {
			continue;
		}
		out.push({id: el.getAttribute('data-review-id') || '', html: el.outerHTML});
	}
	return out;
})()`

// Options configures the browser session.
type Options struct {
	Headless   bool
	UserAgent  string
	ChromePath string
	Proxy      string
	// OpTimeout bounds each individual browser operation.
	OpTimeout time.Duration
}

// Browser drives a headless Chrome session over one review listing. It
// implements the surface the content loader samples from.
type Browser struct {
	ctx       context.Context
	cancels   []context.CancelFunc
	opTimeout time.Duration
}

type fragmentDTO struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// Open launches a browser session. The caller must Close it.
func Open(ctx context.Context, opts Options) (*Browser, error) {
	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = FindChrome()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "ReviewCrawl/1.0 (https://github.com/echo-works/reviewcrawl)"
	}
	opTimeout := opts.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.UserAgent(userAgent),
	}
	if chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromePath))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		ctx:       browserCtx,
		cancels:   []context.CancelFunc{browserCancel, allocCancel},
		opTimeout: opTimeout,
	}

	// Start the browser process now so startup failures surface here,
	// not on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Debug().
		Str("chrome", chromePath).
		Bool("headless", opts.Headless).
		Msg("Browser session started")

	return b, nil
}

// Close tears down the browser session.
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}

// Navigate opens the listing URL and waits for the document body.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	start := time.Now()

	// Log the document response so a blocked or redirected listing is
	// visible in debug output.
	chromedp.ListenTarget(b.ctx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				log.Debug().
					Str("url", resp.Response.URL).
					Int64("status", resp.Response.Status).
					Msg("Document response")
			}
		}
	})

	err := b.run(ctx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	// Wait briefly for the first review card. Not fatal when absent, some
	// listings render cards only after the first scroll.
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := b.run(waitCtx, chromedp.WaitVisible("[data-review-id]", chromedp.ByQuery)); err != nil {
		log.Debug().Err(err).Msg("No review card visible after navigation")
	}

	log.Debug().
		Str("url", url).
		Dur("elapsed", time.Since(start)).
		Msg("Navigation completed")
	return nil
}

// Reveal triggers one scroll step on the listing pane.
func (b *Browser) Reveal(ctx context.Context) error {
	var usedPane bool
	if err := b.run(ctx, chromedp.Evaluate(revealJS, &usedPane)); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	if !usedPane {
		log.Debug().Msg("Listing pane not found, scrolled window instead")
	}
	return nil
}

// ExpandTruncated clicks all truncation buttons currently rendered.
func (b *Browser) ExpandTruncated(ctx context.Context) error {
	var clicked int
	if err := b.run(ctx, chromedp.Evaluate(expandJS, &clicked)); err != nil {
		return fmt.Errorf("expand failed: %w", err)
	}
	if clicked > 0 {
		log.Debug().Int("clicked", clicked).Msg("Expanded truncated reviews")
	}
	return nil
}

// Fragments samples the currently rendered review containers.
func (b *Browser) Fragments(ctx context.Context) ([]models.RawFragment, error) {
	var dtos []fragmentDTO
	if err := b.run(ctx, chromedp.Evaluate(fragmentsJS, &dtos)); err != nil {
		return nil, fmt.Errorf("fragment sampling failed: %w", err)
	}

	fragments := make([]models.RawFragment, 0, len(dtos))
	for _, dto := range dtos {
		fragments = append(fragments, models.RawFragment{ID: dto.ID, HTML: dto.HTML})
	}
	return fragments, nil
}

// HTML returns the full current markup of the page.
func (b *Browser) HTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page snapshot failed: %w", err)
	}
	return html, nil
}

// run executes chromedp actions on the session, bounded by the operation
// timeout and the caller's context.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(b.ctx, b.opTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(opCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}
