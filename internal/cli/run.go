// internal/cli/run.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/echo-works/reviewcrawl/internal/browser"
	"github.com/echo-works/reviewcrawl/internal/downloader"
	"github.com/echo-works/reviewcrawl/internal/engine"
	"github.com/echo-works/reviewcrawl/internal/export"
	"github.com/echo-works/reviewcrawl/internal/retry"
	"github.com/echo-works/reviewcrawl/internal/ui"
	headersutil "github.com/echo-works/reviewcrawl/internal/utils/headers"
	urlutil "github.com/echo-works/reviewcrawl/internal/utils/url"
	"github.com/echo-works/reviewcrawl/pkg/models"
)

var (
	runHeaders  []string
	businessArg string
	concurrency int
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Extract review records from a listing URL",
	Long: `Opens the listing in a headless browser, scrolls until no new reviews
appear, extracts a structured record per review, and writes the export
artifacts into the output directory.

Records with neither recoverable text nor a recoverable rating are excluded
from the exports; use --trace to see why individual reviews were dropped.`,
	Example: `  # Extract reviews and images into the current directory
  reviewcrawl run "https://maps.example.com/place/Acme+Cafe/reviews"

  # Skip image retrieval and keep the browser visible
  reviewcrawl run <url> --no-images --no-headless

  # Emit the decision trace and bundle everything into one zip
  reviewcrawl run <url> --trace --zip --output=./out

  # Bound scrolling for a quick sample
  reviewcrawl run <url> --max-rounds=5 --idle-rounds=2`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("output", "o", ".", "Directory to write export artifacts into")
	runCmd.Flags().Int("max-rounds", 60, "Maximum scroll rounds before giving up")
	runCmd.Flags().Int("idle-rounds", 3, "Consecutive rounds without new reviews that end scrolling")
	runCmd.Flags().String("settle", "1500ms", "Wait after each scroll before sampling")
	runCmd.Flags().Bool("no-images", false, "Skip review image retrieval")
	runCmd.Flags().Bool("no-headless", false, "Show the browser window")
	runCmd.Flags().Bool("trace", false, "Write the per-review decision trace JSON")
	runCmd.Flags().Bool("zip", false, "Bundle all artifacts into one zip")
	runCmd.Flags().StringArrayVarP(&runHeaders, "header", "H", []string{}, "Custom headers for image requests (e.g., -H \"Referer: ...\")")
	runCmd.Flags().StringVar(&businessArg, "business", "", "Override the business name used in artifact filenames")
	runCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Concurrent image downloads (1-16)")
}

func runRun(cmd *cobra.Command, args []string) error {
	listingURL := args[0]

	if err := urlutil.ValidateURL(listingURL); err != nil {
		return err
	}

	appCtx := GetAppFromCmd(cmd)
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}
	cfg := appCtx.Config

	business := urlutil.BusinessName(listingURL)
	if businessArg != "" {
		business = urlutil.SanitizeName(businessArg)
	}

	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 16 {
		concurrency = 16
	}

	// Cancel cleanly on Ctrl-C; whatever loaded so far is still exported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("url", listingURL).
		Str("business", business).
		Bool("images", cfg.CollectImages).
		Msg("Starting extraction")

	b, err := browser.Open(ctx, browser.Options{
		Headless:   cfg.Headless,
		UserAgent:  cfg.UserAgent,
		ChromePath: cfg.ChromePath,
		Proxy:      cfg.Proxy,
		OpTimeout:  cfg.HTTPTimeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrRunNotStarted, err)
	}
	defer b.Close()

	if err := b.Navigate(ctx, listingURL); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrRunNotStarted, err)
	}

	// Image destination next to the artifacts so relative refs stay valid
	imageDir := filepath.Join(cfg.OutputDir, business+"_images")

	collector := appCtx.Collector
	if len(runHeaders) > 0 {
		// Rebuild the downloader so custom headers apply to image requests
		headerMap := headersutil.ParseHeaders(runHeaders)
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = cfg.ImageRetries
		dl := downloader.NewDownloader(cfg.HTTPTimeout, cfg.UserAgent,
			downloader.WithCache(appCtx.ImageCache),
			downloader.WithRateLimiter(appCtx.RateLimiter),
			downloader.WithRetryConfig(retryCfg),
			downloader.WithHeaders(headerMap),
		)
		collector = downloader.NewCollector(dl)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Scrolling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	eng := engine.New(engine.NewParser(), engine.NewResolver(engine.DefaultSelectors()), collector, concurrency)
	result, runErr := eng.Run(ctx, b, engine.RunOptions{
		Loader: engine.LoaderOptions{
			MaxRounds:          cfg.MaxRounds,
			IdleRoundThreshold: cfg.IdleRoundThreshold,
			Settle:             cfg.ScrollSettle,
			OnRound: func(round, fresh int) {
				bar.Describe(fmt.Sprintf("Scrolling (round %d, %d new)", round, fresh))
				_ = bar.Add(1)
			},
		},
		CollectImages: cfg.CollectImages,
		ImageDir:      imageDir,
	})
	_ = bar.Finish()

	if result == nil {
		return fmt.Errorf("extraction failed: %w", runErr)
	}
	if runErr != nil {
		// Cancellation mid-run still exports whatever finalized
		log.Warn().Err(runErr).Msg("Run ended early, exporting partial results")
	}

	artifacts, err := export.BuildArtifacts(export.Options{
		Business:  business,
		SourceURL: listingURL,
		Partial:   result.Partial,
		ImageDir:  imageDir,
		Trace:     cfg.DebugTrace,
		Report:    cfg.DebugTrace,
		Bundle:    cfg.ZipBundle,
	}, result.Records, result.Trace, result.Images, result.Salvaged)
	if err != nil {
		return fmt.Errorf("failed to build artifacts: %w", err)
	}

	paths, err := export.WriteArtifacts(cfg.OutputDir, artifacts)
	if err != nil {
		return fmt.Errorf("failed to write artifacts: %w", err)
	}

	printSummary(business, result, paths)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func printSummary(business string, result *engine.Result, paths []string) {
	fmt.Printf("\n%s %s\n", ui.Bold("Extraction complete:"), business)
	if result.Partial {
		fmt.Printf("  %s\n", ui.Warn("Listing became unreachable mid-run; results are partial"))
	}

	var duplicates, invalid int
	for _, entry := range result.Trace {
		switch entry.Outcome {
		case models.OutcomeDuplicate:
			duplicates++
		case models.OutcomeInvalid:
			invalid++
		}
	}

	var imagesSaved, imagesSkipped int
	for _, outcomes := range result.Images {
		for _, out := range outcomes {
			if out.Skipped {
				imagesSkipped++
			} else {
				imagesSaved++
			}
		}
	}

	fmt.Printf("  %s %s\n", ui.ColorBold+"Records:"+ui.ColorReset, ui.Success(fmt.Sprintf("%d", len(result.Records))))
	if duplicates > 0 {
		fmt.Printf("  %s %d\n", ui.ColorBold+"Duplicates dropped:"+ui.ColorReset, duplicates)
	}
	if invalid > 0 {
		fmt.Printf("  %s %s\n", ui.ColorBold+"Invalid records:"+ui.ColorReset, ui.Error(fmt.Sprintf("%d", invalid)))
	}
	if imagesSaved > 0 || imagesSkipped > 0 {
		fmt.Printf("  %s %d saved, %d skipped\n", ui.ColorBold+"Images:"+ui.ColorReset, imagesSaved, imagesSkipped)
	}

	fmt.Printf("\n%s\n", ui.Bold("Artifacts:"))
	for _, p := range paths {
		fmt.Printf("  %s %s\n", ui.Success("✓"), p)
	}
}
