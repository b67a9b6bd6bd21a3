package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/xid"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/review-scraper/internal/common"
	"github.com/dtnitsch/review-scraper/models"
	"github.com/dtnitsch/review-scraper/pkg/analytics"
	"github.com/dtnitsch/review-scraper/pkg/artifact_manager"
	"github.com/dtnitsch/review-scraper/pkg/browser"
	"github.com/dtnitsch/review-scraper/pkg/config"
	"github.com/dtnitsch/review-scraper/pkg/dates"
	"github.com/dtnitsch/review-scraper/pkg/db"
	"github.com/dtnitsch/review-scraper/pkg/language"
	"github.com/dtnitsch/review-scraper/pkg/scraper"
	"github.com/dtnitsch/review-scraper/pkg/storage"
)

const (
	previewCount = 5
	keywordCount = 10
)

// ScrapeAction is the root command: scrape, filter, save.
func ScrapeAction(c *cli.Context) error {
	logger := common.NewLogger(os.Stderr, c.Bool("quiet"), c.String("log-format"))

	req, typedSource := readRequest(c)
	if err := common.NewValidator().Struct(req); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", common.ValidationMessage(err))
		return cli.Exit(common.Usage, 1)
	}
	source, err := models.ParseSource(req.Source)
	if err != nil {
		return cli.Exit(common.Usage, 1)
	}
	rng, err := dates.NewRange(req.Start, req.End)
	if err != nil {
		return cli.Exit(common.Usage, 1)
	}
	if rng.Inverted() {
		logger.Warn("Start date is after end date, no reviews can match", "start", req.Start, "end", req.End)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit(err.Error(), 1)
	}
	applyFlags(c, &cfg)
	if f := cfg.Output.Format; f != storage.FormatJSON && f != storage.FormatYAML {
		fmt.Fprintf(os.Stderr, "Error: unsupported format %q: use json or yaml\n", f)
		return cli.Exit(common.Usage, 1)
	}

	runKey := xid.New().String()
	logger = logger.With("run", runKey)
	logger.Info("Scraping reviews", "source", source.DisplayName(), "company", req.Company, "start", req.Start, "end", req.End)

	hist := openHistory(c, cfg, logger)
	defer hist.Close()
	runID := hist.start(runKey, req)

	s, err := scraper.New(source, scraper.Deps{
		Launch:    Launcher(cfg.BrowserOptions(), logger),
		Artifacts: newArtifacts(cfg.Output.ArtifactDir, runKey, logger),
		Logger:    logger,
		Options:   cfg.ScraperOptions(),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	reviews, err := s.Scrape(c.Context, scraper.Query{Company: req.Company, Range: rng})
	if err != nil {
		hist.finish(runID, db.RunResult{Status: db.StatusFailed, Err: err})
		if errors.Is(err, context.Canceled) {
			return cli.Exit("Scraping cancelled", 1)
		}
		return cli.Exit(fmt.Sprintf("Scraping failed: %v", err), 1)
	}

	kept := Postprocess(reviews, req.Start, req.End, logger)
	if c.Bool("detect-language") {
		language.NewDetector().Tag(kept)
	}
	if len(kept) > 0 {
		logger.Info("Top keywords", "keywords", KeywordSummary(kept, keywordCount))
	}

	outputPath := storage.OutputPath(cfg.Output.Dir, req.Company, typedSource, cfg.Output.Format)
	store := &storage.Storage{}
	if err := store.SaveReviews(outputPath, kept, cfg.Output.Format); err != nil {
		hist.finish(runID, db.RunResult{Status: db.StatusFailed, ScrapedCount: len(reviews), Err: err})
		logger.Error("failed to save reviews", "error", err)
		return cli.Exit(err.Error(), 1)
	}
	logger.Info("Saved reviews", "path", outputPath, "count", len(kept))

	status := db.StatusSuccess
	if len(kept) == 0 {
		status = db.StatusEmpty
	}
	hist.saveReviews(runID, kept)
	hist.finish(runID, db.RunResult{
		Status:       status,
		ScrapedCount: len(reviews),
		KeptCount:    len(kept),
		OutputPath:   outputPath,
	})

	return nil
}

// readRequest trims the scrape flags. The source is lowercased for lookup;
// typedSource keeps the user's casing for the output filename.
func readRequest(c *cli.Context) (req models.ScrapeRequest, typedSource string) {
	typedSource = strings.TrimSpace(c.String("source"))
	return models.ScrapeRequest{
		Company: strings.TrimSpace(c.String("company")),
		Start:   strings.TrimSpace(c.String("start")),
		End:     strings.TrimSpace(c.String("end")),
		Source:  strings.ToLower(typedSource),
	}, typedSource
}

// applyFlags lets explicitly set CLI flags win over config and environment.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("output-dir") || cfg.Output.Dir == "" {
		cfg.Output.Dir = c.String("output-dir")
	}
	if c.IsSet("format") {
		cfg.Output.Format = strings.ToLower(c.String("format"))
	}
	if c.IsSet("headless") {
		cfg.Browser.Headless = c.Bool("headless")
	}
	if c.IsSet("db") {
		cfg.Output.DBPath = c.String("db")
	}
}

// Postprocess normalizes dates to ISO, drops records whose date does not
// parse, logs a preview, and keeps the records inside [start, end].
func Postprocess(reviews []models.Review, start, end string, logger *slog.Logger) []models.Review {
	normalized := dates.Normalize(reviews)
	if dropped := len(reviews) - len(normalized); dropped > 0 {
		logger.Warn("Dropped reviews with unparseable dates", "count", dropped)
	}

	for i, r := range normalized[:min(previewCount, len(normalized))] {
		logger.Info("Preview", "index", i+1, "date", r.Date, "title", r.Title)
	}

	kept := dates.FilterByDate(normalized, start, end)
	logger.Info("Filtered reviews", "scraped", len(reviews), "kept", len(kept))
	return kept
}

// KeywordSummary renders the n most frequent review words as "word:count".
func KeywordSummary(reviews []models.Review, n int) string {
	return strings.Join(lo.Map(analytics.TopKeywords(reviews, n), func(k analytics.Keyword, _ int) string {
		return k.String()
	}), ", ")
}

// Launcher adapts browser.Launch to the scraper package.
func Launcher(opts browser.Options, logger *slog.Logger) scraper.Launcher {
	return func(ctx context.Context) (scraper.Browser, error) {
		s, err := browser.Launch(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func newArtifacts(baseDir, runKey string, logger *slog.Logger) scraper.Artifacts {
	m, err := artifact_manager.NewManager(baseDir, runKey)
	if err != nil {
		logger.Warn("Artifact capture disabled", "error", err)
		return nil
	}
	logger.Info("Capturing artifacts", "dir", m.RunDir())
	return m
}
