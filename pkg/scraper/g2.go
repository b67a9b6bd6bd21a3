package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/review-scraper/models"
	"github.com/dtnitsch/review-scraper/pkg/dates"
	"github.com/dtnitsch/review-scraper/pkg/detector"
	"github.com/dtnitsch/review-scraper/pkg/extractor"
)

const G2BaseURL = "https://www.g2.com"

// G2 pages through a product's review listing, newest first.
type G2 struct {
	baseURL   string
	launch    Launcher
	artifacts Artifacts
	logger    *slog.Logger
	opts      Options
}

func NewG2(deps Deps) *G2 {
	return &G2{
		baseURL:   G2BaseURL,
		launch:    deps.Launch,
		artifacts: deps.Artifacts,
		logger:    deps.Logger,
		opts:      deps.Options,
	}
}

// WithBaseURL points the scraper at another host.
func (g *G2) WithBaseURL(u string) *G2 {
	g.baseURL = u
	return g
}

func (g *G2) Name() string { return models.SourceG2.DisplayName() }

// pageOutcome is what one listing page contributed and whether to go on.
type pageOutcome struct {
	reviews []models.Review
	more    bool
}

// Scrape collects reviews inside q.Range. It stops at the first review older
// than the range start, when there is no next page, or when the site blocks
// the session. Site-level failures end the loop and keep what was collected;
// only launch failures and cancellation are returned as errors.
func (g *G2) Scrape(ctx context.Context, q Query) ([]models.Review, error) {
	slug := Slug(q.Company)
	listingURL := fmt.Sprintf("%s/products/%s/reviews", g.baseURL, slug)
	logger := g.logger.With("source", "g2", "company", q.Company)
	logger.Info("Scraping G2 reviews", "url", listingURL)

	b, err := g.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer closeBrowser(b, logger)

	reviews := []models.Review{}
	arrived := false
	for pageNum := 1; ; pageNum++ {
		pageURL := fmt.Sprintf("%s?page=%d", listingURL, pageNum)
		nextURL := fmt.Sprintf("%s?page=%d", listingURL, pageNum+1)
		pageLogger := logger.With("page", pageNum)

		out, html, err := g.scrapePage(ctx, b, pageURL, nextURL, arrived, q.Range, pageLogger)
		reviews = append(reviews, out.reviews...)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return reviews, ctx.Err()
			case errors.Is(err, ErrProductNotFound):
				pageLogger.Error("Product not found on G2", "slug", slug)
				capture(ctx, b, g.artifacts, pageLogger, fmt.Sprintf("g2_product_not_found_%s.png", slug), pageURL, html)
				return []models.Review{}, nil
			case errors.Is(err, ErrNoReviews):
				pageLogger.Warn("No reviews found on page, stopping")
			case errors.Is(err, ErrBlocked):
				pageLogger.Error("Blocked by G2, stopping", "error", err)
				capture(ctx, b, g.artifacts, pageLogger, fmt.Sprintf("g2_blocked_page_%d.png", pageNum), pageURL, html)
			default:
				pageLogger.Error("Scraping failed", "error", err)
				capture(ctx, b, g.artifacts, pageLogger, fmt.Sprintf("g2_error_%d.png", pageNum), pageURL, html)
			}
			break
		}
		if !out.more {
			break
		}
		arrived = true
	}

	logger.Info("Found reviews", "count", len(reviews))
	return reviews, nil
}

// scrapePage handles a single listing page. When arrived is true the browser
// is already on the page via the previous page's next link. If that link
// cannot be clicked the browser loads nextURL instead. The returned html is
// whatever was read before a failure, for snapshots.
func (g *G2) scrapePage(ctx context.Context, b Browser, pageURL, nextURL string, arrived bool, rng dates.Range, logger *slog.Logger) (pageOutcome, string, error) {
	var out pageOutcome

	if !arrived {
		logger.Info("Visiting page", "url", pageURL)
		if err := navigateWithRetry(ctx, b, pageURL, g.opts.NavigationAttempts, g.opts.RetryDelay, logger); err != nil {
			return out, "", err
		}
	}

	if err := b.MouseJitter(ctx); err != nil {
		logger.Debug("Mouse move failed", "error", err)
	}
	if err := b.Pause(ctx, g.opts.SettleMin, g.opts.SettleMax); err != nil {
		return out, "", err
	}

	heading, err := b.Heading(ctx)
	if err != nil {
		logger.Debug("No heading read", "error", err)
	}
	if detector.NotFound(heading) {
		return out, "", ErrProductNotFound
	}

	if err := b.ScrollToBottom(ctx, g.opts.ScrollStep, g.opts.ScrollDelay); err != nil {
		return out, "", err
	}

	if err := b.WaitForSelector(ctx, extractor.G2CardSelector, g.opts.ReviewWaitTimeout); err != nil {
		if ctx.Err() != nil {
			return out, "", ctx.Err()
		}
		return out, "", fmt.Errorf("%w: %v", ErrNoReviews, err)
	}

	html, err := b.HTML(ctx)
	if err != nil {
		return out, "", err
	}
	if m, blocked := detector.Blocked(html, detector.G2BlockMarkers); blocked {
		return out, html, fmt.Errorf("%w: found %q", ErrBlocked, m.Text)
	}

	doc, err := extractor.Parse(html)
	if err != nil {
		return out, html, err
	}

	reachedStart := false
	for _, r := range extractor.G2Reviews(doc) {
		published, err := dates.ParseG2Date(r.Date)
		if err != nil {
			logger.Warn("Invalid date format", "raw_date", r.Date, "error", err)
			continue
		}
		if rng.Before(published) {
			reachedStart = true
			break
		}
		if rng.Contains(published) {
			r.Date = dates.FormatISO(published)
			out.reviews = append(out.reviews, r)
		}
	}
	logger.Info("Page scraped", "kept", len(out.reviews), "reached_start", reachedStart)

	if reachedStart || !extractor.HasG2Next(doc) {
		return out, html, nil
	}

	if err := b.Click(ctx, extractor.G2NextSelector); err != nil {
		if ctx.Err() != nil {
			return out, html, ctx.Err()
		}
		logger.Warn("Next link click failed, loading next page directly", "url", nextURL, "error", err)
		if err := navigateWithRetry(ctx, b, nextURL, g.opts.NavigationAttempts, g.opts.RetryDelay, logger); err != nil {
			return out, html, err
		}
	}
	if err := b.Pause(ctx, g.opts.PageDelayMin, g.opts.PageDelayMax); err != nil {
		return out, html, err
	}
	out.more = true
	return out, html, nil
}
