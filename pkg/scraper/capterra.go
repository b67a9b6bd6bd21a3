package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/dtnitsch/review-scraper/models"
	"github.com/dtnitsch/review-scraper/pkg/detector"
	"github.com/dtnitsch/review-scraper/pkg/extractor"
)

const CapterraBaseURL = "https://www.capterra.com"

// Capterra resolves a company to its product page and reads the first page
// of reviews. There is no pagination.
type Capterra struct {
	baseURL   string
	launch    Launcher
	artifacts Artifacts
	logger    *slog.Logger
	opts      Options
}

func NewCapterra(deps Deps) *Capterra {
	return &Capterra{
		baseURL:   CapterraBaseURL,
		launch:    deps.Launch,
		artifacts: deps.Artifacts,
		logger:    deps.Logger,
		opts:      deps.Options,
	}
}

// WithBaseURL points the scraper at another host.
func (c *Capterra) WithBaseURL(u string) *Capterra {
	c.baseURL = u
	return c
}

func (c *Capterra) Name() string { return models.SourceCapterra.DisplayName() }

// Scrape returns every review card rendered on the product's reviews page.
// The date range is not applied here. Site failures are logged and yield an
// empty list with a nil error.
func (c *Capterra) Scrape(ctx context.Context, q Query) ([]models.Review, error) {
	logger := c.logger.With("source", "capterra", "company", q.Company)

	b, err := c.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer closeBrowser(b, logger)

	reviews, pageURL, html, err := c.scrape(ctx, b, q.Company, logger)
	if err != nil {
		if ctx.Err() != nil {
			return []models.Review{}, ctx.Err()
		}
		logger.Error("Capterra scraping error", "error", err)
		capture(ctx, b, c.artifacts, logger, fmt.Sprintf("capterra_error_%s.png", Slug(q.Company)), pageURL, html)
		return []models.Review{}, nil
	}

	logger.Info("Extracted reviews", "count", len(reviews))
	return reviews, nil
}

// scrape returns the reviews, or the URL and HTML of the page it failed on.
func (c *Capterra) scrape(ctx context.Context, b Browser, company string, logger *slog.Logger) ([]models.Review, string, string, error) {
	searchURL := fmt.Sprintf("%s/search/?query=%s", c.baseURL, url.QueryEscape(company))
	logger.Info("Searching for company", "url", searchURL)
	if err := b.Navigate(ctx, searchURL); err != nil {
		return nil, searchURL, "", err
	}

	html, err := b.HTML(ctx)
	if err != nil {
		return nil, searchURL, "", err
	}
	if m, blocked := detector.Blocked(html, detector.CapterraBlockMarkers); blocked {
		return nil, searchURL, html, fmt.Errorf("%w: found %q", ErrBlocked, m.Text)
	}

	if err := b.WaitForSelector(ctx, extractor.CapterraProductLinkSelector, c.opts.ProductWaitTimeout); err != nil {
		return nil, searchURL, html, fmt.Errorf("%w: %v", ErrNoProductLink, err)
	}
	// Re-read: the links may have rendered after the first read.
	if html, err = b.HTML(ctx); err != nil {
		return nil, searchURL, "", err
	}
	doc, err := extractor.Parse(html)
	if err != nil {
		return nil, searchURL, html, err
	}
	productURL, ok := extractor.FirstProductLink(doc, searchURL)
	if !ok {
		return nil, searchURL, html, ErrNoProductLink
	}

	reviewsURL := extractor.ReviewsURL(productURL)
	logger.Info("Navigating to reviews page", "url", reviewsURL)
	if err := b.Navigate(ctx, reviewsURL); err != nil {
		return nil, reviewsURL, "", err
	}
	if err := b.WaitForSelector(ctx, extractor.CapterraReadySelector, c.opts.ReviewsWaitTimeout); err != nil {
		return nil, reviewsURL, "", fmt.Errorf("%w: %v", ErrNoReviews, err)
	}

	passes := max(c.opts.LazyScrollPasses, 1)
	for i := 0; i < passes; i++ {
		if err := b.ScrollToBottom(ctx, c.opts.LazyScrollStep, c.opts.LazyScrollDelay); err != nil {
			return nil, reviewsURL, "", err
		}
	}

	html, err = b.HTML(ctx)
	if err != nil {
		return nil, reviewsURL, "", err
	}
	doc, err = extractor.Parse(html)
	if err != nil {
		return nil, reviewsURL, html, err
	}
	reviews := extractor.CapterraReviews(doc)
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, reviewsURL, html, nil
}
