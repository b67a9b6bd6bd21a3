// Package scraper drives a browser session through a review site and returns
// the reviews it finds.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dtnitsch/review-scraper/models"
	"github.com/dtnitsch/review-scraper/pkg/dates"
)

var (
	ErrBlocked         = errors.New("blocked by anti-bot page")
	ErrProductNotFound = errors.New("product not found")
	ErrNoReviews       = errors.New("no reviews rendered")
	ErrNoProductLink   = errors.New("no product link found for company")
)

// Browser is the subset of a browser session the scrapers use.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Heading(ctx context.Context) (string, error)
	ScrollToBottom(ctx context.Context, step int, delay time.Duration) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	MouseJitter(ctx context.Context) error
	Pause(ctx context.Context, min, max time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Launcher opens a fresh browser session.
type Launcher func(ctx context.Context) (Browser, error)

// Artifacts stores debugging captures. A nil Artifacts disables capture.
type Artifacts interface {
	SaveScreenshot(name string, png []byte) (string, error)
	SaveSnapshot(pageURL, html string) (string, error)
}

// Query is what to scrape.
type Query struct {
	Company string
	Range   dates.Range
}

// Scraper fetches reviews for one site.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, q Query) ([]models.Review, error)
}

// Options tunes pacing and waits.
type Options struct {
	NavigationAttempts int
	RetryDelay         time.Duration

	// G2
	ReviewWaitTimeout time.Duration
	SettleMin         time.Duration
	SettleMax         time.Duration
	PageDelayMin      time.Duration
	PageDelayMax      time.Duration
	ScrollStep        int
	ScrollDelay       time.Duration

	// Capterra
	ProductWaitTimeout time.Duration
	ReviewsWaitTimeout time.Duration
	LazyScrollStep     int
	LazyScrollDelay    time.Duration
	LazyScrollPasses   int
}

// DefaultOptions returns the pacing used against the live sites.
func DefaultOptions() Options {
	return Options{
		NavigationAttempts: 3,
		RetryDelay:         3 * time.Second,
		ReviewWaitTimeout:  15 * time.Second,
		SettleMin:          500 * time.Millisecond,
		SettleMax:          800 * time.Millisecond,
		PageDelayMin:       2 * time.Second,
		PageDelayMax:       4 * time.Second,
		ScrollStep:         150,
		ScrollDelay:        100 * time.Millisecond,
		ProductWaitTimeout: 30 * time.Second,
		ReviewsWaitTimeout: 10 * time.Second,
		LazyScrollStep:     300,
		LazyScrollDelay:    300 * time.Millisecond,
		LazyScrollPasses:   2,
	}
}

// Deps are the collaborators shared by every scraper.
type Deps struct {
	Launch    Launcher
	Artifacts Artifacts
	Logger    *slog.Logger
	Options   Options
}

// New returns the scraper for source.
func New(source models.Source, deps Deps) (Scraper, error) {
	if deps.Launch == nil {
		return nil, errors.New("scraper: launcher is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	switch source {
	case models.SourceG2:
		return NewG2(deps), nil
	case models.SourceCapterra:
		return NewCapterra(deps), nil
	}
	return nil, fmt.Errorf("scraper: unsupported source %q", source)
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug lowercases a company name and joins its words with hyphens.
func Slug(company string) string {
	return whitespace.ReplaceAllString(strings.ToLower(company), "-")
}

// capture saves a screenshot (and, when html is non-empty, a snapshot)
// for later inspection. Failures are logged, never returned.
func capture(ctx context.Context, b Browser, artifacts Artifacts, logger *slog.Logger, name, pageURL, html string) {
	if artifacts == nil {
		return
	}
	png, err := b.Screenshot(ctx)
	if err != nil {
		logger.Warn("Failed to capture screenshot", "name", name, "error", err)
	} else if path, err := artifacts.SaveScreenshot(name, png); err != nil {
		logger.Warn("Failed to save screenshot", "name", name, "error", err)
	} else {
		logger.Info("Screenshot saved", "path", path)
	}

	if html == "" {
		return
	}
	if path, err := artifacts.SaveSnapshot(pageURL, html); err != nil {
		logger.Warn("Failed to save page snapshot", "url", pageURL, "error", err)
	} else {
		logger.Debug("Page snapshot saved", "path", path)
	}
}

func closeBrowser(b Browser, logger *slog.Logger) {
	if err := b.Close(); err != nil {
		logger.Warn("Failed to close browser", "error", err)
	}
}
