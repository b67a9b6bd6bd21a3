package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dtnitsch/review-scraper/pkg/browser"
	"github.com/dtnitsch/review-scraper/pkg/extractor"
)

// fakeBrowser serves canned HTML keyed by URL.
type fakeBrowser struct {
	pages       map[string]string
	failures    map[string]int // remaining Navigate failures per URL
	current     string
	navigations []string
	clicks      []string
	scrolls     int
	closed      bool
}

func newFakeBrowser(pages map[string]string) *fakeBrowser {
	return &fakeBrowser{pages: pages, failures: map[string]int{}}
}

func (f *fakeBrowser) Navigate(ctx context.Context, u string) error {
	f.navigations = append(f.navigations, u)
	if f.failures[u] > 0 {
		f.failures[u]--
		return fmt.Errorf("net::ERR_TIMED_OUT at %s", u)
	}
	if _, ok := f.pages[u]; !ok {
		return fmt.Errorf("no such page %s", u)
	}
	f.current = u
	return nil
}

func (f *fakeBrowser) HTML(ctx context.Context) (string, error) {
	return f.pages[f.current], nil
}

func (f *fakeBrowser) Heading(ctx context.Context) (string, error) {
	doc, err := extractor.Parse(f.pages[f.current])
	if err != nil {
		return "", err
	}
	return doc.Find("h1").First().Text(), nil
}

func (f *fakeBrowser) ScrollToBottom(ctx context.Context, step int, delay time.Duration) error {
	f.scrolls++
	return nil
}

func (f *fakeBrowser) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	doc, err := extractor.Parse(f.pages[f.current])
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", browser.ErrWaitTimeout, selector)
	}
	return nil
}

func (f *fakeBrowser) Click(ctx context.Context, selector string) error {
	f.clicks = append(f.clicks, selector)
	doc, err := extractor.Parse(f.pages[f.current])
	if err != nil {
		return err
	}
	href, ok := doc.Find(selector).First().Attr("href")
	if !ok {
		return errors.New("nothing to click")
	}
	base, _ := url.Parse(f.current)
	ref, err := url.Parse(href)
	if err != nil {
		return err
	}
	next := base.ResolveReference(ref).String()
	if _, ok := f.pages[next]; !ok {
		return fmt.Errorf("click led nowhere: %s", next)
	}
	f.current = next
	return nil
}

func (f *fakeBrowser) MouseJitter(ctx context.Context) error { return nil }

func (f *fakeBrowser) Pause(ctx context.Context, min, max time.Duration) error { return ctx.Err() }

func (f *fakeBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("\x89PNG"), nil
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

func (f *fakeBrowser) launcher() Launcher {
	return func(ctx context.Context) (Browser, error) { return f, nil }
}

// fakeArtifacts records what would have been written.
type fakeArtifacts struct {
	screenshots []string
	snapshots   []string
}

func (a *fakeArtifacts) SaveScreenshot(name string, png []byte) (string, error) {
	a.screenshots = append(a.screenshots, name)
	return "artifacts/" + name, nil
}

func (a *fakeArtifacts) SaveSnapshot(pageURL, html string) (string, error) {
	a.snapshots = append(a.snapshots, pageURL)
	return "artifacts/snapshot.html", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.RetryDelay = 0
	opts.SettleMin, opts.SettleMax = 0, 0
	opts.PageDelayMin, opts.PageDelayMax = 0, 0
	opts.ScrollDelay, opts.LazyScrollDelay = 0, 0
	return opts
}

func g2Card(title, date, rating string) string {
	var sb strings.Builder
	sb.WriteString(`<div data-testid="review-card">`)
	fmt.Fprintf(&sb, `<h3 data-testid="review-title">%s</h3>`, title)
	fmt.Fprintf(&sb, `<span data-testid="review-date">Reviewed on %s</span>`, date)
	if rating != "" {
		fmt.Fprintf(&sb, `<meta itemprop="ratingValue" content="%s">`, rating)
	}
	sb.WriteString(`<div data-testid="consumer-name">Pat</div>`)
	fmt.Fprintf(&sb, `<div data-testid="review-body">Body of %s</div>`, title)
	sb.WriteString(`</div>`)
	return sb.String()
}

func g2Page(nextHref string, cards ...string) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><h1>Acme Reviews</h1>`)
	for _, c := range cards {
		sb.WriteString(c)
	}
	if nextHref != "" {
		fmt.Fprintf(&sb, `<ul><li class="next"><a href="%s">Next</a></li></ul>`, nextHref)
	} else {
		sb.WriteString(`<ul><li class="next disabled"><a href="#">Next</a></li></ul>`)
	}
	sb.WriteString(`</body></html>`)
	return sb.String()
}
