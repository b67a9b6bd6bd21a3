// Package browser drives a headless Chrome session through chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var ErrWaitTimeout = errors.New("timed out waiting for selector")

// Options configures a browser session.
type Options struct {
	Headless          bool
	ExecPath          string
	UserAgent         string
	Locale            string
	Width             int
	Height            int
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	// MinNavigationInterval spaces out consecutive navigations.
	MinNavigationInterval time.Duration
	// Stealth installs the fingerprint overrides before any page script runs.
	Stealth bool
}

// DefaultOptions mirrors a desktop Chrome on Windows.
func DefaultOptions() Options {
	return Options{
		Headless:              true,
		UserAgent:             DefaultUserAgent,
		Locale:                "en-US",
		Width:                 1366,
		Height:                768,
		NavigationTimeout:     60 * time.Second,
		ActionTimeout:         30 * time.Second,
		MinNavigationInterval: time.Second,
		Stealth:               true,
	}
}

// Session is one Chrome tab. It is not safe for concurrent use.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Launch starts Chrome and opens a tab with the stealth overrides installed.
func Launch(ctx context.Context, opts Options, logger *slog.Logger) (*Session, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.Locale != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Locale))
	}
	if opts.Width > 0 && opts.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        opts,
		limiter:     newLimiter(opts.MinNavigationInterval),
		logger:      logger,
	}

	setup := []chromedp.Action{}
	if opts.Stealth {
		setup = append(setup, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}))
	}
	if opts.Width > 0 && opts.Height > 0 {
		setup = append(setup, chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)))
	}
	setup = append(setup, chromedp.Navigate("about:blank"))

	// The first Run allocates the browser; it must use the tab context itself.
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("Browser started", "headless", opts.Headless, "stealth", opts.Stealth)
	return s, nil
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// run executes actions in the tab, bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.run(ctx, s.opts.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// HTML returns the current document's outer HTML.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// Heading returns the text of the first h1, or "" when there is none.
func (s *Session) Heading(ctx context.Context) (string, error) {
	var heading string
	if err := s.run(ctx, s.opts.ActionTimeout,
		chromedp.Evaluate(`(document.querySelector('h1') || {}).textContent || ''`, &heading),
	); err != nil {
		return "", fmt.Errorf("failed to read heading: %w", err)
	}
	return heading, nil
}

// ScrollToBottom scrolls the window in step-pixel increments to trigger
// lazy rendering.
func (s *Session) ScrollToBottom(ctx context.Context, step int, delay time.Duration) error {
	if step <= 0 {
		step = 150
	}
	script := fmt.Sprintf(scrollScript, step, delay.Milliseconds())
	if err := s.run(ctx, 2*s.opts.NavigationTimeout,
		chromedp.Evaluate(script, nil, awaitPromise),
	); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// WaitForSelector waits until an element matching selector is ready.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return waitError(s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)), selector)
}

func waitError(err error, selector string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrWaitTimeout, selector)
	}
	return err
}

// Click clicks the first element matching selector and waits for the
// navigation it triggers.
func (s *Session) Click(ctx context.Context, selector string) error {
	listenCtx, stopListening := context.WithCancel(s.ctx)
	defer stopListening()
	listener, navigated := mainFrameNavigated()
	chromedp.ListenTarget(listenCtx, listener)

	if err := s.run(ctx, s.opts.ActionTimeout,
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()
	select {
	case <-navigated:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("click on %s did not navigate: %w", selector, ErrWaitTimeout)
	}
	return s.run(ctx, s.opts.NavigationTimeout, chromedp.WaitReady("body", chromedp.ByQuery))
}

// mainFrameNavigated returns a target listener and a channel that is closed
// the first time the top-level frame navigates. Child frames are ignored.
func mainFrameNavigated() (func(ev any), <-chan struct{}) {
	done := make(chan struct{})
	var once sync.Once
	return func(ev any) {
		if e, ok := ev.(*page.EventFrameNavigated); ok && e.Frame != nil && e.Frame.ParentID == "" {
			once.Do(func() { close(done) })
		}
	}, done
}

// MouseJitter moves the pointer to a random point near the top-left.
func (s *Session) MouseJitter(ctx context.Context) error {
	x := 100 + rand.Float64()*300
	y := 100 + rand.Float64()*300
	return s.run(ctx, s.opts.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

// Pause sleeps for a random duration in [min, max].
func (s *Session) Pause(ctx context.Context, min, max time.Duration) error {
	return sleep(ctx, Jitter(min, max))
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the tab and the browser process.
func (s *Session) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Jitter returns a random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
