package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// navigateWithRetry makes up to attempts navigation attempts, waiting delay
// between them. The last error is returned when all attempts fail.
func navigateWithRetry(ctx context.Context, b Browser, url string, attempts int, delay time.Duration, logger *slog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	op := func() error {
		attempt++
		err := b.Navigate(ctx, url)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Navigation attempt failed, retrying", "attempt", attempt, "url", url, "wait", wait, "error", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)
	return backoff.RetryNotify(op, policy, notify)
}
