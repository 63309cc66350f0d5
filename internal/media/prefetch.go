package media

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// defaultPrefetchWorkers bounds parallel warm-up fetches when no count is
// configured.
const defaultPrefetchWorkers = 4

// Prefetch resolves the given keys through the cache with bounded
// parallelism, warming it ahead of rendering (e.g. all cover images of a
// post listing). Per-key single-flight still applies, so keys already in
// flight are shared, not duplicated.
//
// Individual failures are logged and skipped: a missing image is a
// placeholder, never a failed page. The returned error is only ctx
// cancellation.
func (c *Cache) Prefetch(ctx context.Context, keys []string, workers int) error {
	if workers <= 0 {
		workers = defaultPrefetchWorkers
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, key := range keys {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if _, err := c.Resolve(ctx, key, "", ""); err != nil {
				c.logger.Debug("prefetch skipped key",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}

			return nil
		})
	}

	return g.Wait()
}
