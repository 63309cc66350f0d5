// Package media keeps time-limited signed resource URLs fresh for many
// concurrent consumers. Each stored-file key gets at most one in-flight
// fetch; stale entries are refreshed a margin ahead of expiry so consumers
// never hit an expired URL. Distinct keys are fully independent.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultRefreshMargin is the lead time before a signed URL's expiry at
// which the next Resolve triggers a proactive refresh.
const DefaultRefreshMargin = 30 * time.Second

// FetchFunc fetches a fresh signed URL and its validity window for a key.
// The api client's GetSignedURL satisfies it.
type FetchFunc func(ctx context.Context, key, entityType, entityID string) (url string, ttl time.Duration, err error)

// entry is a cached signed URL. Read by any number of consumers; replaced
// only by the fetch that refreshed its key.
type entry struct {
	url       string
	fetchedAt time.Time
	ttl       time.Duration
}

// fresh reports whether the entry can still be served without a refresh.
func (e entry) fresh(now time.Time, margin time.Duration) bool {
	return now.Before(e.fetchedAt.Add(e.ttl - margin))
}

// fetchResult is delivered to each consumer attached to a pending fetch.
type fetchResult struct {
	url string
	err error
}

// fetchWaiter is one consumer suspended on an in-flight fetch. Buffered so
// resolution never blocks on a consumer that stopped observing.
type fetchWaiter struct {
	ch chan fetchResult
}

// pendingFetch is the single in-flight fetch for a key. Its presence in
// Cache.pending is the per-key mutual-exclusion flag; consumers attach to
// it instead of issuing duplicate fetches and are resolved in attach order.
type pendingFetch struct {
	waiters []fetchWaiter
}

// Store is the optional persistence layer under the cache; see URLStore.
type Store interface {
	Get(ctx context.Context, key string) (url string, fetchedAt time.Time, ttl time.Duration, ok bool, err error)
	Put(ctx context.Context, key, url string, fetchedAt time.Time, ttl time.Duration) error
	DeleteAll(ctx context.Context) error
}

// Cache resolves stored-file keys to signed URLs with per-key single-flight
// deduplication and TTL/margin-based freshness. Safe for concurrent use.
type Cache struct {
	fetch   FetchFunc
	margin  time.Duration
	store   Store // may be nil
	logger  *slog.Logger
	metrics *Metrics

	// now is the clock; tests inject a fake.
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	pending map[string]*pendingFetch
	gen     uint64 // bumped by InvalidateAll; stale fetches do not install
}

// NewCache creates a Cache. margin <= 0 selects DefaultRefreshMargin.
// store and metrics may be nil.
func NewCache(fetch FetchFunc, margin time.Duration, store Store, logger *slog.Logger, metrics *Metrics) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	if margin <= 0 {
		margin = DefaultRefreshMargin
	}

	return &Cache{
		fetch:   fetch,
		margin:  margin,
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		entries: make(map[string]entry),
		pending: make(map[string]*pendingFetch),
	}
}

// Resolve returns a renderable signed URL for key. A fresh cached entry is
// served without any network call. Otherwise the caller attaches to the
// key's in-flight fetch, starting one if none exists; all attached
// consumers receive the same URL once it settles.
//
// A consumer whose ctx is canceled stops observing the fetch but does not
// cancel it, since other consumers may still be attached. On fetch failure
// the key is left absent and ErrResourceUnavailable-wrapped errors surface;
// callers show a placeholder rather than crash.
func (c *Cache) Resolve(ctx context.Context, key, entityType, entityID string) (string, error) {
	c.mu.Lock()

	if e, ok := c.entries[key]; ok && e.fresh(c.now(), c.margin) {
		c.mu.Unlock()
		c.metrics.lookup("hit")

		return e.url, nil
	}

	w := fetchWaiter{ch: make(chan fetchResult, 1)}

	p, inflight := c.pending[key]
	if !inflight {
		p = &pendingFetch{}
		c.pending[key] = p

		go c.runFetch(key, entityType, entityID, c.gen)
	}

	p.waiters = append(p.waiters, w)

	c.mu.Unlock()
	c.metrics.lookup("miss")

	select {
	case res := <-w.ch:
		return res.url, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("media: resolve canceled for key %s: %w", key, ctx.Err())
	}
}

// runFetch performs the single fetch for a key and resolves its waiters in
// attach order. Detached from any consumer's context: a departing consumer
// must not cancel the fetch for the others.
func (c *Cache) runFetch(key, entityType, entityID string, gen uint64) {
	url, ttl, err := c.fetch(context.Background(), key, entityType, entityID)

	res := fetchResult{url: url, err: err}

	c.mu.Lock()

	// A fetch that started before InvalidateAll still resolves its waiters,
	// but its result is not installed into the cleared cache.
	if err == nil && gen == c.gen {
		now := c.now()
		c.entries[key] = entry{url: url, fetchedAt: now, ttl: ttl}

		if c.store != nil {
			if putErr := c.store.Put(context.Background(), key, url, now, ttl); putErr != nil {
				c.logger.Warn("persisting cached URL failed",
					slog.String("key", key),
					slog.String("error", putErr.Error()),
				)
			}
		}
	}

	p := c.pending[key]
	delete(c.pending, key)

	c.mu.Unlock()

	if err != nil {
		c.metrics.fetchDone("failure")
		c.logger.Warn("signed URL fetch failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	} else {
		c.metrics.fetchDone("success")
	}

	for _, w := range p.waiters {
		w.ch <- res
	}
}

// Seed loads persisted entries into memory at startup so a restarted
// client does not refetch URLs still inside their validity window.
// Only entries still fresh at load time are kept.
func (c *Cache) Seed(ctx context.Context, keys []string) {
	if c.store == nil {
		return
	}

	loaded := 0

	for _, key := range keys {
		url, fetchedAt, ttl, ok, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.Warn("loading cached URL failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)

			continue
		}

		if !ok {
			continue
		}

		e := entry{url: url, fetchedAt: fetchedAt, ttl: ttl}
		if !e.fresh(c.now(), c.margin) {
			continue
		}

		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()

		loaded++
	}

	if loaded > 0 {
		c.logger.Info("seeded URL cache from disk", slog.Int("entries", loaded))
	}
}

// InvalidateAll drops every cached entry. In-flight fetches still settle
// and resolve their already-attached waiters, but their results are not
// installed into the cleared cache. Called by the session invalidator.
func (c *Cache) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.gen++
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.DeleteAll(ctx); err != nil {
			c.logger.Warn("clearing persisted URL cache failed", slog.String("error", err.Error()))
		}
	}

	c.logger.Info("media URL cache cleared")
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
