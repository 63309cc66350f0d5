package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gramsetu/gramsetu-go/internal/session"
)

// DefaultRefreshTimeout bounds the backend refresh call. The upstream web
// client would wait forever on a hung refresh endpoint; here a timeout
// behaves exactly like a backend failure.
const DefaultRefreshTimeout = 30 * time.Second

// RefreshFunc performs the backend refresh call: it exchanges the stored
// refresh token for a new session. Any error is treated as refresh failure.
type RefreshFunc func(ctx context.Context, refreshToken string) (session.Session, error)

// refreshResult is delivered to each waiter when the in-flight refresh
// settles.
type refreshResult struct {
	accessToken string
	err         error
}

// refreshWaiter is one caller suspended on the in-flight refresh. The
// channel is buffered so resolution never blocks on a departed waiter.
type refreshWaiter struct {
	id string
	ch chan refreshResult
}

// refreshTicket is the single in-flight refresh attempt. Its existence is
// the mutual-exclusion flag: while a ticket is present no second backend
// call is made. Waiters are resolved in registration order.
type refreshTicket struct {
	waiters []refreshWaiter
}

// Coordinator owns the single in-flight credential refresh. For N
// concurrent 401s exactly one backend refresh call is made; all N callers
// share its outcome, FIFO. On success the session store is replaced
// atomically before any waiter is resolved. On failure the session is
// invalidated and every waiter is rejected with ErrRefreshFailed.
type Coordinator struct {
	store       *session.Store
	invalidator *session.Invalidator
	refresh     RefreshFunc
	timeout     time.Duration
	logger      *slog.Logger
	metrics     *Metrics

	mu     sync.Mutex
	ticket *refreshTicket
}

// NewCoordinator creates a Coordinator. timeout <= 0 selects
// DefaultRefreshTimeout. metrics may be nil.
func NewCoordinator(
	store *session.Store,
	invalidator *session.Invalidator,
	refresh RefreshFunc,
	timeout time.Duration,
	logger *slog.Logger,
	metrics *Metrics,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}

	return &Coordinator{
		store:       store,
		invalidator: invalidator,
		refresh:     refresh,
		timeout:     timeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// SetTimeout adjusts the refresh deadline. Call during wiring, before any
// request is in flight.
func (c *Coordinator) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// AwaitFreshCredential suspends until the in-flight refresh settles,
// starting one if none is outstanding. Returns the refreshed access token.
//
// A caller whose ctx is canceled stops waiting but does not cancel the
// refresh, since other waiters may still be attached to it. The refresh
// runs under the coordinator's own timeout, not any waiter's ctx.
func (c *Coordinator) AwaitFreshCredential(ctx context.Context) (string, error) {
	w := refreshWaiter{
		id: uuid.New().String(),
		ch: make(chan refreshResult, 1),
	}

	c.mu.Lock()

	if c.ticket == nil {
		c.ticket = &refreshTicket{}

		c.logger.Info("starting credential refresh", slog.String("first_waiter", w.id))

		go c.runRefresh()
	}

	c.ticket.waiters = append(c.ticket.waiters, w)
	position := len(c.ticket.waiters)

	c.mu.Unlock()

	c.logger.Debug("waiting for credential refresh",
		slog.String("waiter", w.id),
		slog.Int("position", position),
	)

	select {
	case res := <-w.ch:
		return res.accessToken, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("api: refresh wait canceled: %w", ctx.Err())
	}
}

// runRefresh performs the backend call and settles the ticket. Runs in its
// own goroutine, detached from any waiter's context.
func (c *Coordinator) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res := c.doRefresh(ctx)

	// Snapshot waiters and retire the ticket atomically: a caller arriving
	// after this point starts a brand-new refresh instead of observing a
	// settled one.
	c.mu.Lock()
	waiters := c.ticket.waiters
	c.ticket = nil
	c.mu.Unlock()

	for _, w := range waiters {
		w.ch <- res
	}
}

// doRefresh executes the refresh call and applies its outcome to the
// session store. Returns the result to deliver to waiters.
func (c *Coordinator) doRefresh(ctx context.Context) refreshResult {
	cur := c.store.Current()
	if cur == nil {
		return c.fail(ctx, fmt.Errorf("%w: no stored session", ErrRefreshFailed))
	}

	fresh, err := c.refresh(ctx, cur.RefreshToken)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("%w: %v", ErrRefreshFailed, err))
	}

	// The backend may or may not rotate the refresh token; keep the old one
	// when no rotation happened. Identity fields ride along unchanged.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cur.RefreshToken
	}

	if fresh.UserID == "" {
		fresh.UserID = cur.UserID
	}

	if fresh.Role == "" {
		fresh.Role = cur.Role
	}

	if err := c.store.Replace(fresh); err != nil {
		return c.fail(ctx, fmt.Errorf("%w: persisting session: %v", ErrRefreshFailed, err))
	}

	c.logger.Info("credential refresh succeeded", slog.String("user_id", fresh.UserID))
	c.metrics.refreshDone("success")

	return refreshResult{accessToken: fresh.AccessToken}
}

// fail invalidates the session and builds the rejection shared by all
// waiters of this ticket.
func (c *Coordinator) fail(ctx context.Context, err error) refreshResult {
	c.logger.Warn("credential refresh failed", slog.String("error", err.Error()))
	c.metrics.refreshDone("failure")

	if invErr := c.invalidator.Invalidate(ctx, "refresh failed"); invErr != nil {
		c.logger.Warn("session invalidation after failed refresh errored",
			slog.String("error", invErr.Error()))
	}

	return refreshResult{err: err}
}
