package session

import (
	"context"
	"log/slog"
	"sync"
)

// Cache is anything holding derived state that must be observably empty
// after a sign-out transition. The media URL cache implements it.
type Cache interface {
	InvalidateAll(ctx context.Context)
}

// Invalidator is the terminal failure path: it clears the session store and
// every registered cache, then notifies the application shell so it can
// present the unauthenticated entry point. It is the only code allowed to
// destroy a session outside explicit logout.
//
// Invalidate is idempotent: a failed refresh and a user-initiated logout
// racing each other produce exactly one shell notification.
type Invalidator struct {
	store       *Store
	caches      []Cache
	onSignedOut func(reason string)
	logger      *slog.Logger

	mu        sync.Mutex
	signedOut bool
}

// NewInvalidator creates an Invalidator. onSignedOut may be nil; caches may
// be registered later via Register.
func NewInvalidator(store *Store, onSignedOut func(reason string), logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Invalidator{
		store:       store,
		onSignedOut: onSignedOut,
		logger:      logger,
	}
}

// Register adds a cache to be cleared on invalidation. Not safe to call
// concurrently with Invalidate; wire caches during startup.
func (inv *Invalidator) Register(c Cache) {
	inv.caches = append(inv.caches, c)
}

// Invalidate clears the session and all registered caches. The first call
// per sign-out transition notifies the shell; repeat calls still clear
// state (cheap and already empty) but stay silent.
func (inv *Invalidator) Invalidate(ctx context.Context, reason string) error {
	inv.mu.Lock()
	first := !inv.signedOut
	inv.signedOut = true
	inv.mu.Unlock()

	if err := inv.store.Clear(); err != nil {
		return err
	}

	for _, c := range inv.caches {
		c.InvalidateAll(ctx)
	}

	if first {
		inv.logger.Info("session invalidated", slog.String("reason", reason))

		if inv.onSignedOut != nil {
			inv.onSignedOut(reason)
		}
	}

	return nil
}

// Reset re-arms the invalidator after a successful login so the next
// sign-out transition notifies the shell again.
func (inv *Invalidator) Reset() {
	inv.mu.Lock()
	inv.signedOut = false
	inv.mu.Unlock()
}
