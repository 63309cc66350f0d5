package media

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestURLStore(t *testing.T) *URLStore {
	t.Helper()

	store, err := OpenURLStore(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestURLStore_RoundTrip(t *testing.T) {
	store := newTestURLStore(t)
	ctx := context.Background()
	fetchedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, "img-1", "https://cdn.example/img-1?sig=1", fetchedAt, 5*time.Minute))

	url, gotFetched, ttl, ok, err := store.Get(ctx, "img-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/img-1?sig=1", url)
	assert.True(t, gotFetched.Equal(fetchedAt))
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestURLStore_PutOverwrites(t *testing.T) {
	store := newTestURLStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, store.Put(ctx, "img-1", "https://cdn.example/old", now, time.Minute))
	require.NoError(t, store.Put(ctx, "img-1", "https://cdn.example/new", now.Add(time.Minute), 2*time.Minute))

	url, _, ttl, ok, err := store.Get(ctx, "img-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/new", url)
	assert.Equal(t, 2*time.Minute, ttl)
}

func TestURLStore_MissingKey(t *testing.T) {
	store := newTestURLStore(t)

	_, _, _, ok, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestURLStore_DeleteAll(t *testing.T) {
	store := newTestURLStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Put(ctx, "a", "https://cdn.example/a", now, time.Minute))
	require.NoError(t, store.Put(ctx, "b", "https://cdn.example/b", now, time.Minute))
	require.NoError(t, store.DeleteAll(ctx))

	_, _, _, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestURLStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "urlcache.db")

	store, err := OpenURLStore(path, slog.Default())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(context.Background(), "a", "https://cdn.example/a", time.Now(), time.Minute))
}

func TestCacheSeed_LoadsFreshEntriesOnly(t *testing.T) {
	store := newTestURLStore(t)
	ctx := context.Background()

	clock := newFakeClock()

	// Fresh entry and one already past its margin.
	require.NoError(t, store.Put(ctx, "fresh", "https://cdn.example/fresh", clock.Now(), 10*time.Minute))
	require.NoError(t, store.Put(ctx, "stale", "https://cdn.example/stale", clock.Now().Add(-time.Hour), time.Minute))

	fetch := &countingFetch{ttl: time.Minute}
	cache := NewCache(fetch.fn, time.Minute, store, slog.Default(), nil)
	cache.now = clock.Now

	cache.Seed(ctx, []string{"fresh", "stale", "absent"})

	assert.Equal(t, 1, cache.Len(), "only the fresh entry is seeded")

	url, err := cache.Resolve(ctx, "fresh", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/fresh", url)
	assert.Equal(t, int32(0), fetch.calls.Load(), "seeded entry served without refetch")
}
