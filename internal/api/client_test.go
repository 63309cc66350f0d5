package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramsetu/gramsetu-go/internal/session"
)

// authBackend is an httptest backend with a refresh endpoint and a
// protected endpoint that accepts only the current access token.
type authBackend struct {
	mu           sync.Mutex
	accessToken  string
	nextToken    string
	refreshCalls atomic.Int32
	refreshDelay time.Duration
	refreshFails bool

	// barrier, when set, holds protected responses until that many
	// requests have arrived, forcing them to overlap.
	barrier      int
	arrived      int
	barrierOpen  chan struct{}
	protectCalls atomic.Int32
}

func (b *authBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)

		if b.refreshDelay > 0 {
			time.Sleep(b.refreshDelay)
		}

		if b.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		b.accessToken = b.nextToken
		tok := b.accessToken
		b.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  tok,
			"refresh_token": "refresh-2",
		})
	})

	mux.HandleFunc("GET /protected", func(w http.ResponseWriter, r *http.Request) {
		b.protectCalls.Add(1)
		b.waitBarrier()

		b.mu.Lock()
		want := "Bearer " + b.accessToken
		b.mu.Unlock()

		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"value": "ok"})
	})

	return mux
}

// waitBarrier holds the caller until `barrier` requests have arrived.
func (b *authBackend) waitBarrier() {
	b.mu.Lock()

	if b.barrier == 0 {
		b.mu.Unlock()
		return
	}

	b.arrived++
	if b.arrived == b.barrier {
		close(b.barrierOpen)
		b.barrier = 0
	}

	ch := b.barrierOpen
	b.mu.Unlock()

	<-ch
}

// newTestClient wires a client + seeded session store against the server.
func newTestClient(t *testing.T, serverURL string) (*Client, *session.Store) {
	t.Helper()

	store := newTestStore(t, testSession())
	inv := session.NewInvalidator(store, nil, slog.Default())
	client := NewClient(serverURL, "rampur", http.DefaultClient, store, inv, slog.Default(), nil)

	return client, store
}

func TestDo_Success(t *testing.T) {
	backend := &authBackend{accessToken: "access-1"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	resp, err := client.Do(context.Background(), http.MethodGet, "/protected", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"ok"}`, string(body))
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
}

func TestDo_TenantAndRequestIDHeaders(t *testing.T) {
	var gotTenant, gotReqID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Tenant")
		gotReqID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	resp, err := client.Do(context.Background(), http.MethodGet, "/anything", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "rampur", gotTenant)
	assert.NotEmpty(t, gotReqID)
}

func TestDo_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"throttled", http.StatusTooManyRequests, ErrThrottled},
		{"server error", http.StatusInternalServerError, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"something"}`))
			}))
			defer srv.Close()

			client, _ := newTestClient(t, srv.URL)

			_, err := client.Do(context.Background(), http.MethodGet, "/test", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestDo_RefreshAndRetryOn401(t *testing.T) {
	backend := &authBackend{accessToken: "access-0", nextToken: "access-2"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)

	// Stored token access-1 is stale; backend expects access-0 then
	// rotates to access-2 on refresh.
	resp, err := client.Do(context.Background(), http.MethodGet, "/protected", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), backend.refreshCalls.Load())

	sess := store.Current()
	require.NotNil(t, sess)
	assert.Equal(t, "access-2", sess.AccessToken)
	assert.Equal(t, "refresh-2", sess.RefreshToken, "rotated refresh token stored")
}

// Five parallel calls all hit 401 together; one refresh; all five are
// resent with the refreshed credential and succeed.
func TestDo_ConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	const parallel = 5

	backend := &authBackend{
		accessToken:  "access-0",
		nextToken:    "access-2",
		refreshDelay: 50 * time.Millisecond,
		barrier:      parallel,
		barrierOpen:  make(chan struct{}),
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	var wg sync.WaitGroup

	var failures atomic.Int32

	for range parallel {
		wg.Add(1)

		go func() {
			defer wg.Done()

			resp, err := client.Do(context.Background(), http.MethodGet, "/protected", nil)
			if err != nil {
				failures.Add(1)
				return
			}

			resp.Body.Close()
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(0), failures.Load(), "all five calls succeed after the shared refresh")
	assert.Equal(t, int32(1), backend.refreshCalls.Load(), "exactly one refresh for five concurrent 401s")
	assert.Equal(t, int32(2*parallel), backend.protectCalls.Load(), "each call resent exactly once")
}

func TestDo_RetryExhaustedAfterSecond401(t *testing.T) {
	// Backend rejects even the refreshed credential.
	backend := &authBackend{accessToken: "never-valid", nextToken: "still-wrong"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)

	_, err := client.Do(context.Background(), http.MethodGet, "/protected", nil)
	require.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, int32(1), backend.refreshCalls.Load(), "no second refresh after a refreshed retry fails")
	assert.Nil(t, store.Current(), "session invalidated on retry exhaustion")
}

func TestDo_RefreshFailurePropagates(t *testing.T) {
	backend := &authBackend{accessToken: "access-0", refreshFails: true}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)

	_, err := client.Do(context.Background(), http.MethodGet, "/protected", nil)
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.Equal(t, int32(1), backend.protectCalls.Load(), "request not resent after failed refresh")
	assert.Nil(t, store.Current())
}

func TestDo_NotLoggedIn(t *testing.T) {
	backend := &authBackend{accessToken: "access-0"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := newTestStore(t, nil)
	inv := session.NewInvalidator(store, nil, slog.Default())
	client := NewClient(srv.URL, "rampur", http.DefaultClient, store, inv, slog.Default(), nil)

	_, err := client.Do(context.Background(), http.MethodGet, "/protected", nil)
	require.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
}

func TestDo_BodyRewoundOnRetry(t *testing.T) {
	var bodies [][]byte

	var mu sync.Mutex

	backend := &authBackend{accessToken: "access-0", nextToken: "access-2"}
	mux := http.NewServeMux()
	mux.Handle("POST /auth/refresh", backend.handler())
	mux.HandleFunc("POST /echo", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)

		mu.Lock()
		bodies = append(bodies, data)
		mu.Unlock()

		backend.mu.Lock()
		want := "Bearer " + backend.accessToken
		backend.mu.Unlock()

		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	payload := []byte(`{"title":"gram sabha notice"}`)

	resp, err := client.Do(context.Background(), http.MethodPost, "/echo", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, bodies, 2, "original request resent once")
	assert.Equal(t, payload, bodies[0])
	assert.Equal(t, payload, bodies[1], "body fully replayed on the retry")
}

func TestDo_TransportErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	client, _ := newTestClient(t, srv.URL)

	_, err := client.Do(context.Background(), http.MethodGet, "/protected", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRetryExhausted)
	assert.NotErrorIs(t, err, ErrRefreshFailed)
}
