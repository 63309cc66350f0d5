package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gramsetu/gramsetu-go/internal/session"
)

const userAgent = "gramsetu-go/0.1"

// Client is the outbound call path to the panchayat REST backend. It
// attaches the current session's bearer token, dispatches the call, and on
// a 401 delegates to the refresh Coordinator before resending exactly once.
//
// Domain wrappers call Do and never handle 401/refresh themselves. The
// client itself holds no shared mutable state; all coordination lives in
// the Coordinator and the session store.
type Client struct {
	baseURL     string
	tenant      string
	httpClient  *http.Client
	sessions    *session.Store
	coordinator *Coordinator
	invalidator *session.Invalidator
	logger      *slog.Logger
	metrics     *Metrics
}

// NewClient creates an API client. The coordinator is constructed
// internally and wired to POST /auth/refresh. metrics may be nil.
func NewClient(
	baseURL, tenant string,
	httpClient *http.Client,
	sessions *session.Store,
	invalidator *session.Invalidator,
	logger *slog.Logger,
	metrics *Metrics,
) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL:     baseURL,
		tenant:      tenant,
		httpClient:  httpClient,
		sessions:    sessions,
		invalidator: invalidator,
		logger:      logger,
		metrics:     metrics,
	}

	c.coordinator = NewCoordinator(sessions, invalidator, c.refreshCall, 0, logger, metrics)

	return c
}

// Coordinator exposes the refresh coordinator for wiring-time adjustments
// such as the configured refresh timeout.
func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// Do executes an authenticated request against the backend. The path is
// appended to the client's base URL. For non-nil bodies, Content-Type is
// set to application/json; bodies must be an io.Seeker (bytes.Reader) to
// be replayable on the post-refresh resend.
//
// A 401 on the first attempt triggers the refresh protocol and one resend.
// A 401 on the resend fails with ErrRetryExhausted and invalidates the
// session, never a second refresh. Every other non-2xx status is
// classified and returned unchanged; transport errors are surfaced without
// retry. The caller is responsible for closing the response body on
// success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	url := c.baseURL + path
	reqID := uuid.New().String()

	resp, err := c.doOnce(ctx, method, url, body, reqID)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return c.finish(resp, method, path)
	}

	// First 401: absorb it, refresh, resend exactly once.
	drainAndClose(resp)
	c.metrics.request(method, resp.StatusCode)

	if c.sessions.Current() == nil {
		return nil, ErrNotLoggedIn
	}

	c.logger.Debug("request unauthorized, awaiting fresh credential",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", reqID),
	)

	if _, err := c.coordinator.AwaitFreshCredential(ctx); err != nil {
		return nil, err
	}

	if err := rewindBody(body); err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}

	c.metrics.retried()

	resp, err = c.doOnce(ctx, method, url, body, reqID)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Fresh credential rejected: hard failure, no further refresh.
		drainAndClose(resp)
		c.metrics.request(method, resp.StatusCode)

		c.logger.Error("request unauthorized after refreshed retry",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", reqID),
		)

		if invErr := c.invalidator.Invalidate(ctx, "retry exhausted"); invErr != nil {
			c.logger.Warn("session invalidation errored", slog.String("error", invErr.Error()))
		}

		return nil, ErrRetryExhausted
	}

	return c.finish(resp, method, path)
}

// doOnce executes a single HTTP request (no refresh, no resend).
func (c *Client) doOnce(ctx context.Context, method, url string, body io.Reader, reqID string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if sess := c.sessions.Current(); sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)

	if c.tenant != "" {
		req.Header.Set("X-Tenant", c.tenant)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// finish classifies a settled response: 2xx is returned to the caller,
// anything else becomes an *APIError wrapping the status sentinel.
func (c *Client) finish(resp *http.Response, method, path string) (*http.Response, error) {
	c.metrics.request(method, resp.StatusCode)

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-ID"),
		Message:    string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// getJSON performs an authenticated GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding %s response: %w", path, err)
	}

	return nil
}

// postJSON performs an authenticated POST with a JSON body and decodes the
// response into out (which may be nil to discard it).
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("api: encoding %s request: %w", path, err)
	}

	resp, err := c.Do(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding %s response: %w", path, err)
	}

	return nil
}

// rewindBody seeks a request body back to the start before a resend.
// Nil bodies need no rewind; non-seekable bodies cannot be replayed.
func rewindBody(body io.Reader) error {
	if body == nil {
		return nil
	}

	seeker, ok := body.(io.Seeker)
	if !ok {
		return fmt.Errorf("request body is not replayable for retry")
	}

	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}

	return nil
}

// drainAndClose discards a response body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
