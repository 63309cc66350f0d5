package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gramsetu/gramsetu-go/internal/session"
)

// sessionPayload is the backend's shape for login and refresh responses.
type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
}

func (p sessionPayload) toSession() session.Session {
	return session.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		UserID:       p.UserID,
		Role:         p.Role,
	}
}

// Login authenticates with email and password, stores the resulting
// session, and re-arms the invalidator for the new sign-in.
func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var payload sessionPayload
	if err := c.doPublic(ctx, "/auth/login", body, &payload); err != nil {
		return session.Session{}, err
	}

	sess := payload.toSession()
	if !sess.Valid() {
		return session.Session{}, fmt.Errorf("api: login response missing credentials")
	}

	if err := c.sessions.Replace(sess); err != nil {
		return session.Session{}, err
	}

	c.invalidator.Reset()

	c.logger.Info("login successful",
		slog.String("user_id", sess.UserID),
		slog.String("role", sess.Role),
	)

	return sess, nil
}

// Logout revokes the session server-side (best effort) and clears local
// state through the invalidator.
func (c *Client) Logout(ctx context.Context) error {
	if c.sessions.Current() == nil {
		c.logger.Info("logout: no session (already logged out)")
		return nil
	}

	if err := c.postJSON(ctx, "/auth/logout", struct{}{}, nil); err != nil {
		// Local state is cleared regardless: the user asked to be signed out.
		c.logger.Warn("server-side logout failed", slog.String("error", err.Error()))
	}

	return c.invalidator.Invalidate(ctx, "logout")
}

// refreshCall exchanges the refresh token for a new session payload. Wired
// as the Coordinator's RefreshFunc. Runs outside the gateway's retry
// protocol: the call is unauthenticated and any non-success response is
// refresh failure.
func (c *Client) refreshCall(ctx context.Context, refreshToken string) (session.Session, error) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}

	var payload sessionPayload
	if err := c.doPublic(ctx, "/auth/refresh", body, &payload); err != nil {
		return session.Session{}, err
	}

	if payload.AccessToken == "" {
		return session.Session{}, fmt.Errorf("api: refresh response missing access token")
	}

	return payload.toSession(), nil
}

// doPublic posts a JSON body to an unauthenticated endpoint and decodes
// the response. No bearer token, no refresh protocol.
func (c *Client) doPublic(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("api: encoding %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("api: creating %s request: %w", path, err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	if c.tenant != "" {
		req.Header.Set("X-Tenant", c.tenant)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		return &APIError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("X-Request-ID"),
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding %s response: %w", path, err)
	}

	return nil
}
