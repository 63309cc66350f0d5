// Package api provides the outbound request path to the panchayat REST
// backend: bearer-token attachment, transparent single-flight credential
// refresh on 401, and error classification.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("api: bad request")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrThrottled    = errors.New("api: throttled")
	ErrServerError  = errors.New("api: server error")
)

// Sentinel errors for the refresh protocol and its terminal outcomes.
var (
	// ErrNotLoggedIn is returned when an authenticated call is attempted
	// with no stored session.
	ErrNotLoggedIn = errors.New("api: not logged in")

	// ErrRefreshFailed means the refresh endpoint rejected or errored.
	// Terminal: the session has been invalidated.
	ErrRefreshFailed = errors.New("api: credential refresh failed")

	// ErrRetryExhausted means a request was still unauthorized after one
	// retry with a freshly refreshed credential. Terminal: the session has
	// been invalidated and no further refresh is attempted.
	ErrRetryExhausted = errors.New("api: request unauthorized after refreshed retry")

	// ErrResourceUnavailable means a signed-URL fetch failed. Non-fatal:
	// consumers degrade to a placeholder.
	ErrResourceUnavailable = errors.New("api: resource unavailable")
)

// APIError wraps a sentinel error with HTTP status code, request ID, and
// the backend error message body for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
