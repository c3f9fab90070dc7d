package meraki

import (
	"errors"
	"fmt"
)

// Sentinel errors for Dashboard API failures.
var (
	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = errors.New("dashboard API key rejected")
	// ErrForbidden indicates the API key lacks access to the resource.
	ErrForbidden = errors.New("access to resource forbidden")
	// ErrNotFound indicates the resource does not exist or is not visible
	// to the API key (Meraki returns 404 for foreign organization IDs).
	ErrNotFound = errors.New("resource not found")
	// ErrRateLimited indicates the org-wide rate limit budget is exhausted
	// and retries did not recover.
	ErrRateLimited = errors.New("dashboard rate limit exceeded")
)

// APIError represents a non-2xx response from the Dashboard API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	// Errors holds the messages from the response body's "errors" array,
	// when the API provided one.
	Errors []string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("dashboard API %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Errors[0])
	}
	return fmt.Sprintf("dashboard API %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap maps well-known status codes to sentinel errors so callers can
// use errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	}
	return nil
}
