// Package meraki provides a typed client for the Meraki Dashboard API v1.
// It handles authentication, org-wide rate limiting, retries with backoff,
// and Link-header pagination.
package meraki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LakeAndrew/MerakiScripts/internal/metrics"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second

	// DefaultPerPage is the page size requested from list endpoints.
	DefaultPerPage = 1000

	// maxResponseBytes caps response bodies read into memory.
	maxResponseBytes = 32 << 20 // 32 MB

	userAgent = "MerakiScripts/1.0"
)

// ResponseCache caches GET response bodies. Implementations decide key
// hashing and TTL. A nil cache disables caching.
type ResponseCache interface {
	GetResponse(ctx context.Context, requestURL string) ([]byte, bool)
	SetResponse(ctx context.Context, requestURL string, body []byte) error
}

// Config holds client construction parameters.
type Config struct {
	// BaseURL of the Dashboard API, e.g. https://api.meraki.com/api/v1.
	BaseURL string
	// APIKey is the Dashboard API key.
	APIKey string
	// Logger for request diagnostics. Required.
	Logger *slog.Logger
	// Limiter throttles outbound calls. Nil disables throttling.
	Limiter Limiter
	// Metrics records request counts and durations. Nil disables.
	Metrics metrics.Recorder
	// Cache caches GET responses. Nil disables caching.
	Cache ResponseCache
	// MaxAttempts overrides DefaultMaxAttempts when positive.
	MaxAttempts int
}

// Client is a Meraki Dashboard API client.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	logger      *slog.Logger
	limiter     Limiter
	metrics     metrics.Recorder
	cache       ResponseCache
	maxAttempts int
}

// New creates a Dashboard API client.
func New(cfg Config) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		http:        newHTTPClient(),
		logger:      cfg.Logger.With("component", "meraki.client"),
		limiter:     cfg.Limiter,
		metrics:     recorder,
		cache:       cfg.Cache,
		maxAttempts: maxAttempts,
	}
}

// newHTTPClient creates an HTTP client configured for Dashboard API calls.
// It has appropriate timeouts and does not follow redirects; the API's
// shard redirects (api.meraki.com -> nXXX.meraki.com) carry the original
// authorization header only when we re-issue the request ourselves.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// page holds one page of a list response.
type page struct {
	body []byte
	next string // absolute URL of the next page, empty when exhausted
}

// do performs one Dashboard API request with rate limiting and retries.
// Returns the response body and the next-page URL for list endpoints.
func (c *Client) do(ctx context.Context, method, requestURL string, payload any) (*page, error) {
	if c.cache != nil && method == http.MethodGet {
		if body, ok := c.cache.GetResponse(ctx, requestURL); ok {
			c.metrics.IncDashboardCacheHit()
			// Cached pages are stored pre-merged, so there is no next link.
			return &page{body: body}, nil
		}
		c.metrics.IncDashboardCacheMiss()
	}

	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retryDelay(attempt-1, lastErr)); err != nil {
				return nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		result, retryable, err := c.doOnce(ctx, method, requestURL, bodyBytes)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !retryable {
			return nil, err
		}

		c.logger.Warn("dashboard request failed, retrying",
			"method", method,
			"url", requestURL,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, fmt.Errorf("dashboard request exhausted %d attempts: %w", c.maxAttempts, lastErr)
}

// retryState carries the Retry-After hint between attempts.
type retryState struct {
	err        error
	retryAfter time.Duration
}

func (r *retryState) Error() string { return r.err.Error() }
func (r *retryState) Unwrap() error { return r.err }

// retryDelay picks the wait before the given 0-indexed retry.
// A server-provided Retry-After wins over computed backoff.
func (c *Client) retryDelay(attemptCount int, lastErr error) time.Duration {
	if state, ok := lastErr.(*retryState); ok && state.retryAfter > 0 {
		return state.retryAfter
	}
	return NextRetryDelay(attemptCount)
}

// doOnce performs a single HTTP exchange.
// The second return value reports whether the failure is retryable.
func (c *Client) doOnce(ctx context.Context, method, requestURL string, body []byte) (*page, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.metrics.IncDashboardRequest(method, "transport_error")
		// Transport errors (DNS, timeouts, resets) are worth retrying.
		return nil, true, fmt.Errorf("dashboard API %s %s: %w", method, redactURL(requestURL), err)
	}
	defer resp.Body.Close()

	c.metrics.IncDashboardRequest(method, fmt.Sprintf("%d", resp.StatusCode))
	c.metrics.ObserveDashboardRequestDuration(duration)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result := &page{
			body: data,
			next: parseNextLink(resp.Header.Get("Link")),
		}
		if c.cache != nil && method == http.MethodGet && result.next == "" {
			if err := c.cache.SetResponse(ctx, requestURL, data); err != nil {
				c.logger.Debug("response cache write failed", "error", err)
			}
		}
		return result, false, nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     method,
		Path:       requestPath(requestURL),
		Errors:     parseErrorBody(data),
	}

	if !IsRetryableStatus(resp.StatusCode) {
		return nil, false, apiErr
	}

	state := &retryState{err: apiErr}
	if resp.StatusCode == http.StatusTooManyRequests {
		state.retryAfter = RetryAfter(resp, 0)
	}
	return nil, true, state
}

// get fetches a single resource into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	result, err := c.do(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// put sends a PUT request and decodes the response into out when non-nil.
func (c *Client) put(ctx context.Context, path string, payload, out any) error {
	result, err := c.do(ctx, http.MethodPut, c.buildURL(path, nil), payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// getList fetches a paginated list endpoint, following Link headers with
// rel=next until exhausted.
func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("perPage") == "" {
		query.Set("perPage", fmt.Sprintf("%d", DefaultPerPage))
	}

	next := c.buildURL(path, query)

	var all []T
	for next != "" {
		result, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}

		var items []T
		if err := json.Unmarshal(result.body, &items); err != nil {
			return nil, fmt.Errorf("decode %s page: %w", path, err)
		}
		all = append(all, items...)
		next = result.next
	}

	return all, nil
}

// buildURL joins the base URL, path, and query string.
func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// parseNextLink extracts the rel=next target from an RFC 5988 Link header.
// Meraki emits both quoted (rel="next") and bare (rel=next) forms.
func parseNextLink(header string) string {
	if header == "" {
		return ""
	}

	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		target := strings.TrimSpace(segments[0])
		target = strings.TrimPrefix(target, "<")
		target = strings.TrimSuffix(target, ">")

		for _, param := range segments[1:] {
			rel := strings.TrimSpace(param)
			rel = strings.TrimPrefix(rel, "rel=")
			rel = strings.Trim(rel, `"`)
			if rel == "next" {
				return target
			}
		}
	}

	return ""
}

// parseErrorBody extracts messages from a Dashboard API error payload:
// {"errors": ["..."]}.
func parseErrorBody(body []byte) []string {
	var payload struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload.Errors
}

// requestPath strips scheme, host and query from a request URL for error
// messages.
func requestPath(requestURL string) string {
	parsed, err := url.Parse(requestURL)
	if err != nil {
		return requestURL
	}
	return parsed.Path
}

// redactURL removes query parameters from a URL before logging, since
// list endpoints can carry serial numbers in queries.
func redactURL(requestURL string) string {
	if i := strings.IndexByte(requestURL, '?'); i >= 0 {
		return requestURL[:i]
	}
	return requestURL
}

// sleepCtx waits for the duration or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
