package meraki

import (
	"math/rand"
	"net/http"
	"time"
)

// Retry delays for exponential backoff on transient failures.
// Attempt 1: 1s, Attempt 2: 2s, Attempt 3: 4s, Attempt 4: 8s, Attempt 5: 16s
var retryDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

const (
	// DefaultMaxAttempts is the default maximum request attempts.
	DefaultMaxAttempts = 5

	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2 // ±20%
)

// NextRetryDelay calculates the next retry delay with exponential backoff
// plus jitter. attemptCount is 0-indexed (after the first failed attempt,
// attemptCount = 0).
func NextRetryDelay(attemptCount int) time.Duration {
	if attemptCount < 0 {
		attemptCount = 0
	}
	if attemptCount >= len(retryDelays) {
		attemptCount = len(retryDelays) - 1
	}

	base := retryDelays[attemptCount]

	// Add ±20% jitter to avoid synchronized retries across workers
	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}

// IsRetryableStatus reports whether a status code is worth retrying.
// 429 is retried after the Retry-After interval; 5xx with backoff.
// All other 4xx are permanent failures.
func IsRetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

// RetryAfter parses the Retry-After header of a 429 response.
// Meraki sends whole seconds. Falls back to the supplied default when the
// header is missing or malformed.
func RetryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if resp == nil {
		return fallback
	}
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}

	var seconds int
	for _, c := range header {
		if c < '0' || c > '9' {
			return fallback
		}
		seconds = seconds*10 + int(c-'0')
	}
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
