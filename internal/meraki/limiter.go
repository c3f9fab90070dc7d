package meraki

import (
	"context"
	"sync"
	"time"
)

// Limiter throttles outbound Dashboard API calls. Meraki enforces an
// org-wide budget of roughly ten requests per second, so every call
// acquires a token before hitting the wire.
//
// The service binary shares a Redis-backed limiter across workers; the
// CLI binaries use the in-process LocalLimiter. Limiter failures must
// fail open so a broken limiter backend does not halt an audit.
type Limiter interface {
	// Wait blocks until a token is available or the context is done.
	Wait(ctx context.Context) error
}

// LocalLimiter is an in-process token bucket.
type LocalLimiter struct {
	rate  float64 // tokens per second
	burst float64

	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// NewLocalLimiter creates a token bucket with the given refill rate and
// capacity. Non-positive values disable limiting.
func NewLocalLimiter(ratePerSecond, burst int) *LocalLimiter {
	return &LocalLimiter{
		rate:       float64(ratePerSecond),
		burst:      float64(burst),
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available.
func (l *LocalLimiter) Wait(ctx context.Context) error {
	if l.rate <= 0 || l.burst <= 0 {
		return nil
	}

	for {
		delay := l.take()
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes a token if available, otherwise returns how long to wait
// before one will be.
func (l *LocalLimiter) take() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = now

	l.tokens = min(l.burst, l.tokens+elapsed*l.rate)

	if l.tokens >= 1 {
		l.tokens--
		return 0
	}

	return time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}
