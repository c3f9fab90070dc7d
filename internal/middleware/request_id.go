// Package middleware holds the HTTP middleware chain: request IDs,
// logging, panic recovery, service key auth, scope checks, and the
// per-key rate limit.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDHeader carries the request ID in and out. An audit run
// created over HTTP logs this ID, so a run in the queue can be traced
// back to the request that enqueued it.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen caps client-supplied IDs so a hostile header cannot
// bloat every log line of the request.
const maxRequestIDLen = 128

// RequestID attaches an ID to each request, honoring a client-supplied
// X-Request-ID and generating a UUID otherwise. The ID is echoed in the
// response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if len(requestID) > maxRequestIDLen {
			requestID = requestID[:maxRequestIDLen]
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)

		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID, or "" outside the middleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
