package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/LakeAndrew/MerakiScripts/internal/auth"
	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

// RequireScope gates a route on the authenticated key's scopes; any of
// the listed scopes is enough. Must run after Auth. Read-scoped keys
// cover audits and tag-sync plans, write covers applying tag changes,
// and admin additionally covers key management.
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeScopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !hasAnyScope(authCtx.Scopes, required) {
				writeScopeError(w, http.StatusForbidden, "FORBIDDEN",
					fmt.Sprintf("Insufficient permissions. Required scope: %s", required[0]))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// hasAnyScope reports whether held covers any of the required scopes.
// Admin implies everything, so a tag-sync apply does not need both
// write and admin on the same key.
func hasAnyScope(held, required []string) bool {
	if slices.Contains(held, model.ScopeAdmin) {
		return true
	}
	for _, req := range required {
		if slices.Contains(held, req) {
			return true
		}
	}
	return false
}

func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeRead)
}

func RequireWrite() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeWrite)
}

func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}

func writeScopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":{"code":"%s","message":"%s"}}`, code, message)))
}
