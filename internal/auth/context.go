package auth

import (
	"context"

	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

// authContextKey is unexported so only this package can attach an
// AuthContext; handlers cannot forge an authenticated request.
type authContextKey struct{}

// ContextWithAuth returns ctx carrying the verified service key's
// identity and scopes.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthFromContext returns the AuthContext set by the auth middleware,
// or nil for unauthenticated requests.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey{}).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}
