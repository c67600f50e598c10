package formlogin

import (
	"context"
	"net/http"
)

type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id. The gate uses it for forwarded
// requests; tests and custom adapters may use it to fake an authenticated request.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	id.Principals = append([]string(nil), id.Principals...)
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached by the gate, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// RemoteUser returns the authenticated user id of r, or "" for anonymous requests.
func RemoteUser(r *http.Request) string {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		return ""
	}
	return id.UserID
}

// Principals returns the principals of r, or nil for anonymous requests.
func Principals(r *http.Request) []string {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return append([]string(nil), id.Principals...)
}
