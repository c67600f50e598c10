package middleware

import (
	"net/http"

	formlogin "github.com/MrEthical07/formlogin"
)

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := formlogin.IdentityFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePrincipal admits requests whose identity carries at least one of principals.
// Anonymous requests get 401, authenticated ones without a match get 403.
func RequirePrincipal(principals ...string) func(http.Handler) http.Handler {
	want := append([]string(nil), principals...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := formlogin.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, p := range want {
				if id.HasPrincipal(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
