package middleware

import (
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	formlogin "github.com/MrEthical07/formlogin"
)

// PolicyModel is a casbin model for (principal, path, method) requests with keyMatch2
// paths and regex methods. Groups can be mapped onto other groups with g rules.
const PolicyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// NewEnforcer builds an enforcer on [PolicyModel] with an in-memory policy. Rules are
// added with AddPolicy("group.Administrators", "/admin/*", "GET|POST").
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(PolicyModel)
	if err != nil {
		return nil, err
	}
	return casbin.NewEnforcer(m)
}

// Authorize asks e whether any principal of the caller may perform r.Method on
// r.URL.Path. Anonymous requests get 401, denied ones 403, enforcer failures 500.
func Authorize(e casbin.IEnforcer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := formlogin.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			for _, p := range id.Principals {
				allowed, err := e.Enforce(p, r.URL.Path, r.Method)
				if err != nil {
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
