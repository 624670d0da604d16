package middleware

import (
	"net/http"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

// RestrictTo admits only principals whose role is in roles. Employees pass
// any gate that lists "admin". It must run after Protect; a request without
// a principal is rejected as unauthorized.
func RestrictTo(engine *reeutil.Engine, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, reeutil.ErrUnauthorized)
				return
			}
			if !engine.Allowed(p, roles...) {
				WriteError(w, reeutil.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
