package middleware

import (
	"context"
	"net/http"
	"strings"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal attached by Protect.
func PrincipalFromContext(ctx context.Context) (*reeutil.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*reeutil.Principal)
	return p, ok && p != nil
}

// WithPrincipal attaches p to ctx the way Protect does.
func WithPrincipal(ctx context.Context, p *reeutil.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Protect rejects requests without a valid bearer token for an existing
// principal and attaches that principal to the request context.
func Protect(engine *reeutil.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, reeutil.ErrUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, reeutil.ErrUnauthorized)
				return
			}

			p, err := engine.Authorize(r.Context(), token)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
