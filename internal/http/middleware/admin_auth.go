package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-scheduler/internal/auth"
	"github.com/wolfman30/clinic-scheduler/internal/http/respond"
)

// Authenticator validates a bearer access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// AdminJWT enforces a valid, unrevoked admin access token.
func AdminJWT(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authn == nil {
				respond.Error(w, auth.ErrAuthDisabled)
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				respond.Fail(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			claims, err := authn.Authenticate(r.Context(), strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respond.Error(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	return auth.ClaimsFromContext(ctx)
}
