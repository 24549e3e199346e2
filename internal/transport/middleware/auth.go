package middleware

import (
	"net/http"

	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/pkg/logger"
)

// ActorContext tags the request logger with the authenticated principal.
// It must run after the auth middleware.
func ActorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "actor_id", p.ID, "actor", p.UserName)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
