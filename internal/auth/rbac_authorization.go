package auth

import (
	"log/slog"
	"net/http"

	appErrors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/transport"
)

// RBACAuthorization gates whole routes on an operation's permission.
// Services still check their own operation; this is for read-only
// catalog routes that have no principal-aware service.
type RBACAuthorization struct {
	*transport.BaseHandler
	checker PermissionChecker
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		checker:     checker,
	}
}

func (ra *RBACAuthorization) Middleware(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				ra.Logger.WarnContext(r.Context(), "authorization check failed: principal not found in context")
				ra.HandleServiceError(w, appErrors.ErrInvalidToken)
				return
			}

			if err := ra.checker.Require(p, op); err != nil {
				ra.HandleServiceError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
