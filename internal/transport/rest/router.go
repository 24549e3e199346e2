package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appErrors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/internal/dept"
	"github.com/frahmantamala/account-admin/internal/post"
	"github.com/frahmantamala/account-admin/internal/transport"
	"github.com/frahmantamala/account-admin/internal/transport/middleware"
	"github.com/frahmantamala/account-admin/internal/transport/swagger"
	"github.com/frahmantamala/account-admin/internal/user"
	"github.com/frahmantamala/account-admin/pkg/logger"
)

// Routes collects everything RegisterAllRoutes mounts. Nil handlers are
// skipped.
type Routes struct {
	Auth   *auth.Handler
	User   *user.Handler
	Dept   *dept.Handler
	Post   *post.Handler
	RBAC   *auth.RBACAuthorization
	Health *HealthHandler

	// Metrics is nil when metrics are disabled.
	Metrics         *middleware.Metrics
	MetricsPath     string
	MetricsGatherer prometheus.Gatherer

	APISpec        *swagger.Spec
	AllowedOrigins string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, rt Routes) {
	if rt.Logger == nil {
		rt.Logger = logger.LoggerWrapper()
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(rt.Logger))
	router.Use(middleware.CORS(rt.AllowedOrigins))
	if rt.Metrics != nil {
		router.Use(rt.Metrics.Middleware)
		router.Handle(rt.MetricsPath, promhttp.HandlerFor(rt.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	if rt.APISpec != nil {
		router.Get(swagger.SpecRoute, rt.APISpec.ServeHTTP)
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LoggingMiddleware(rt.Logger))

		if rt.Health != nil {
			r.Get("/health", rt.Health.Health)
			r.Get("/ping", rt.Health.Ping)
		}

		if rt.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", rt.Auth.Login)
			ar.Post("/refresh", rt.Auth.RefreshToken)
			ar.Post("/logout", rt.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(rt.Auth.AuthMiddleware)
			pr.Use(middleware.ActorContext)

			if rt.Post != nil && rt.RBAC != nil {
				pr.With(rt.RBAC.Middleware(auth.OpListPosts)).Get("/posts", rt.Post.GetPosts)
			}

			pr.Route("/users", func(ur chi.Router) {
				if rt.Dept != nil {
					ur.Get("/dept-tree", rt.Dept.DeptTree)
				}
				if rt.User == nil {
					return
				}
				ur.Get("/", rt.User.ListUsers)
				ur.Post("/", rt.User.CreateUser)
				ur.Put("/", rt.User.UpdateUser)
				ur.Get("/info", rt.User.NewUserInfo)
				ur.Get("/options", rt.User.UserOptions)
				ur.Put("/reset-password", rt.User.ResetPassword)
				ur.Put("/change-status", rt.User.ChangeStatus)
				ur.Put("/auth-role", rt.User.AssignRoles)
				ur.Put("/auth-post", rt.User.AssignPosts)
				ur.Get("/{userId}", rt.User.GetUser)
				ur.Get("/{userId}/auth-role", rt.User.AuthRoles)
				// comma separated ids share the {userId} segment
				ur.Delete("/{userId}", rt.User.DeleteUsers)
			})
		})
	})

	base := transport.NewBaseHandler(rt.Logger)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		base.HandleServiceError(w, appErrors.NewNotFoundError("route not found", "ROUTE_NOT_FOUND"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		base.WriteJSON(w, http.StatusMethodNotAllowed, appErrors.Response{Error: &appErrors.AppError{
			Type:    appErrors.ErrorTypeValidation,
			Code:    "METHOD_NOT_ALLOWED",
			Message: "method not allowed",
		}})
	})
}
