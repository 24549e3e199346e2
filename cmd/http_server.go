package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	authPostgres "github.com/frahmantamala/account-admin/internal/auth/postgres"
	"github.com/frahmantamala/account-admin/internal/core/database"
	"github.com/frahmantamala/account-admin/internal/core/events"
	"github.com/frahmantamala/account-admin/internal/dept"
	deptPostgres "github.com/frahmantamala/account-admin/internal/dept/postgres"
	"github.com/frahmantamala/account-admin/internal/post"
	postPostgres "github.com/frahmantamala/account-admin/internal/post/postgres"
	"github.com/frahmantamala/account-admin/internal/role"
	rolePostgres "github.com/frahmantamala/account-admin/internal/role/postgres"
	"github.com/frahmantamala/account-admin/internal/transport"
	"github.com/frahmantamala/account-admin/internal/transport/middleware"
	"github.com/frahmantamala/account-admin/internal/transport/rest"
	"github.com/frahmantamala/account-admin/internal/transport/swagger"
	"github.com/frahmantamala/account-admin/internal/user"
	userPostgres "github.com/frahmantamala/account-admin/internal/user/postgres"
	"github.com/frahmantamala/account-admin/pkg/logger"
)

var apiSpecPath string

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().StringVar(&apiSpecPath, "openapi", "api/openapi.yml", "OpenAPI document served at /openapi.yml")
}

type Dependencies struct {
	Config    *internal.Config
	DB        *gorm.DB
	SQLDB     *sql.DB
	Router    *chi.Mux
	EventBus  *events.EventBus
	DeptCache *deptPostgres.CachedDeptRepository
	Logger    *slog.Logger
}

func (d *Dependencies) Close() {
	d.EventBus.Wait()
	d.DeptCache.Close()
	if err := d.SQLDB.Close(); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
}

func startHTTPServer() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	deps, err := initializeDependencies(context.Background(), cfg, lg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("starting HTTP server", "address", addr, "driver", cfg.Database.Driver)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			lg.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	lg.Info("server stopped")
	return nil
}

func initializeDependencies(ctx context.Context, cfg *internal.Config, lg *slog.Logger) (*Dependencies, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sdb, err := database.SQLX(db)
	if err != nil {
		return nil, err
	}

	deptCache, err := deptPostgres.NewCachedDeptRepository(
		deptPostgres.NewDeptRepository(db, sdb),
		cfg.DataScope.CacheTTL,
		cfg.DataScope.CacheMaxEntries,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create department cache: %w", err)
	}

	perms := auth.NewPermissionChecker(lg)
	guard := auth.NewDataScopeGuard(deptCache, cfg.Security.SuperuserID, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(db), tokenGen, cfg.Security.BCryptCost, cfg.Security.SuperuserID, lg)

	roleService := role.NewService(rolePostgres.NewRoleRepository(db), lg)
	postService := post.NewService(postPostgres.NewPostRepository(db), lg)
	deptService := dept.NewService(deptCache, guard, perms, lg)

	bus := events.NewEventBus(lg)
	bus.SubscribeAudit(lg.With("component", "audit"))

	userService := user.NewService(user.Dependencies{
		Repo:      userPostgres.NewUserRepository(db),
		Guard:     guard,
		Perms:     perms,
		Roles:     roleService,
		Posts:     postService,
		Depts:     deptCache,
		Hasher:    authService,
		Publisher: bus,
		Logger:    lg,
	})

	base := transport.NewBaseHandler(lg)
	routes := rest.Routes{
		Auth:           auth.NewHandler(authService),
		User:           user.NewHandler(userService, lg),
		Dept:           dept.NewHandler(deptService, lg),
		Post:           post.NewHandler(base, postService),
		RBAC:           auth.NewRBACAuthorization(perms, lg),
		Health:         rest.NewHealthHandler(base, sqlDB, cfg.Database.Driver),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         lg,
	}

	if cfg.Observability.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewDBStatsCollector(sqlDB, cfg.Database.Driver),
		)
		routes.Metrics = middleware.NewMetrics(reg)
		routes.MetricsPath = cfg.Observability.Metrics.Path
		routes.MetricsGatherer = reg
	}

	if spec, err := swagger.Load(ctx, apiSpecPath); err != nil {
		lg.Warn("openapi document not served", "path", apiSpecPath, "error", err)
	} else {
		lg.Info("openapi document loaded", "version", spec.Version())
		routes.APISpec = spec
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, routes)

	return &Dependencies{
		Config:    cfg,
		DB:        db,
		SQLDB:     sqlDB,
		Router:    router,
		EventBus:  bus,
		DeptCache: deptCache,
		Logger:    lg,
	}, nil
}
