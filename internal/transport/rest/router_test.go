package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	authPostgres "github.com/frahmantamala/account-admin/internal/auth/postgres"
	"github.com/frahmantamala/account-admin/internal/core/database"
	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
	"github.com/frahmantamala/account-admin/internal/core/events"
	"github.com/frahmantamala/account-admin/internal/dept"
	deptPostgres "github.com/frahmantamala/account-admin/internal/dept/postgres"
	"github.com/frahmantamala/account-admin/internal/post"
	postPostgres "github.com/frahmantamala/account-admin/internal/post/postgres"
	"github.com/frahmantamala/account-admin/internal/role"
	rolePostgres "github.com/frahmantamala/account-admin/internal/role/postgres"
	"github.com/frahmantamala/account-admin/internal/testutil"
	"github.com/frahmantamala/account-admin/internal/transport"
	"github.com/frahmantamala/account-admin/internal/transport/middleware"
	"github.com/frahmantamala/account-admin/internal/transport/rest"
	"github.com/frahmantamala/account-admin/internal/transport/swagger"
	"github.com/frahmantamala/account-admin/internal/user"
	userPostgres "github.com/frahmantamala/account-admin/internal/user/postgres"
)

const (
	idAdmin  int64 = 1
	idMember int64 = 4
	idEngDev int64 = 12
)

var _ = Describe("Router", func() {
	var (
		server *httptest.Server
		bus    *events.EventBus
		spec   *swagger.Spec
	)

	do := func(method, path, token string, body interface{}) *http.Response {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequest(method, server.URL+path, reader)
		Expect(err).NotTo(HaveOccurred())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	decode := func(resp *http.Response, dst interface{}) {
		Expect(json.NewDecoder(resp.Body).Decode(dst)).To(Succeed())
	}

	login := func(userName string) string {
		resp := do(http.MethodPost, "/api/v1/auth/login", "", auth.LoginDTO{UserName: userName, Password: testutil.Password})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var tokens auth.AuthTokens
		decode(resp, &tokens)
		Expect(tokens.AccessToken).NotTo(BeEmpty())
		return tokens.AccessToken
	}

	BeforeEach(func() {
		db, err := testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.SeedReference(db)).To(Succeed())

		_, err = testutil.CreateUser(db, idAdmin, testutil.DeptHQ, "admin", testutil.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		_, err = testutil.CreateUser(db, idMember, testutil.DeptBackend, "member", testutil.RoleSelfOnly)
		Expect(err).NotTo(HaveOccurred())
		_, err = testutil.CreateUser(db, idEngDev, testutil.DeptEngineering, "eng_dev")
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Create(&roleDatamodel.SysRolePermission{RoleID: testutil.RoleSelfOnly, Permission: "system:user:list"}).Error).To(Succeed())

		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sdb, err := database.SQLX(db)
		Expect(err).NotTo(HaveOccurred())
		depts := deptPostgres.NewDeptRepository(db, sdb)

		perms := auth.NewPermissionChecker(discardLogger)
		guard := auth.NewDataScopeGuard(depts, testutil.SuperuserID, discardLogger)
		tokens := auth.NewJWTTokenGenerator(
			"router-test-access-secret-0123456789",
			"router-test-refresh-secret-0123456789",
			time.Minute, time.Hour,
		)
		authSvc := auth.NewService(authPostgres.NewRepository(db), tokens, bcrypt.MinCost, testutil.SuperuserID, discardLogger)
		roles := role.NewService(rolePostgres.NewRoleRepository(db), discardLogger)
		posts := post.NewService(postPostgres.NewPostRepository(db), discardLogger)

		bus = events.NewEventBus(discardLogger)
		userSvc := user.NewService(user.Dependencies{
			Repo:      userPostgres.NewUserRepository(db),
			Guard:     guard,
			Perms:     perms,
			Roles:     roles,
			Posts:     posts,
			Depts:     depts,
			Hasher:    authSvc,
			Publisher: bus,
			Logger:    discardLogger,
		})

		spec, err = swagger.Load(context.Background(), "../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())

		reg := prometheus.NewRegistry()
		base := transport.NewBaseHandler(discardLogger)

		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Routes{
			Auth:            auth.NewHandler(authSvc),
			User:            user.NewHandler(userSvc, discardLogger),
			Dept:            dept.NewHandler(dept.NewService(depts, guard, perms, discardLogger), discardLogger),
			Post:            post.NewHandler(base, posts),
			RBAC:            auth.NewRBACAuthorization(perms, discardLogger),
			Health:          rest.NewHealthHandler(base, sqlDB, "sqlite"),
			Metrics:         middleware.NewMetrics(reg),
			MetricsPath:     "/metrics",
			MetricsGatherer: reg,
			APISpec:         spec,
			AllowedOrigins:  "*",
			Logger:          discardLogger,
		})

		server = httptest.NewServer(router)
		DeferCleanup(func() {
			server.Close()
			bus.Wait()
		})
	})

	It("answers ping and health without a token", func() {
		Expect(do(http.MethodGet, "/api/v1/ping", "", nil).StatusCode).To(Equal(http.StatusOK))

		resp := do(http.MethodGet, "/api/v1/health", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var health rest.HealthResponse
		decode(resp, &health)
		Expect(health.Status).To(Equal(rest.HealthHealthy))
		Expect(health.Components).To(HaveKey("sqlite"))
	})

	It("echoes or assigns a request id", func() {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/ping", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set(middleware.RequestIDHeader, "req-123")
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.Header.Get(middleware.RequestIDHeader)).To(Equal("req-123"))

		Expect(do(http.MethodGet, "/api/v1/ping", "", nil).Header.Get(middleware.RequestIDHeader)).NotTo(BeEmpty())
	})

	It("rejects protected routes without a token", func() {
		resp := do(http.MethodGet, "/api/v1/users/", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

		var body appErrors.Response
		decode(resp, &body)
		Expect(body.Error.Code).To(Equal(appErrors.ErrCodeInvalidToken))
	})

	It("rejects a wrong password", func() {
		resp := do(http.MethodPost, "/api/v1/auth/login", "", auth.LoginDTO{UserName: "admin", Password: "wrong-password"})
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("lists every user for the superuser", func() {
		resp := do(http.MethodGet, "/api/v1/users/", login("admin"), nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result user.ListResult
		decode(resp, &result)
		Expect(result.Total).To(Equal(int64(3)))
	})

	It("limits a self only caller to their own row", func() {
		resp := do(http.MethodGet, "/api/v1/users/", login("member"), nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result user.ListResult
		decode(resp, &result)
		Expect(result.Rows).To(HaveLen(1))
		Expect(result.Rows[0].ID).To(Equal(idMember))
	})

	It("serves scope filtered user options", func() {
		resp := do(http.MethodGet, "/api/v1/users/options", login("member"), nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var opts []user.Option
		decode(resp, &opts)
		Expect(opts).To(HaveLen(1))
		Expect(opts[0].UserID).To(Equal(idMember))
		Expect(opts[0].UserName).To(Equal("member"))
	})

	It("denies list to a caller without the permission", func() {
		resp := do(http.MethodGet, "/api/v1/users/", login("eng_dev"), nil)
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("creates, conflicts and deletes through the API", func() {
		token := login("admin")
		create := user.CreateUserDTO{
			DeptID:   testutil.DeptEngineering,
			UserName: "api_user",
			NickName: "API",
			Password: "secret123",
			Phone:    "13800000001",
			PostIDs:  []int64{testutil.PostEngineer},
		}

		resp := do(http.MethodPost, "/api/v1/users/", token, create)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp = do(http.MethodPost, "/api/v1/users/", token, create)
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		var conflict appErrors.Response
		decode(resp, &conflict)
		Expect(conflict.Error.Code).To(Equal(appErrors.ErrCodeUserNameTaken))
		Expect(conflict.Error.Message).To(Equal("add user 'api_user' failed: user name already exists"))

		resp = do(http.MethodGet, "/api/v1/users/?user_name=api_user", token, nil)
		var result user.ListResult
		decode(resp, &result)
		Expect(result.Rows).To(HaveLen(1))
		created := result.Rows[0].ID

		resp = do(http.MethodDelete, "/api/v1/users/1", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

		resp = do(http.MethodDelete, "/api/v1/users/"+strconv.FormatInt(created, 10), token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("exposes request metrics by route pattern", func() {
		do(http.MethodGet, "/api/v1/ping", "", nil)

		resp := do(http.MethodGet, "/metrics", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring("account_admin_http_requests_total"))
		Expect(string(raw)).To(ContainSubstring("/ping"))
	})

	It("answers unknown routes with a JSON error", func() {
		resp := do(http.MethodGet, "/api/v1/nope", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("application/json"))
	})

	It("serves an OpenAPI document that declares the mounted routes", func() {
		resp := do(http.MethodGet, swagger.SpecRoute, "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		mounted := []struct{ method, path string }{
			{http.MethodGet, "/api/v1/ping"},
			{http.MethodPost, "/api/v1/auth/login"},
			{http.MethodGet, "/api/v1/posts"},
			{http.MethodGet, "/api/v1/users/dept-tree"},
			{http.MethodGet, "/api/v1/users/options"},
			{http.MethodGet, "/api/v1/users/"},
			{http.MethodPost, "/api/v1/users/"},
			{http.MethodPut, "/api/v1/users/"},
			{http.MethodPut, "/api/v1/users/reset-password"},
			{http.MethodPut, "/api/v1/users/change-status"},
			{http.MethodPut, "/api/v1/users/auth-role"},
			{http.MethodPut, "/api/v1/users/auth-post"},
			{http.MethodGet, "/api/v1/users/{userId}"},
			{http.MethodDelete, "/api/v1/users/{userId}"},
			{http.MethodGet, "/api/v1/users/{userId}/auth-role"},
		}
		for _, m := range mounted {
			Expect(spec.HasOperation(m.method, m.path)).To(BeTrue(), m.method+" "+m.path)
		}
	})
})

