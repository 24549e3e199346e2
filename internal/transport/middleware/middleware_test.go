package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	"github.com/frahmantamala/account-admin/pkg/logger"
)

var _ = Describe("Logging", func() {
	It("masks sensitive JSON keys at any depth", func() {
		out := filterSensitiveBody([]byte(`{"user_name":"alice","password":"p","nested":[{"refresh_token":"t","phone":"1"}]}`))
		Expect(out).To(ContainSubstring(`"user_name":"alice"`))
		Expect(out).To(ContainSubstring(`"password":"[FILTERED]"`))
		Expect(out).To(ContainSubstring(`"refresh_token":"[FILTERED]"`))
		Expect(out).To(ContainSubstring(`"phone":"1"`))
		Expect(out).NotTo(ContainSubstring(`"p"`))
	})

	It("masks non JSON bodies that mention a secret", func() {
		Expect(filterSensitiveBody([]byte("password=abc"))).To(Equal("[FILTERED]"))
		Expect(filterSensitiveBody([]byte("hello"))).To(Equal("hello"))
		Expect(filterSensitiveBody(nil)).To(BeEmpty())
	})

	It("masks sensitive headers", func() {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		h.Set("X-Request-ID", "r1")
		filtered := filterSensitiveHeaders(h)
		Expect(filtered["Authorization"]).To(Equal("[FILTERED]"))
		Expect(filtered["X-Request-Id"]).To(Equal("r1"))
	})

	It("caps the captured body", func() {
		var buf bytes.Buffer
		lw := &limitedWriter{buf: &buf, max: 4}
		n, err := lw.Write([]byte("abcdef"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(6))
		Expect(buf.String()).To(Equal("abcd"))
	})

	It("logs the request id and failure bodies through the context logger", func() {
		var out bytes.Buffer
		lg := slog.New(slog.NewTextHandler(&out, nil))

		handler := RequestID(LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad"}`))
		})))

		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"password":"hunter2"}`))
		req.Header.Set(RequestIDHeader, "req-9")
		rec := httptest.NewRecorder()

		// RequestID derives the request logger from the one already in context
		ctxLogger := logger.Into(req.Context(), lg)
		handler.ServeHTTP(rec, req.WithContext(ctxLogger))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(out.String()).To(ContainSubstring("request_id=req-9"))
		Expect(out.String()).To(ContainSubstring("bad"))
		Expect(out.String()).NotTo(ContainSubstring("hunter2"))
	})
})

var _ = Describe("RequestID", func() {
	It("stores the id in the request context", func() {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = internal.RequestIDFromContext(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(seen).NotTo(BeEmpty())
		Expect(rec.Header().Get(RequestIDHeader)).To(Equal(seen))
	})

	It("replaces oversized ids", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
		RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)
		Expect(rec.Header().Get(RequestIDHeader)).To(HaveLen(36))
	})
})

var _ = Describe("ActorContext", func() {
	It("adds the principal to the request logger", func() {
		var out bytes.Buffer
		base := slog.New(slog.NewTextHandler(&out, nil))

		handler := ActorContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.From(r.Context()).Info("inside")
		}))

		ctx := logger.Into(auth.ContextWithPrincipal(httptest.NewRequest(http.MethodGet, "/", nil).Context(),
			&auth.Principal{ID: 7, UserName: "alice"}), base)
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

		Expect(out.String()).To(ContainSubstring("actor_id=7"))
		Expect(out.String()).To(ContainSubstring("actor=alice"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into a JSON 500", func() {
		handler := RecoveryMiddleware(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(
			http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring(`"INTERNAL_ERROR"`))
	})
})
