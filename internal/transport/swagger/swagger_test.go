package swagger_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/account-admin/internal/transport/swagger"
)

const minimalDoc = `
openapi: 3.0.3
info:
  title: test
  version: 2.1.0
paths:
  /api/v1/users/{userId}:
    parameters:
      - name: userId
        in: path
        required: true
        schema:
          type: string
    get:
      responses:
        "200":
          description: ok
`

var _ = Describe("Spec", func() {
	ctx := context.Background()

	It("parses a valid document", func() {
		spec, err := swagger.Parse(ctx, []byte(minimalDoc))
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.Version()).To(Equal("2.1.0"))
		Expect(spec.HasOperation(http.MethodGet, "/api/v1/users/{userId}")).To(BeTrue())
		Expect(spec.HasOperation(http.MethodDelete, "/api/v1/users/{userId}")).To(BeFalse())
		Expect(spec.HasOperation(http.MethodGet, "/api/v1/roles")).To(BeFalse())
	})

	It("rejects a document without responses", func() {
		_, err := swagger.Parse(ctx, []byte(`
openapi: 3.0.3
info:
  title: broken
  version: 1.0.0
paths:
  /x:
    get: {}
`))
		Expect(err).To(MatchError(ContainSubstring("invalid openapi spec")))
	})

	It("rejects unreadable files", func() {
		_, err := swagger.Load(ctx, "does-not-exist.yml")
		Expect(err).To(MatchError(ContainSubstring("read openapi spec")))
	})

	It("loads the shipped API document", func() {
		spec, err := swagger.Load(ctx, "../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.Version()).To(Equal("1.0.0"))
	})

	It("serves the raw document", func() {
		spec, err := swagger.Parse(ctx, []byte(minimalDoc))
		Expect(err).NotTo(HaveOccurred())

		rec := httptest.NewRecorder()
		spec.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, swagger.SpecRoute, nil))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/yaml"))
		Expect(rec.Body.String()).To(Equal(minimalDoc))
	})
})
