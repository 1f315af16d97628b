package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tinypath/tinypath/internal/middleware"
)

func capture(r *http.Request) middleware.RequestMeta {
	var meta middleware.RequestMeta

	handler := middleware.WithRequestMeta(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		meta = middleware.MetaFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), r)

	return meta
}

func TestWithRequestMeta(t *testing.T) {
	t.Run("uses the remote address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/docs", nil)
		req.RemoteAddr = "203.0.113.7:4711"
		req.Header.Set("User-Agent", "curl/8.0")
		req.Header.Set("Referer", "https://example.com")

		meta := capture(req)

		assert.Equal(t, "203.0.113.7", meta.ClientIP)
		assert.Equal(t, "curl/8.0", meta.UserAgent)
		assert.Equal(t, "https://example.com", meta.Referrer)
	})

	t.Run("prefers the first forwarded address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/docs", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")

		meta := capture(req)

		assert.Equal(t, "198.51.100.9", meta.ClientIP)
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/docs", nil)
		req.Header.Set("X-Real-IP", "198.51.100.10")

		meta := capture(req)

		assert.Equal(t, "198.51.100.10", meta.ClientIP)
	})
}

func TestMetaFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)

	assert.Equal(t, middleware.RequestMeta{}, middleware.MetaFromContext(req.Context()))
}
