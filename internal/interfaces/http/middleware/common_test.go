package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(router http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	t.Run("empty whitelist sets no headers", func(t *testing.T) {
		router := gin.New()
		router.Use(CORS(DefaultCORSConfig()))
		router.GET("/test", ok)

		w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("whitelisted origin", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"https://app.example"}
		router := gin.New()
		router.Use(CORS(cfg))
		router.GET("/test", ok)

		w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "https://app.example"})
		assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), IdempotencyKeyHeader)

		w = serve(router, http.MethodGet, "/test", map[string]string{"Origin": "https://other.example"})
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard never sends credentials", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"*"}
		router := gin.New()
		router.Use(CORS(cfg))
		router.GET("/test", ok)

		w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "https://any.example"})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight ends with 204", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"https://app.example"}
		router := gin.New()
		router.Use(CORS(cfg))
		router.POST("/test", ok)

		w := serve(router, http.MethodOptions, "/test", map[string]string{"Origin": "https://app.example"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		seen = logger.RequestID(c.Request.Context())
		assert.Equal(t, seen, GetRequestID(c))
		c.Status(http.StatusOK)
	})

	t.Run("generates an id", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", nil)
		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 32)
		assert.Equal(t, id, seen)
	})

	t.Run("keeps the caller's id", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", map[string]string{RequestIDHeader: "abc-123"})
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces oversized ids", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", map[string]string{RequestIDHeader: strings.Repeat("x", 500)})
		assert.Len(t, w.Header().Get(RequestIDHeader), 32)
	})
}

func TestSecure(t *testing.T) {
	cfg := DefaultSecurityConfig()
	cfg.HSTSEnabled = true
	router := gin.New()
	router.Use(Secure(cfg))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/test", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestIdempotencyKey(t *testing.T) {
	var got string
	router := gin.New()
	router.Use(IdempotencyKey())
	router.POST("/test", func(c *gin.Context) {
		got = GetIdempotencyKey(c)
		c.Status(http.StatusOK)
	})

	w := serve(router, http.MethodPost, "/test", map[string]string{IdempotencyKeyHeader: "pay-42"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pay-42", got)

	w = serve(router, http.MethodPost, "/test", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, got)

	w = serve(router, http.MethodPost, "/test", map[string]string{IdempotencyKeyHeader: strings.Repeat("k", 256)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeError(t, w).Code)
}
