package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBrotli_CompressesLargeBodies(t *testing.T) {
	body := strings.Repeat("exam results ", 500)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, body) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
	w := serve(r, req)

	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	require.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	require.Equal(t, body, string(plain))
}

func TestBrotli_SmallBodyPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Brotli())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := serve(r, req)

	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.Equal(t, "ok", w.Body.String())
}

func TestBrotli_ClientWithoutBrotli(t *testing.T) {
	body := strings.Repeat("x", 4096)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, body) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := serve(r, req)

	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.Equal(t, body, w.Body.String())
}

func TestRateLimiter_Refill(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(time.Minute)
	require.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	r := gin.New()
	r.POST("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
	w := serve(r, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	require.Equal(t, http.StatusOK, w.Code)
	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much longer than eight bytes")))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNoStoreAndRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)), NoStore())
	r.GET("/api/all-results", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/all-results", nil))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"path":"/api/all-results"`)
	require.Contains(t, buf.String(), `"status":404`)
}
