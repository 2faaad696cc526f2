package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ProhorTaim/Egregoria/pkg/logger"
)

func newRouter(t *testing.T) (*gin.Engine, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger.Configure(&buf, true)
	logger.Log = logger.Log.Level(zerolog.DebugLevel)
	t.Cleanup(logger.Discard)

	r := gin.New()
	r.Use(Logger("/files", "/health"), Recovery())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/files/*path", func(c *gin.Context) { c.String(http.StatusOK, "body") })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	return r, &buf
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLogger_SkipsHealth(t *testing.T) {
	r, buf := newRouter(t)

	assert.Equal(t, http.StatusOK, serve(r, "/health").Code)
	assert.Empty(t, buf.String())
}

func TestLogger_AssetField(t *testing.T) {
	r, buf := newRouter(t)

	assert.Equal(t, http.StatusOK, serve(r, "/files/assets/ui/road.png").Code)
	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "asset=assets/ui/road.png")
	assert.Contains(t, out, "status=200")
}

func TestLogger_ClientErrorsWarn(t *testing.T) {
	r, buf := newRouter(t)

	assert.Equal(t, http.StatusNotFound, serve(r, "/missing").Code)
	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "path=/missing")
}

func TestRecovery(t *testing.T) {
	r, buf := newRouter(t)

	w := serve(r, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "recovered from panic")
	assert.Contains(t, buf.String(), "ERR")
}
