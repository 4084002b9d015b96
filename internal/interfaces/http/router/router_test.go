package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echoRegistrar mounts GET <prefix>/ping answering with its body
type echoRegistrar struct {
	prefix string
	body   string
}

func (e *echoRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(e.prefix+"/ping", func(c *gin.Context) {
		c.String(http.StatusOK, e.body)
	})
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouter(t *testing.T) {
	t.Run("defaults to v1", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine).
			Register(&echoRegistrar{prefix: "/invoices", body: "ok"}).
			Setup()

		assert.Equal(t, http.StatusOK, get(engine, "/api/v1/invoices/ping").Code)
	})

	t.Run("version option changes the prefix", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine, WithAPIVersion("v2")).
			Register(&echoRegistrar{prefix: "/invoices", body: "ok"}).
			Setup()

		assert.Equal(t, http.StatusOK, get(engine, "/api/v2/invoices/ping").Code)
		assert.Equal(t, http.StatusNotFound, get(engine, "/api/v1/invoices/ping").Code)
	})

	t.Run("chained registrars all mount", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine).
			Register(&echoRegistrar{prefix: "/invoices", body: "invoices"}).
			Register(&echoRegistrar{prefix: "/receipts", body: "receipts"}).
			Setup()

		for path, body := range map[string]string{
			"/api/v1/invoices/ping": "invoices",
			"/api/v1/receipts/ping": "receipts",
		} {
			w := get(engine, path)
			require.Equal(t, http.StatusOK, w.Code, path)
			assert.Equal(t, body, w.Body.String())
		}
	})

	t.Run("routes stay unmounted until Setup", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine).Register(&echoRegistrar{prefix: "/invoices", body: "ok"})

		assert.Equal(t, http.StatusNotFound, get(engine, "/api/v1/invoices/ping").Code)
	})
}
