package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(config CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(CORS(config))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/api/v1/groups", ok)
	r.POST("/api/v1/notation/parse", ok)
	r.OPTIONS("/api/v1/notation/parse", ok)
	return r
}

func corsRequest(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	path := "/api/v1/groups"
	if method != http.MethodGet {
		path = "/api/v1/notation/parse"
	}
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCORS_PreflightRequest(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.example.com"}

	w := corsRequest(corsRouter(config), http.MethodOptions, "https://app.example.com")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Values("Vary"), "Access-Control-Request-Method")
	assert.Empty(t, w.Body.String())
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"exact", []string{"https://a.com", "https://b.com"}, "https://b.com", "https://b.com"},
		{"case insensitive", []string{"https://A.com"}, "https://a.com", "https://a.com"},
		{"disallowed", []string{"https://allowed.com"}, "https://evil.com", ""},
		{"wildcard", []string{"*"}, "https://any-origin.com", "*"},
		{"subdomain", []string{"*.example.com"}, "https://app.example.com", "https://app.example.com"},
		{"subdomain mismatch", []string{"*.example.com"}, "https://other.com", ""},
		{"no origin", []string{"https://a.com"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultCORSConfig()
			config.AllowedOrigins = tt.allowed

			w := corsRequest(corsRouter(config), http.MethodGet, tt.origin)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "ok", w.Body.String())
			assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_Credentials(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*"}
	config.AllowCredentials = true

	w := corsRequest(corsRouter(config), http.MethodGet, "https://specific.com")

	assert.Equal(t, "https://specific.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ExposedHeadersAndVary(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.example.com"}

	w := corsRequest(corsRouter(config), http.MethodGet, "https://app.example.com")

	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), HeaderRequestID)
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_MaxAge(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.example.com"}
	config.MaxAge = 3600

	w := corsRequest(corsRouter(config), http.MethodOptions, "https://app.example.com")
	assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
}

func TestDefaultCORSConfig(t *testing.T) {
	config := DefaultCORSConfig()

	assert.Empty(t, config.AllowedOrigins)
	assert.Contains(t, config.AllowedMethods, http.MethodGet)
	assert.Contains(t, config.AllowedMethods, http.MethodPost)
	assert.Contains(t, config.AllowedHeaders, "Content-Type")
	assert.Contains(t, config.ExposedHeaders, HeaderRequestID)
	assert.False(t, config.AllowCredentials)
	assert.Equal(t, 86400, config.MaxAge)
}
