package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molnotation/internal/app"
	"github.com/turtacn/molnotation/internal/config"
	"github.com/turtacn/molnotation/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *app.App {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Server.Mode = gin.TestMode
	if mutate != nil {
		mutate(cfg)
	}
	a, err := app.New(context.Background(), cfg, app.WithLogger(testutil.NewMockLogger()), app.Offline())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func serve(r http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_Routes(t *testing.T) {
	r := NewRouter(FromApp(newTestApp(t, nil), "v1.2.3"))

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/v1/notation/parse", `{"notation":"CCO"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/notation/formula", `{"notation":"CCO"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/notation/groups", `{"notation":"CCO"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/notation/react", `{"notation":"C=C","rule":1}`, http.StatusOK},
		{http.MethodGet, "/api/v1/reactions", "", http.StatusOK},
		{http.MethodGet, "/api/v1/groups", "", http.StatusOK},
		{http.MethodGet, "/api/v1/molecules?formula=C2H6O", "", http.StatusForbidden},
		{http.MethodPost, "/api/v1/jobs", `{"notation":"CCO"}`, http.StatusForbidden},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(r, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestNewRouter_RecordsMetricsByRoute(t *testing.T) {
	r := NewRouter(FromApp(newTestApp(t, nil), "test"))

	serve(r, http.MethodPost, "/api/v1/notation/parse", `{"notation":"CC"}`, nil)
	serve(r, http.MethodGet, "/api/v1/nowhere", "", nil)

	body := serve(r, http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, body, `molnote_http_requests_total{method="POST",path="/api/v1/notation/parse",status_code="200"} 1`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.Contains(t, body, "molnote_parse_total")
}

func TestNewRouter_MetricsDisabled(t *testing.T) {
	r := NewRouter(FromApp(newTestApp(t, func(c *config.Config) { c.Metrics.Enabled = false }), "test"))
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/metrics", "", nil).Code)
}

func TestNewRouter_CORS(t *testing.T) {
	r := NewRouter(FromApp(newTestApp(t, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"https://lab.example.com"}
	}), "test"))

	w := serve(r, http.MethodOptions, "/api/v1/notation/parse", "", map[string]string{
		"Origin":                        "https://lab.example.com",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://lab.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_BodyLimit(t *testing.T) {
	r := NewRouter(FromApp(newTestApp(t, func(c *config.Config) { c.Server.MaxBodySize = 32 }), "test"))

	body := `{"notation":"` + strings.Repeat("C", 64) + `"}`
	w := serve(r, http.MethodPost, "/api/v1/notation/parse", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewRouter_RequestTimeout(t *testing.T) {
	r := NewRouter(FromApp(newTestApp(t, func(c *config.Config) { c.Server.RequestTimeout = time.Nanosecond }), "test"))

	w := serve(r, http.MethodPost, "/api/v1/notation/groups", `{"notation":"CCCCCCCCCCO"}`, nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "NOTATION_004")
}

func TestNewRouter_RequestIDPropagates(t *testing.T) {
	r := NewRouter(FromApp(newTestApp(t, nil), "test"))

	w := serve(r, http.MethodPost, "/api/v1/notation/parse", `{"notation":"C"}`, map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.True(t, bytes.Contains(w.Body.Bytes(), []byte(`"request_id":"abc-123"`)))
}
