package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molnotation/internal/testutil"
)

func loggedRouter(log *testutil.MockLogger, config LoggingConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogging(log, config), Recovery(log))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequestLogging_Levels(t *testing.T) {
	tests := []struct {
		path   string
		status int
		level  string
		msg    string
	}{
		{"/ok", http.StatusOK, "info", "HTTP request completed"},
		{"/bad", http.StatusUnprocessableEntity, "warn", "HTTP request completed with client error"},
		{"/boom", http.StatusInternalServerError, "error", "HTTP request completed with server error"},
		{"/slow", http.StatusOK, "warn", "HTTP request completed (slow)"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			log := testutil.NewMockLogger()
			config := DefaultLoggingConfig()
			config.SlowThreshold = time.Millisecond
			if tt.path != "/slow" {
				config.SlowThreshold = time.Hour
			}

			w := httptest.NewRecorder()
			loggedRouter(log, config).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.True(t, log.HasMessage(tt.level, tt.msg), "messages: %v", log.GetMessages())
			status, ok := log.Field(tt.msg, "status")
			require.True(t, ok)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestRequestLogging_PanicIsLogged(t *testing.T) {
	log := testutil.NewMockLogger()
	w := httptest.NewRecorder()
	loggedRouter(log, DefaultLoggingConfig()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, log.HasMessage("error", "panic recovered"))
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	log := testutil.NewMockLogger()
	w := httptest.NewRecorder()
	loggedRouter(log, DefaultLoggingConfig()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, log.GetMessages())
}

func TestRequestID(t *testing.T) {
	log := testutil.NewMockLogger()
	r := loggedRouter(log, DefaultLoggingConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	id, ok := log.Field("HTTP request completed", "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-42", id)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}
