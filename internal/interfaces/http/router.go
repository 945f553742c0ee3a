package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molnotation/internal/app"
	"github.com/turtacn/molnotation/internal/application/analysis"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molnotation/internal/interfaces/http/handlers"
	"github.com/turtacn/molnotation/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the dependencies of the route tree.
type RouterConfig struct {
	Service analysis.Service
	Logger  logging.Logger
	Version string

	// Recorder receives per-request metrics; nil disables them.
	Recorder middleware.HTTPRecorder
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxBodySize    int64
	// Mode is the gin mode; empty keeps the current one.
	Mode string
}

// FromApp derives a RouterConfig from an assembled App.
func FromApp(a *app.App, version string) RouterConfig {
	cfg := RouterConfig{
		Service:        a.Service,
		Logger:         a.Logger,
		Version:        version,
		Recorder:       a.Recorder,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		RequestTimeout: a.Config.Server.RequestTimeout,
		MaxBodySize:    a.Config.Server.MaxBodySize,
		Mode:           a.Config.Server.Mode,
	}
	if a.Config.Metrics.Enabled {
		cfg.MetricsHandler = a.Metrics.Handler()
	}
	return cfg
}

// NewRouter builds the complete route tree:
//
//	GET  /healthz, /readyz, /metrics
//	POST /api/v1/notation/{parse,formula,groups,react}
//	GET  /api/v1/reactions, /api/v1/groups, /api/v1/molecules
//	POST /api/v1/jobs
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Recorder != nil {
		r.Use(middleware.Metrics(cfg.Recorder))
	}
	if len(cfg.AllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.AllowedOrigins
		r.Use(middleware.CORS(cors))
	}

	handlers.NewHealthHandler(cfg.Version, cfg.Service).RegisterRoutes(r)
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1", middleware.Timeout(cfg.RequestTimeout), middleware.BodyLimit(cfg.MaxBodySize))
	handlers.NewNotationHandler(cfg.Service).RegisterRoutes(api)
	handlers.NewCatalogHandler(cfg.Service).RegisterRoutes(api)
	handlers.NewMoleculeHandler(cfg.Service).RegisterRoutes(api)

	return r
}
