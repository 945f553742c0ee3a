package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molnotation/pkg/types/common"
)

// HealthReporter reports the state of every dependency.
type HealthReporter interface {
	Health(ctx context.Context) []common.ComponentHealth
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	reporter HealthReporter
	version  string
	startAt  time.Time
}

func NewHealthHandler(version string, reporter HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter, version: version, startAt: time.Now()}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
}

// LivenessResponse is the response for the liveness probe.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the response for the readiness probe.
type ReadinessResponse struct {
	Status     string                   `json:"status"`
	Components []common.ComponentHealth `json:"components"`
}

// Liveness always answers 200 while the process serves requests.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness answers 503 when an enabled dependency is down. Disabled
// dependencies do not count.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := h.reporter.Health(ctx)
	resp := ReadinessResponse{Status: "ready", Components: components}
	for _, comp := range components {
		if comp.Status == common.HealthDown {
			resp.Status = "not_ready"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}
