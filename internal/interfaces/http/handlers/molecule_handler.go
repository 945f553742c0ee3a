package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molnotation/internal/application/analysis"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// MoleculeHandler serves lookups in the molecule graph and asynchronous
// analysis jobs. Both answer 403 when their backend is disabled.
type MoleculeHandler struct {
	svc analysis.Service
}

func NewMoleculeHandler(svc analysis.Service) *MoleculeHandler {
	return &MoleculeHandler{svc: svc}
}

func (h *MoleculeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/molecules", h.FindByFormula)
	rg.POST("/jobs", h.Submit)
}

// FindByFormula handles GET /molecules?formula=C2H6O&limit=20 and returns
// the canonical notations stored for that formula.
func (h *MoleculeHandler) FindByFormula(c *gin.Context) {
	found, err := h.svc.FindByFormula(c.Request.Context(), c.Query("formula"), parseLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if found == nil {
		found = []string{}
	}
	writeJSON(c, http.StatusOK, gin.H{"formula": c.Query("formula"), "notations": found})
}

// Submit handles POST /jobs. The analysis runs on a worker; the response
// only carries the job id.
func (h *MoleculeHandler) Submit(c *gin.Context) {
	var req mtypes.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.svc.Submit(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, gin.H{"job_id": id})
}
