package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molnotation/internal/application/analysis"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// NotationHandler serves the parse, formula, groups and react endpoints.
type NotationHandler struct {
	svc analysis.Service
}

func NewNotationHandler(svc analysis.Service) *NotationHandler {
	return &NotationHandler{svc: svc}
}

// RegisterRoutes mounts the handler under /notation.
func (h *NotationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	n := rg.Group("/notation")
	n.POST("/parse", h.Parse)
	n.POST("/formula", h.Formula)
	n.POST("/groups", h.Groups)
	n.POST("/react", h.React)
}

// Parse handles POST /notation/parse and returns the full analysis.
func (h *NotationHandler) Parse(c *gin.Context) {
	var req mtypes.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.svc.Analyze(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

// FormulaView is one molecule in a formula response.
type FormulaView struct {
	Index     int     `json:"index"`
	Role      string  `json:"role"`
	Notation  string  `json:"notation"`
	Formula   string  `json:"formula"`
	Empirical string  `json:"empirical"`
	Condensed string  `json:"condensed"`
	MolarMass float64 `json:"molar_mass"`
}

// Formula handles POST /notation/formula.
func (h *NotationHandler) Formula(c *gin.Context) {
	var req mtypes.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Groups = false
	out, err := h.svc.Analyze(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]FormulaView, 0, len(out.Molecules))
	for _, m := range out.Molecules {
		views = append(views, FormulaView{
			Index:     m.Index,
			Role:      m.Role,
			Notation:  m.Notation,
			Formula:   m.Formula,
			Empirical: m.EmpiricalFormula,
			Condensed: m.CondensedFormula,
			MolarMass: m.MolarMass,
		})
	}
	writeJSON(c, http.StatusOK, views)
}

// GroupsView lists the functional groups found in one molecule.
type GroupsView struct {
	Index    int               `json:"index"`
	Notation string            `json:"notation"`
	Groups   []mtypes.GroupDTO `json:"groups"`
}

// Groups handles POST /notation/groups.
func (h *NotationHandler) Groups(c *gin.Context) {
	var req mtypes.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Groups = true
	out, err := h.svc.Analyze(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]GroupsView, 0, len(out.Molecules))
	for _, m := range out.Molecules {
		groups := m.Groups
		if groups == nil {
			groups = []mtypes.GroupDTO{}
		}
		views = append(views, GroupsView{Index: m.Index, Notation: m.Notation, Groups: groups})
	}
	writeJSON(c, http.StatusOK, views)
}

// React handles POST /notation/react.
func (h *NotationHandler) React(c *gin.Context) {
	var req mtypes.ReactRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.svc.React(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}
