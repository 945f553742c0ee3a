package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molnotation/internal/application/analysis"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// CatalogHandler exposes the functional-group and reaction catalog.
type CatalogHandler struct {
	svc analysis.Service
}

func NewCatalogHandler(svc analysis.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reactions", h.Reactions)
	rg.GET("/groups", h.Groups)
}

// Reactions handles GET /reactions. The optional from parameter filters by
// the source group, given as id or repr.
func (h *CatalogHandler) Reactions(c *gin.Context) {
	rules := h.svc.Rules(c.Request.Context())
	if from := strings.TrimSpace(c.Query("from")); from != "" {
		rules = filterRules(rules, from)
	}
	writeJSON(c, http.StatusOK, rules)
}

// Groups handles GET /groups.
func (h *CatalogHandler) Groups(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.svc.Groups(c.Request.Context()))
}

func filterRules(rules []mtypes.RuleDTO, from string) []mtypes.RuleDTO {
	id, idErr := strconv.Atoi(from)
	out := make([]mtypes.RuleDTO, 0, len(rules))
	for _, r := range rules {
		if (idErr == nil && r.From.ID == id) || strings.EqualFold(r.From.Repr, from) {
			out = append(out, r)
		}
	}
	return out
}
