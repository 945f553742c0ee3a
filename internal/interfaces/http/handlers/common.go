package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molnotation/internal/application/analysis"
	"github.com/turtacn/molnotation/internal/interfaces/http/middleware"
	"github.com/turtacn/molnotation/pkg/errors"
	"github.com/turtacn/molnotation/pkg/types/common"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// parseLimit reads the limit query parameter, clamped to [1, maxLimit].
func parseLimit(c *gin.Context) int {
	limit := defaultLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// bindJSON decodes the body into obj and answers 400 on failure.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		writeError(c, errors.InvalidParam("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// writeJSON wraps data in the success envelope.
func writeJSON(c *gin.Context, status int, data interface{}) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(status, resp)
}

// writeError maps err onto its HTTP status. Errors without a known code are
// masked so internals do not leak to clients.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	code := errors.GetCode(err)
	status := code.HTTPStatus()
	detail := analysis.ErrorDetail(err)
	if code == errors.CodeUnknown || code == errors.ErrCodeInternal {
		detail = &common.ErrorDetail{Code: string(errors.ErrCodeInternal), Message: "internal server error"}
		status = http.StatusInternalServerError
	}

	c.AbortWithStatusJSON(status, common.APIResponse[any]{
		Success:   false,
		Error:     detail,
		RequestID: middleware.GetRequestID(c),
		Timestamp: common.NewTimestamp(),
	})
}
