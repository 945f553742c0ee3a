package analysis

import (
	"github.com/turtacn/molnotation/pkg/errors"
	"github.com/turtacn/molnotation/pkg/types/common"
)

// ErrorDetail renders err for API responses and job results. Notation errors
// carry the offending offset and span and an underlined copy of the input.
func ErrorDetail(err error) *common.ErrorDetail {
	if err == nil {
		return nil
	}
	d := &common.ErrorDetail{Code: string(errors.GetCode(err)), Message: err.Error()}
	if ae, ok := err.(*errors.AppError); ok && ae.Message != "" {
		d.Message = ae.Message
	}
	if pe, ok := errors.AsParseError(err); ok {
		d.Message = pe.Error()
		d.Details = map[string]interface{}{
			"kind":   pe.Kind.String(),
			"offset": pe.Offset,
			"span":   pe.Span,
		}
		if u := pe.Underline(); u != "" {
			d.Details["underline"] = u
		}
	}
	return d
}
