package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessagingError     ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Notation Error Codes
const (
	ErrCodeNotationSyntax   ErrorCode = "NOTATION_001"
	ErrCodeNotationSemantic ErrorCode = "NOTATION_002"
	ErrCodeNotationEmpty    ErrorCode = "NOTATION_003"
	ErrCodeMatchTimeout     ErrorCode = "NOTATION_004"
)

// Reaction Error Codes
const (
	ErrCodeReactionNotFound     ErrorCode = "REACTION_001"
	ErrCodeReactionInapplicable ErrorCode = "REACTION_002"
	ErrCodeReactionFailed       ErrorCode = "REACTION_003"
	ErrCodeReactionUnsupported  ErrorCode = "REACTION_004"
	ErrCodeReactantMissing      ErrorCode = "REACTION_005"
	ErrCodeGroupNotFound        ErrorCode = "REACTION_006"
	ErrCodeCatalogInvalid       ErrorCode = "REACTION_007"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeFeatureDisabled:    http.StatusForbidden,

	ErrCodeNotationSyntax:   http.StatusUnprocessableEntity,
	ErrCodeNotationSemantic: http.StatusUnprocessableEntity,
	ErrCodeNotationEmpty:    http.StatusBadRequest,
	ErrCodeMatchTimeout:     http.StatusGatewayTimeout,

	ErrCodeReactionNotFound:     http.StatusNotFound,
	ErrCodeReactionInapplicable: http.StatusUnprocessableEntity,
	ErrCodeReactionFailed:       http.StatusUnprocessableEntity,
	ErrCodeReactionUnsupported:  http.StatusNotImplemented,
	ErrCodeReactantMissing:      http.StatusBadRequest,
	ErrCodeGroupNotFound:        http.StatusNotFound,
	ErrCodeCatalogInvalid:       http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status for code, defaulting to 500.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := ErrorCodeHTTPStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Module returns the prefix of the code, e.g. "NOTATION" for "NOTATION_001".
func (c ErrorCode) Module() string {
	s := string(c)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}
