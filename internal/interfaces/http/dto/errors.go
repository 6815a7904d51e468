package dto

import (
	"net/http"

	"github.com/libraria/acquisitions/internal/domain/shared"
)

// General error codes
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeUpstream   = "ERR_UPSTREAM"
)

// errorCodeHTTPStatus maps the engine's domain error codes to HTTP
// status codes. Validation failures surface as 422 so the caller sees
// the code and parameters, not a transport-level error.
var errorCodeHTTPStatus = map[string]int{
	shared.CodeBudgetExpenseClassNotFound: http.StatusUnprocessableEntity,
	shared.CodeInactiveExpenseClass:       http.StatusUnprocessableEntity,
	shared.CodeInvalidLineNumber:          http.StatusBadRequest,
	shared.CodeCurrencyMismatch:           http.StatusBadRequest,
	shared.CodeExchangeRateUnavailable:    http.StatusUnprocessableEntity,
	shared.CodeFiscalYearNotFound:         http.StatusUnprocessableEntity,
	shared.CodeBudgetNotFound:             http.StatusUnprocessableEntity,
	"NOT_FOUND":                           http.StatusNotFound,
	"INVALID_INPUT":                       http.StatusBadRequest,
	"INVALID_STATE":                       http.StatusConflict,
	ErrCodeBadRequest:                     http.StatusBadRequest,
	ErrCodeUpstream:                       http.StatusBadGateway,
	ErrCodeInternal:                       http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
