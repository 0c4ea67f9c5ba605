package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain errors keep their own codes.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "TOKEN_INVALID"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInvalidState    = "INVALID_STATE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps codes whose status cannot be derived from their shape
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	"INVALID_CREDENTIALS":   http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	"ACCOUNT_DEACTIVATED":   http.StatusForbidden,
	"SELF_REVIEW":           http.StatusForbidden,
	ErrCodeConflict:         http.StatusConflict,
	"HAS_USERS":             http.StatusConflict,
	"HAS_CHILDREN":          http.StatusConflict,
	"DOCUMENT_NUMBER_TAKEN": http.StatusConflict,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,

	"DISALLOWED_CONTENT_TYPE": http.StatusUnsupportedMediaType,
	"STORAGE_DISABLED":        http.StatusServiceUnavailable,
	"STORAGE_CHECK_FAILED":    http.StatusBadGateway,
	"UPLOAD_URL_FAILED":       http.StatusBadGateway,
	"DOWNLOAD_URL_FAILED":     http.StatusBadGateway,
	"IMPORT_TOO_LARGE":        http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the status for an error code. Codes outside the table
// are classified by their shape; anything else is a business rule violation.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "_EXISTS"),
		strings.HasPrefix(code, "ALREADY_"),
		strings.HasPrefix(code, "CONCURRENT_"),
		strings.HasPrefix(code, "OPTIMISTIC_LOCK"):
		return http.StatusConflict
	case strings.HasPrefix(code, "TOKEN_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "_ERROR"):
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}
