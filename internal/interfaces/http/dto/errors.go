package dto

import (
	"errors"
	"net/http"
	"strings"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/arflow/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
)

// Authentication error codes
const (
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeTokenExpired       = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked       = "ERR_TOKEN_REVOKED"
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeAccountLocked      = "ERR_ACCOUNT_LOCKED"
	ErrCodeAccountDisabled    = "ERR_ACCOUNT_DISABLED"
)

// Resource error codes
const (
	ErrCodeNotFound              = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists         = "ERR_ALREADY_EXISTS"
	ErrCodeConflict              = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict   = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeSyncInProgress        = "ERR_SYNC_IN_PROGRESS"
	ErrCodeDuplicateSubmission   = "ERR_DUPLICATE_SUBMISSION"
	ErrCodeInvalidState          = "ERR_INVALID_STATE"
	ErrCodeBusinessRule          = "ERR_BUSINESS_RULE"
	ErrCodePaymentDeclined       = "ERR_PAYMENT_DECLINED"
	ErrCodeNotConfigured         = "ERR_NOT_CONFIGURED"
	ErrCodeUpstream              = "ERR_UPSTREAM"
	ErrCodeUpstreamUnavailable   = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidSignature      = "ERR_INVALID_SIGNATURE"
	ErrCodeRefundNotAllowed      = "ERR_REFUND_NOT_ALLOWED"
	ErrCodeRequestEntityTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeTokenRevoked:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeAccountLocked:      http.StatusLocked,
	ErrCodeAccountDisabled:    http.StatusForbidden,

	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeAlreadyExists:         http.StatusConflict,
	ErrCodeConflict:              http.StatusConflict,
	ErrCodeConcurrencyConflict:   http.StatusConflict,
	ErrCodeSyncInProgress:        http.StatusConflict,
	ErrCodeDuplicateSubmission:   http.StatusConflict,
	ErrCodeInvalidState:          http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:          http.StatusUnprocessableEntity,
	ErrCodePaymentDeclined:       http.StatusPaymentRequired,
	ErrCodeNotConfigured:         http.StatusUnprocessableEntity,
	ErrCodeUpstream:              http.StatusBadGateway,
	ErrCodeUpstreamUnavailable:   http.StatusServiceUnavailable,
	ErrCodeInvalidSignature:      http.StatusBadRequest,
	ErrCodeRefundNotAllowed:      http.StatusUnprocessableEntity,
	ErrCodeRequestEntityTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown ERR_ codes are treated as business rule violations; anything
// else is an internal error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "ERR_") {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// domainCodeMapping maps domain error codes that do not follow the
// suffix conventions handled in NormalizeErrorCode
var domainCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"OPTIMISTIC_LOCK_ERROR":  ErrCodeConcurrencyConflict,
	"SYNC_IN_PROGRESS":       ErrCodeSyncInProgress,
	"DUPLICATE_SUBMISSION":   ErrCodeDuplicateSubmission,
	"PAYMENT_DECLINED":       ErrCodePaymentDeclined,
	"INVALID_CREDENTIALS":    ErrCodeInvalidCredentials,
	"ACCOUNT_LOCKED":         ErrCodeAccountLocked,
	"ACCOUNT_DISABLED":       ErrCodeAccountDisabled,
	"ORGANIZATION_SUSPENDED": ErrCodeAccountDisabled,
	"TOKEN_EXPIRED":          ErrCodeTokenExpired,
	"TOKEN_INVALID":          ErrCodeTokenInvalid,
	"TOKEN_REVOKED":          ErrCodeTokenRevoked,
	"TOKEN_MAX_REFRESH":      ErrCodeTokenExpired,
	"INCOMPLETE_SETTINGS":    ErrCodeNotConfigured,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"INTERNAL_ERROR":         ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the ERR_ format.
// Entity specific codes fold into their family: ORDER_NOT_FOUND becomes
// ERR_NOT_FOUND, CUSTOMER_EXISTS becomes ERR_ALREADY_EXISTS and
// INVALID_AMOUNT becomes ERR_INVALID_INPUT. Remaining codes keep their
// name behind the ERR_ prefix and are reported as business rule failures.
func NormalizeErrorCode(code string) string {
	if code == "" {
		return ErrCodeUnknown
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	if mapped, ok := domainCodeMapping[code]; ok {
		return mapped
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return ErrCodeNotFound
	case strings.HasSuffix(code, "_EXISTS"):
		return ErrCodeAlreadyExists
	case strings.HasPrefix(code, "INVALID_"):
		return ErrCodeInvalidInput
	}
	return "ERR_" + code
}

// ResolvedError is an error ready to be written to the client
type ResolvedError struct {
	Status  int
	Code    string
	Message string
	// Internal is set when the message is generic and the cause should
	// only be logged
	Internal bool
}

const internalErrorMessage = "An unexpected error occurred"

// ResolveError classifies err into a status, code and client message.
// Domain errors keep their message. Gateway and ERP failures surface the
// upstream message. Anything else is an opaque 500.
func ResolveError(err error) ResolvedError {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := NormalizeErrorCode(domainErr.Code)
		return ResolvedError{Status: GetHTTPStatus(code), Code: code, Message: domainErr.Message}
	}

	if code, ok := upstreamErrorCode(err); ok {
		return ResolvedError{Status: GetHTTPStatus(code), Code: code, Message: err.Error()}
	}

	return ResolvedError{
		Status:   http.StatusInternalServerError,
		Code:     ErrCodeInternal,
		Message:  internalErrorMessage,
		Internal: true,
	}
}

func upstreamErrorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, finance.ErrGatewayDeclined):
		return ErrCodePaymentDeclined, true
	case errors.Is(err, finance.ErrGatewayNotConfigured),
		errors.Is(err, finance.ErrGatewayNotEnabled),
		errors.Is(err, integration.ErrERPNotConfigured):
		return ErrCodeNotConfigured, true
	case errors.Is(err, finance.ErrGatewayUnavailable),
		errors.Is(err, integration.ErrERPUnavailable):
		return ErrCodeUpstreamUnavailable, true
	case errors.Is(err, finance.ErrGatewayInvalidCallback):
		return ErrCodeInvalidSignature, true
	case errors.Is(err, finance.ErrRefundNotAllowed):
		return ErrCodeRefundNotAllowed, true
	case errors.Is(err, finance.ErrGatewayRequestFailed),
		errors.Is(err, finance.ErrGatewayInvalidResponse),
		errors.Is(err, integration.ErrERPRequestFailed),
		errors.Is(err, integration.ErrERPInvalidResponse),
		errors.Is(err, integration.ErrERPAuthFailed):
		return ErrCodeUpstream, true
	}
	return "", false
}
