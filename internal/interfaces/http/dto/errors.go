package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeCustomerMismatch is used when a receipt or invoice crosses customers
	ErrCodeCustomerMismatch = "ERR_CUSTOMER_MISMATCH"
	// ErrCodeExceedsOutstanding is used when an allocation exceeds the invoice balance
	ErrCodeExceedsOutstanding = "ERR_EXCEEDS_OUTSTANDING"
	// ErrCodeHasAllocations is used when editing a receipt whose allocations still stand
	ErrCodeHasAllocations = "ERR_HAS_ALLOCATIONS"
	// ErrCodeHasPayments is used when cancelling an invoice that received payments
	ErrCodeHasPayments = "ERR_HAS_PAYMENTS"
	// ErrCodeNoPaymentHistory is used when scoring a customer without payments
	ErrCodeNoPaymentHistory = "ERR_NO_PAYMENT_HISTORY"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:       http.StatusUnprocessableEntity,
	ErrCodeCustomerMismatch:   http.StatusUnprocessableEntity,
	ErrCodeExceedsOutstanding: http.StatusUnprocessableEntity,
	ErrCodeHasAllocations:     http.StatusUnprocessableEntity,
	ErrCodeHasPayments:        http.StatusUnprocessableEntity,
	ErrCodeNoPaymentHistory:   http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the standardized wire codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"ALREADY_EXISTS":            ErrCodeAlreadyExists,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"OPTIMISTIC_LOCK_ERROR":     ErrCodeConcurrencyConflict,
	"INVALID_STATE":             ErrCodeInvalidState,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"CUSTOMER_MISMATCH":         ErrCodeCustomerMismatch,
	"EXCEEDS_OUTSTANDING":       ErrCodeExceedsOutstanding,
	"EXCEEDS_UNALLOCATED":       ErrCodeExceedsOutstanding,
	"BREAKDOWN_MISMATCH":        ErrCodeBusinessRule,
	"HAS_ALLOCATIONS":           ErrCodeHasAllocations,
	"HAS_PAYMENTS":              ErrCodeHasPayments,
	"NO_PAYMENT_HISTORY":        ErrCodeNoPaymentHistory,
	"RECALCULATION_INTERRUPTED": ErrCodeConflict,
	"BAD_REQUEST":               ErrCodeBadRequest,
	"INTERNAL_ERROR":            ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format.
// The INVALID_* family (amounts, dates, numbers, categories and the rest)
// normalizes to the validation code; anything unknown passes through as-is.
func NormalizeErrorCode(code string) string {
	if wireCode, ok := DomainErrorCodeMapping[code]; ok {
		return wireCode
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeValidation
	}
	return code
}
