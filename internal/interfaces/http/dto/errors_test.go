package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{name: "not found", code: ErrCodeNotFound, expected: http.StatusNotFound},
		{name: "already exists", code: ErrCodeAlreadyExists, expected: http.StatusConflict},
		{name: "concurrency conflict", code: ErrCodeConcurrencyConflict, expected: http.StatusConflict},
		{name: "validation", code: ErrCodeValidation, expected: http.StatusBadRequest},
		{name: "business rule", code: ErrCodeBusinessRule, expected: http.StatusUnprocessableEntity},
		{name: "customer mismatch", code: ErrCodeCustomerMismatch, expected: http.StatusUnprocessableEntity},
		{name: "has allocations", code: ErrCodeHasAllocations, expected: http.StatusUnprocessableEntity},
		{name: "internal", code: ErrCodeInternal, expected: http.StatusInternalServerError},
		{name: "unknown code falls back to 500", code: "ERR_SOMETHING_NEW", expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{name: "not found", code: "NOT_FOUND", expected: ErrCodeNotFound},
		{name: "optimistic lock", code: "OPTIMISTIC_LOCK_ERROR", expected: ErrCodeConcurrencyConflict},
		{name: "customer mismatch", code: "CUSTOMER_MISMATCH", expected: ErrCodeCustomerMismatch},
		{name: "exceeds unallocated", code: "EXCEEDS_UNALLOCATED", expected: ErrCodeExceedsOutstanding},
		{name: "invalid state is explicit", code: "INVALID_STATE", expected: ErrCodeInvalidState},
		{name: "invalid amount normalizes to validation", code: "INVALID_AMOUNT", expected: ErrCodeValidation},
		{name: "invalid due date normalizes to validation", code: "INVALID_DUE_DATE", expected: ErrCodeValidation},
		{name: "already standardized passes through", code: ErrCodeNotFound, expected: ErrCodeNotFound},
		{name: "unknown passes through", code: "SOMETHING_ELSE", expected: "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	requestID := "req-abc-123"
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", requestID)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Invoice not found", resp.Error.Message)
	assert.Equal(t, requestID, resp.Error.RequestID)
	assert.Nil(t, resp.Data)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "Must be greater than 0"},
		{Field: "customer_id", Message: "This field is required"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-1", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 45, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.PageSize)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
