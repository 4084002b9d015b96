package handler

import (
	"errors"
	"net/http"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BaseHandler bundles the response helpers shared by all HTTP handlers
type BaseHandler struct{}

// getRequestID prefers the id stamped by the middleware, falling back to
// the inbound header
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

func (h *BaseHandler) ok(c *gin.Context, status int, data any) {
	c.JSON(status, dto.NewSuccessResponse(data))
}

// Success writes a 200 with the standard envelope
func (h *BaseHandler) Success(c *gin.Context, data any) {
	h.ok(c, http.StatusOK, data)
}

// SuccessWithMeta writes a 200 with pagination metadata
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created writes a 201 for newly created resources
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.ok(c, http.StatusCreated, data)
}

// Accepted writes a 202 for work that completes asynchronously
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	h.ok(c, http.StatusAccepted, data)
}

// NoContent writes an empty 204
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes an error envelope with the given status and code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest writes a 400
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound writes a 404
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict writes a 409
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// InternalError writes a 500
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleDomainError maps a domain error onto the HTTP error taxonomy.
// Anything that is not a DomainError is reported as an internal error
// without leaking its message.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		h.InternalError(c, "An unexpected error occurred")
		return
	}

	code := dto.NormalizeErrorCode(domainErr.Code)
	h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
}
