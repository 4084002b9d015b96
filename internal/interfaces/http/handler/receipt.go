package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
)

// ReceiptHandler handles receipt API endpoints
type ReceiptHandler struct {
	BaseHandler
	ledgerService *ledgerapp.LedgerService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(ledgerService *ledgerapp.LedgerService) *ReceiptHandler {
	return &ReceiptHandler{ledgerService: ledgerService}
}

// RegisterRoutes registers receipt routes
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receipts := rg.Group("/receipts")
	{
		receipts.POST("", h.CreateReceipt)
		receipts.GET("", h.ListReceipts)
		receipts.GET("/:id", h.GetReceipt)
		receipts.GET("/:id/allocation-preview", h.PreviewAllocation)
		receipts.PUT("/:id", h.UpdateReceipt)
		receipts.DELETE("/:id", h.DeleteReceipt)
	}
}

// CreateReceipt records a payment and allocates it across the customer's
// open invoices
func (h *ReceiptHandler) CreateReceipt(c *gin.Context) {
	var req ledgerapp.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.CreateReceipt(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetReceipt retrieves a receipt by ID
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	receipt, err := h.ledgerService.GetReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// ListReceipts retrieves a paginated list of receipts with filtering
func (h *ReceiptHandler) ListReceipts(c *gin.Context) {
	var filter ledgerapp.ReceiptListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	receipts, total, err := h.ledgerService.ListReceipts(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, receipts, total, filter.Page, filter.PageSize)
}

// PreviewAllocation shows how a receipt's amount would spread across the
// customer's open invoices without persisting anything
func (h *ReceiptHandler) PreviewAllocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	plan, err := h.ledgerService.PreviewReceiptAllocation(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, plan)
}

// UpdateReceipt edits a payment: prior allocations are retracted and the new
// amount is re-allocated from scratch
func (h *ReceiptHandler) UpdateReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req ledgerapp.UpdateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.UpdateReceipt(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// DeleteReceipt removes a payment, restoring the invoice balances it had
// been allocated against
func (h *ReceiptHandler) DeleteReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	if err := h.ledgerService.DeleteReceipt(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
