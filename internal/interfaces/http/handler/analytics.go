package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/debtflow/backend/internal/application/ledger"
	"github.com/debtflow/backend/internal/domain/ledger"
)

// AnalyticsHandler serves the derived read-side views: interest breakdowns,
// profitability, credit utilization, payment scores and the dashboards
type AnalyticsHandler struct {
	BaseHandler
	analyticsService *ledgerapp.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService *ledgerapp.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// RegisterRoutes registers analytics routes
func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/invoices/:id/interest", h.GetInvoiceInterest)
	rg.GET("/invoices/:id/profitability", h.GetInvoiceProfitability)
	rg.GET("/customers/:id/interest", h.GetCustomerInterest)
	rg.GET("/customers/:id/utilization", h.GetCustomerUtilization)
	rg.GET("/customers/:id/score", h.GetCustomerScore)

	dashboards := rg.Group("/dashboards")
	{
		dashboards.GET("/aging", h.GetAgingSummary)
		dashboards.GET("/segments", h.GetSegmentSummary)
		dashboards.GET("/segments/:classification/customers", h.ListSegmentCustomers)
	}
}

// parseAsOf reads the as_of query parameter, defaulting to now
func parseAsOf(c *gin.Context) (time.Time, bool) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now(), true
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return asOf, true
}

// GetInvoiceInterest computes the interest breakdown for an invoice
func (h *AnalyticsHandler) GetInvoiceInterest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		h.BadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
		return
	}

	breakdown, err := h.analyticsService.GetInvoiceInterest(c.Request.Context(), id, asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, breakdown)
}

// GetInvoiceProfitability computes the profitability view for an invoice
func (h *AnalyticsHandler) GetInvoiceProfitability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		h.BadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
		return
	}

	profitability, err := h.analyticsService.GetInvoiceProfitability(c.Request.Context(), id, asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profitability)
}

// GetCustomerInterest aggregates interest across a customer's ledger
func (h *AnalyticsHandler) GetCustomerInterest(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		h.BadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
		return
	}

	summary, err := h.analyticsService.GetCustomerInterest(c.Request.Context(), customerID, asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetCustomerUtilization computes the credit utilization view for a customer
func (h *AnalyticsHandler) GetCustomerUtilization(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	utilization, err := h.analyticsService.GetCustomerUtilization(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, utilization)
}

// GetCustomerScore returns the customer's last computed payment score record
func (h *AnalyticsHandler) GetCustomerScore(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	score, err := h.analyticsService.GetCustomerScore(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, score)
}

// GetAgingSummary returns outstanding balances bucketed by days past due
func (h *AnalyticsHandler) GetAgingSummary(c *gin.Context) {
	asOf, ok := parseAsOf(c)
	if !ok {
		h.BadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
		return
	}

	summary, err := h.analyticsService.GetAgingSummary(c.Request.Context(), asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetSegmentSummary returns customer counts per payment-behavior segment
func (h *AnalyticsHandler) GetSegmentSummary(c *gin.Context) {
	summary, err := h.analyticsService.GetSegmentSummary(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// ListSegmentCustomers lists the score records in one behavior segment
func (h *AnalyticsHandler) ListSegmentCustomers(c *gin.Context) {
	classification := ledger.PaymentClassification(c.Param("classification"))

	var paging struct {
		Page     int `form:"page"`
		PageSize int `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&paging); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if paging.Page <= 0 {
		paging.Page = 1
	}
	if paging.PageSize <= 0 {
		paging.PageSize = 20
	}

	records, err := h.analyticsService.ListSegmentCustomers(c.Request.Context(), classification, paging.Page, paging.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, records)
}
