package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"customer_id":    true,
	"customer_name":  true,
	"invoice_date":   true,
	"due_date":       true,
	"amount":         true,
	"paid_amount":    true,
	"outstanding":    true,
	"status":         true,
}

// ReceiptSortFields contains allowed sort fields for receipts
var ReceiptSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"receipt_number":     true,
	"customer_id":        true,
	"customer_name":      true,
	"payment_date":       true,
	"payment_method":     true,
	"amount":             true,
	"allocated_amount":   true,
	"unallocated_amount": true,
}

// CreditProfileSortFields contains allowed sort fields for credit profiles
var CreditProfileSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"customer_id":       true,
	"customer_name":     true,
	"category":          true,
	"credit_limit":      true,
	"interest_rate_pct": true,
}

// PaymentScoreSortFields contains allowed sort fields for payment score records
var PaymentScoreSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"customer_id":        true,
	"customer_name":      true,
	"payment_score":      true,
	"on_time_rate":       true,
	"avg_delay_days":     true,
	"classification":     true,
	"last_calculated_at": true,
}
