package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	for input, want := range map[string]string{
		"":                            "DESC",
		"ASC":                         "ASC",
		"asc":                         "ASC",
		"  asc  ":                     "ASC",
		"DESC":                        "DESC",
		"INVALID":                     "DESC",
		"   ":                         "DESC",
		"ASC; DROP TABLE invoices;--": "DESC",
	} {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField(t *testing.T) {
	t.Run("invoice fields", func(t *testing.T) {
		for input, want := range map[string]string{
			"":              "created_at",
			"due_date":      "due_date",
			"  due_date  ":  "due_date",
			"outstanding":   "outstanding",
			"invalid_field": "created_at",
			"DUE_DATE":      "created_at", // whitelist is case sensitive
		} {
			assert.Equal(t, want, ValidateSortField(input, InvoiceSortFields, "created_at"), "input %q", input)
		}
	})

	t.Run("per-aggregate whitelists", func(t *testing.T) {
		assert.Equal(t, "payment_date",
			ValidateSortField("payment_date", ReceiptSortFields, "created_at"))
		assert.Equal(t, "credit_limit",
			ValidateSortField("credit_limit", CreditProfileSortFields, "customer_name"))
		assert.Equal(t, "on_time_rate",
			ValidateSortField("on_time_rate", PaymentScoreSortFields, "payment_score"))
	})
}

func TestSortFieldWhitelistsShareCommonColumns(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"invoice":        InvoiceSortFields,
		"receipt":        ReceiptSortFields,
		"credit profile": CreditProfileSortFields,
		"payment score":  PaymentScoreSortFields,
	}

	for name, fields := range whitelists {
		assert.Greater(t, len(fields), 3, name)
		for _, col := range []string{"id", "created_at", "updated_at"} {
			assert.True(t, fields[col], "%s whitelist missing %q", name, col)
		}
	}
}

// Anything that is not a whitelisted identifier must collapse to the
// defaults, since these values are interpolated into ORDER BY.
func TestSortValidationRejectsInjection(t *testing.T) {
	payloads := []string{
		"id; DROP TABLE invoices;--",
		"id' OR '1'='1",
		"id UNION SELECT * FROM receipts",
		"id, (SELECT receipt_number FROM receipts)",
		"CASE WHEN 1=1 THEN id ELSE amount END",
		"id/**/;DROP TABLE invoices",
		"id\n; DROP TABLE invoices",
	}

	for _, payload := range payloads {
		assert.Equal(t, "created_at",
			ValidateSortField(payload, InvoiceSortFields, "created_at"), payload)
		assert.Equal(t, "DESC", ValidateSortOrder(payload), payload)
	}
}
