package ledger

import (
	"context"
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	CustomerID *uuid.UUID       // Filter by customer
	Status     *InvoiceStatus   // Filter by status
	FromDate   *time.Time       // Filter by invoice date range start
	ToDate     *time.Time       // Filter by invoice date range end
	DueFrom    *time.Time       // Filter by due date range start
	DueTo      *time.Time       // Filter by due date range end
	Overdue    *bool            // Filter only overdue invoices
	MinAmount  *decimal.Decimal // Filter by minimum outstanding amount
	MaxAmount  *decimal.Decimal // Filter by maximum outstanding amount
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByInvoiceNumber finds an invoice by its number
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindAll finds invoices with filtering
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// FindByCustomer finds invoices for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// FindOpenByCustomer finds the customer's invoices that can still receive
	// payments (unpaid or partial, positive outstanding)
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]Invoice, error)

	// FindByReceipt finds invoices holding allocations from the given receipt
	FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]Invoice, error)

	// FindOverdue finds invoices with an outstanding balance past due as of the given date
	FindOverdue(ctx context.Context, asOf time.Time, filter InvoiceFilter) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Delete soft deletes an invoice
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts invoices with optional filters
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// SumOutstandingByCustomer calculates total outstanding amount for a customer
	SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)

	// SumOverdue calculates total overdue amount as of the given date
	SumOverdue(ctx context.Context, asOf time.Time) (decimal.Decimal, error)

	// ExistsByInvoiceNumber checks if an invoice number is already taken
	ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error)

	// ListCustomerIDs returns the distinct customer IDs present in the ledger,
	// ordered, optionally resuming after a given customer (batch recalculation)
	ListCustomerIDs(ctx context.Context, afterCustomerID *uuid.UUID, limit int) ([]uuid.UUID, error)
}

// ReceiptFilter defines filtering options for receipt queries
type ReceiptFilter struct {
	shared.Filter
	CustomerID    *uuid.UUID       // Filter by customer
	InvoiceID     *uuid.UUID       // Filter by directed invoice
	PaymentMethod *PaymentMethod   // Filter by payment method
	FromDate      *time.Time       // Filter by payment date range start
	ToDate        *time.Time       // Filter by payment date range end
	Unallocated   *bool            // Filter receipts with an unallocated balance
	MinAmount     *decimal.Decimal // Filter by minimum amount
	MaxAmount     *decimal.Decimal // Filter by maximum amount
}

// ReceiptRepository defines the interface for receipt persistence
type ReceiptRepository interface {
	// FindByID finds a receipt by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)

	// FindByReceiptNumber finds a receipt by its number
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*Receipt, error)

	// FindAll finds receipts with filtering
	FindAll(ctx context.Context, filter ReceiptFilter) ([]Receipt, error)

	// FindByCustomer finds receipts for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter ReceiptFilter) ([]Receipt, error)

	// FindUnallocated finds receipts carrying an unallocated balance
	FindUnallocated(ctx context.Context, filter ReceiptFilter) ([]Receipt, error)

	// Save creates or updates a receipt
	Save(ctx context.Context, receipt *Receipt) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, receipt *Receipt) error

	// Delete soft deletes a receipt
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts receipts with optional filters
	Count(ctx context.Context, filter ReceiptFilter) (int64, error)

	// SumUnallocated calculates the total unallocated amount across receipts
	SumUnallocated(ctx context.Context) (decimal.Decimal, error)

	// ExistsByReceiptNumber checks if a receipt number is already taken
	ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error)
}

// CreditProfileRepository defines the interface for credit profile persistence
type CreditProfileRepository interface {
	// FindByID finds a credit profile by ID
	FindByID(ctx context.Context, id uuid.UUID) (*CustomerCreditProfile, error)

	// FindByCustomer finds the credit profile for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*CustomerCreditProfile, error)

	// FindByCategory finds credit profiles in a category
	FindByCategory(ctx context.Context, category CustomerCategory, filter shared.Filter) ([]CustomerCreditProfile, error)

	// FindAll finds credit profiles with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]CustomerCreditProfile, error)

	// Save creates or updates a credit profile
	Save(ctx context.Context, profile *CustomerCreditProfile) error

	// Delete soft deletes a credit profile
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts credit profiles
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// PaymentScoreFilter defines filtering options for payment score queries
type PaymentScoreFilter struct {
	shared.Filter
	Classification *PaymentClassification // Filter by segment
	MinScore       *decimal.Decimal       // Filter by minimum score
	MaxScore       *decimal.Decimal       // Filter by maximum score
}

// PaymentScoreRepository defines the interface for payment score persistence
type PaymentScoreRepository interface {
	// FindByID finds a payment score record by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentScoreRecord, error)

	// FindByCustomer finds the payment score record for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*PaymentScoreRecord, error)

	// FindAll finds payment score records with filtering
	FindAll(ctx context.Context, filter PaymentScoreFilter) ([]PaymentScoreRecord, error)

	// FindByClassification finds records in a segment
	FindByClassification(ctx context.Context, classification PaymentClassification, filter PaymentScoreFilter) ([]PaymentScoreRecord, error)

	// Upsert replaces the customer's record atomically, keyed by customer ID
	Upsert(ctx context.Context, record *PaymentScoreRecord) error

	// Delete soft deletes a payment score record
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByCustomer removes the record for a customer
	DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error

	// Count counts payment score records
	Count(ctx context.Context, filter PaymentScoreFilter) (int64, error)

	// CountByClassification counts records per segment
	CountByClassification(ctx context.Context) (map[PaymentClassification]int64, error)
}
