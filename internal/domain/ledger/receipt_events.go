package ledger

import (
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt event types
const (
	EventTypeReceiptCreated   = "ledger.receipt.created"
	EventTypeReceiptUpdated   = "ledger.receipt.updated"
	EventTypeReceiptAllocated = "ledger.receipt.allocated"
)

const receiptAggregateType = "Receipt"

// ReceiptCreatedEvent is raised when a payment is recorded
type ReceiptCreatedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string          `json:"receipt_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewReceiptCreatedEvent creates a new ReceiptCreatedEvent
func NewReceiptCreatedEvent(r *Receipt) *ReceiptCreatedEvent {
	return &ReceiptCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptCreated, receiptAggregateType, r.ID),
		ReceiptNumber:   r.ReceiptNumber,
		CustomerID:      r.CustomerID,
		Amount:          r.Amount,
	}
}

// ReceiptUpdatedEvent is raised when a receipt's details change
type ReceiptUpdatedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string          `json:"receipt_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewReceiptUpdatedEvent creates a new ReceiptUpdatedEvent
func NewReceiptUpdatedEvent(r *Receipt) *ReceiptUpdatedEvent {
	return &ReceiptUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptUpdated, receiptAggregateType, r.ID),
		ReceiptNumber:   r.ReceiptNumber,
		CustomerID:      r.CustomerID,
		Amount:          r.Amount,
	}
}

// ReceiptAllocatedEvent is raised after an allocation run completes for a
// receipt. A positive unallocated amount is the operator-facing signal that
// the receipt could not be fully applied.
type ReceiptAllocatedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber     string          `json:"receipt_number"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	InvoiceCount      int             `json:"invoice_count"`
}

// NewReceiptAllocatedEvent creates a new ReceiptAllocatedEvent
func NewReceiptAllocatedEvent(r *Receipt, invoiceCount int) *ReceiptAllocatedEvent {
	return &ReceiptAllocatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeReceiptAllocated, receiptAggregateType, r.ID),
		ReceiptNumber:     r.ReceiptNumber,
		CustomerID:        r.CustomerID,
		AllocatedAmount:   r.AllocatedAmount,
		UnallocatedAmount: r.UnallocatedAmount,
		InvoiceCount:      invoiceCount,
	}
}
