package ledger

import (
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice event types
const (
	EventTypeInvoiceCreated              = "ledger.invoice.created"
	EventTypeInvoicePaid                 = "ledger.invoice.paid"
	EventTypeInvoicePartiallyPaid        = "ledger.invoice.partially_paid"
	EventTypeInvoiceAllocationsRetracted = "ledger.invoice.allocations_retracted"
	EventTypeInvoiceCancelled            = "ledger.invoice.cancelled"
)

const invoiceAggregateType = "Invoice"

// InvoiceCreatedEvent is raised when a new invoice enters the ledger
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		Amount:          inv.Amount,
	}
}

// InvoicePaidEvent is raised when an invoice becomes fully settled
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		PaidAmount:      inv.PaidAmount,
	}
}

// InvoicePartiallyPaidEvent is raised when an allocation leaves a balance outstanding
type InvoicePartiallyPaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber   string          `json:"invoice_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	Outstanding     decimal.Decimal `json:"outstanding"`
}

// NewInvoicePartiallyPaidEvent creates a new InvoicePartiallyPaidEvent
func NewInvoicePartiallyPaidEvent(inv *Invoice, allocated valueobject.Money) *InvoicePartiallyPaidEvent {
	return &InvoicePartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePartiallyPaid, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		AllocatedAmount: allocated.Amount(),
		Outstanding:     inv.Outstanding,
	}
}

// InvoiceAllocationsRetractedEvent is raised when a receipt's allocations are
// unwound from the invoice during a retract-then-reapply cycle
type InvoiceAllocationsRetractedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber   string          `json:"invoice_number"`
	ReceiptID       uuid.UUID       `json:"receipt_id"`
	RetractedAmount decimal.Decimal `json:"retracted_amount"`
}

// NewInvoiceAllocationsRetractedEvent creates a new InvoiceAllocationsRetractedEvent
func NewInvoiceAllocationsRetractedEvent(inv *Invoice, receiptID uuid.UUID, retracted decimal.Decimal) *InvoiceAllocationsRetractedEvent {
	return &InvoiceAllocationsRetractedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceAllocationsRetracted, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		ReceiptID:       receiptID,
		RetractedAmount: retracted,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	CancelReason  string `json:"cancel_reason"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		CancelReason:    inv.CancelReason,
	}
}
