package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment status of an invoice.
// It is always derived from the allocation set, never set directly.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "UNPAID"    // No allocations, full balance outstanding
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"   // 0 < outstanding < amount
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Outstanding = 0
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Cancelled before any payment
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanApplyPayment returns true if payments can be allocated in this status
func (s InvoiceStatus) CanApplyPayment() bool {
	return s == InvoiceStatusUnpaid || s == InvoiceStatusPartial
}

// AllocationRecord is a record of money from one receipt applied to this
// invoice. It is a value object within the Invoice aggregate, stored as
// JSONB. Only the pure inputs are stored; days overdue and interest per
// tranche are derived by the interest calculator so they can never go stale
// when a due date or rate changes.
type AllocationRecord struct {
	ID          uuid.UUID       `json:"id"`
	ReceiptID   uuid.UUID       `json:"receipt_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	AllocatedAt time.Time       `json:"allocated_at"`
	Remark      string          `json:"remark,omitempty"`
}

// GetAmountMoney returns the allocated amount as Money
func (a *AllocationRecord) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(a.Amount)
}

// AllocationRecords is a slice of AllocationRecord that implements GORM
// Scanner/Valuer for JSONB storage
type AllocationRecords []AllocationRecord

// Value implements driver.Valuer interface for GORM to store as JSONB
func (a AllocationRecords) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (a *AllocationRecords) Scan(value interface{}) error {
	if value == nil {
		*a = AllocationRecords{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan AllocationRecords: unsupported type")
	}

	if len(bytes) == 0 {
		*a = AllocationRecords{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Invoice represents an invoice aggregate root in the receivables ledger.
// It tracks money owed by a customer and the allocations settling it.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string            `json:"invoice_number"`
	CustomerID      uuid.UUID         `json:"customer_id"`
	CustomerName    string            `json:"customer_name"`
	InvoiceDate     time.Time         `json:"invoice_date"`
	DueDate         time.Time         `json:"due_date"`
	DueDateManual   bool              `json:"due_date_manual"` // True when DueDate was set explicitly rather than derived from terms
	PaymentTermDays int               `json:"payment_term_days"`
	Amount          decimal.Decimal   `json:"amount"`            // Invoice face value
	CostBasis       decimal.Decimal   `json:"cost_basis"`        // Cost used for gross profit; zero means unknown
	InterestRatePct decimal.Decimal   `json:"interest_rate_pct"` // Annual rate; zero means no interest accrues
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	Outstanding     decimal.Decimal   `json:"outstanding"`
	Status          InvoiceStatus     `json:"status"`
	Allocations     AllocationRecords `json:"allocations"`
	Remark          string            `json:"remark"`
	PaidAt          *time.Time        `json:"paid_at"`
	CancelledAt     *time.Time        `json:"cancelled_at"`
	CancelReason    string            `json:"cancel_reason"`
}

// NewInvoice creates a new invoice. The due date is derived from the
// payment-term days unless dueDateOverride is provided.
func NewInvoice(
	invoiceNumber string,
	customerID uuid.UUID,
	customerName string,
	invoiceDate time.Time,
	paymentTermDays int,
	dueDateOverride *time.Time,
	amount valueobject.Money,
	costBasis valueobject.Money,
	interestRatePct decimal.Decimal,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if invoiceDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INVOICE_DATE", "Invoice date is required")
	}
	if paymentTermDays < 0 {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TERMS", "Payment term days cannot be negative")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if costBasis.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST_BASIS", "Cost basis cannot be negative")
	}
	if interestRatePct.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INTEREST_RATE", "Interest rate cannot be negative")
	}

	dueDate := invoiceDate.AddDate(0, 0, paymentTermDays)
	manual := false
	if dueDateOverride != nil {
		dueDate = *dueDateOverride
		manual = true
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		DueDateManual:     manual,
		PaymentTermDays:   paymentTermDays,
		Amount:            amount.Amount(),
		CostBasis:         costBasis.Amount(),
		InterestRatePct:   interestRatePct,
		PaidAmount:        decimal.Zero,
		Outstanding:       amount.Amount(),
		Status:            InvoiceStatusUnpaid,
		Allocations:       AllocationRecords{},
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// ApplyAllocation applies an allocation from a receipt to this invoice.
// The amount must not exceed the outstanding balance; the allocator is
// responsible for capping it.
func (inv *Invoice) ApplyAllocation(receiptID uuid.UUID, amount valueobject.Money, paymentDate time.Time, remark string) (*AllocationRecord, error) {
	if !inv.Status.CanApplyPayment() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot allocate to invoice in %s status", inv.Status))
	}
	if receiptID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.Amount().GreaterThan(inv.Outstanding) {
		return nil, shared.NewDomainError("EXCEEDS_OUTSTANDING", fmt.Sprintf("Allocation amount %.2f exceeds outstanding balance %.2f", amount.Amount().InexactFloat64(), inv.Outstanding.InexactFloat64()))
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}

	record := AllocationRecord{
		ID:          uuid.New(),
		ReceiptID:   receiptID,
		Amount:      amount.Amount(),
		PaymentDate: paymentDate,
		AllocatedAt: time.Now(),
		Remark:      remark,
	}
	inv.Allocations = append(inv.Allocations, record)

	inv.refreshBalances()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	if inv.Status == InvoiceStatusPaid {
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	} else {
		inv.AddDomainEvent(NewInvoicePartiallyPaidEvent(inv, amount))
	}

	return &record, nil
}

// RetractAllocations removes every allocation made from the given receipt,
// restoring the outstanding balance. This is the first half of the
// retract-then-reapply cycle that keeps the ledger consistent when a receipt
// is edited or deleted. Returns the total amount retracted.
func (inv *Invoice) RetractAllocations(receiptID uuid.UUID) valueobject.Money {
	retracted := decimal.Zero
	kept := make(AllocationRecords, 0, len(inv.Allocations))
	for _, a := range inv.Allocations {
		if a.ReceiptID == receiptID {
			retracted = retracted.Add(a.Amount)
			continue
		}
		kept = append(kept, a)
	}
	if retracted.IsZero() {
		return valueobject.Zero()
	}

	inv.Allocations = kept
	inv.refreshBalances()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceAllocationsRetractedEvent(inv, receiptID, retracted))

	return valueobject.NewMoneyFromDecimal(retracted)
}

// refreshBalances rederives paid amount, outstanding balance and status from
// the allocation set. Outstanding is clamped to [0, Amount]; overpayment is
// never recorded as a negative balance.
func (inv *Invoice) refreshBalances() {
	paid := decimal.Zero
	for _, a := range inv.Allocations {
		paid = paid.Add(a.Amount)
	}
	inv.PaidAmount = paid
	inv.Outstanding = inv.Amount.Sub(paid)
	if inv.Outstanding.IsNegative() {
		inv.Outstanding = decimal.Zero
	}

	switch {
	case inv.Status == InvoiceStatusCancelled:
		// Cancelled invoices never re-derive status
	case inv.Outstanding.Equal(inv.Amount):
		inv.Status = InvoiceStatusUnpaid
		inv.PaidAt = nil
	case inv.Outstanding.IsZero():
		now := time.Now()
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
	default:
		inv.Status = InvoiceStatusPartial
		inv.PaidAt = nil
	}
}

// SetDueDate overrides the derived due date
func (inv *Invoice) SetDueDate(dueDate time.Time) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot modify due date for invoice in terminal state")
	}
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}

	inv.DueDate = dueDate
	inv.DueDateManual = true
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// SetInterestRate updates the annual interest rate applied to overdue tranches
func (inv *Invoice) SetInterestRate(ratePct decimal.Decimal) error {
	if ratePct.IsNegative() {
		return shared.NewDomainError("INVALID_INTEREST_RATE", "Interest rate cannot be negative")
	}

	inv.InterestRatePct = ratePct
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// Cancel cancels the invoice (only if no payments have been allocated)
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel invoice in %s status", inv.Status))
	}
	if inv.PaidAmount.GreaterThan(decimal.Zero) {
		return shared.NewDomainError("HAS_PAYMENTS", "Cannot cancel invoice with existing allocations")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.Outstanding = decimal.Zero
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// SetRemark sets the remark
func (inv *Invoice) SetRemark(remark string) {
	inv.Remark = remark
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

// Helper methods

// GetAmountMoney returns the invoice face value as Money
func (inv *Invoice) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(inv.Amount)
}

// GetCostBasisMoney returns the cost basis as Money
func (inv *Invoice) GetCostBasisMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(inv.CostBasis)
}

// GetOutstandingMoney returns the outstanding balance as Money
func (inv *Invoice) GetOutstandingMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(inv.Outstanding)
}

// GetPaidAmountMoney returns the paid amount as Money
func (inv *Invoice) GetPaidAmountMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(inv.PaidAmount)
}

// IsUnpaid returns true if no allocations have been applied
func (inv *Invoice) IsUnpaid() bool {
	return inv.Status == InvoiceStatusUnpaid
}

// IsPartial returns true if the invoice is partially settled
func (inv *Invoice) IsPartial() bool {
	return inv.Status == InvoiceStatusPartial
}

// IsPaid returns true if the invoice is fully settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice is cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// IsOverdue returns true if the invoice has an outstanding balance past the
// due date as of the given date
func (inv *Invoice) IsOverdue(asOf time.Time) bool {
	if inv.Status.IsTerminal() {
		return false
	}
	return valueobject.DaysOverdue(asOf, inv.DueDate) > 0
}

// DaysOverdue returns the number of calendar days the outstanding balance is
// past due as of the given date (0 if not overdue)
func (inv *Invoice) DaysOverdue(asOf time.Time) int {
	if inv.Status.IsTerminal() {
		return 0
	}
	return valueobject.DaysOverdue(asOf, inv.DueDate)
}

// AllocationCount returns the number of allocations applied
func (inv *Invoice) AllocationCount() int {
	return len(inv.Allocations)
}

// AllocationsForReceipt returns the allocations made from a specific receipt
func (inv *Invoice) AllocationsForReceipt(receiptID uuid.UUID) []AllocationRecord {
	result := make([]AllocationRecord, 0)
	for _, a := range inv.Allocations {
		if a.ReceiptID == receiptID {
			result = append(result, a)
		}
	}
	return result
}

// PaidPercentage returns the percentage of the face value that has been paid (0-100)
func (inv *Invoice) PaidPercentage() decimal.Decimal {
	if inv.Amount.IsZero() {
		return decimal.NewFromInt(100)
	}
	return inv.PaidAmount.Div(inv.Amount).Mul(decimal.NewFromInt(100)).Round(2)
}
