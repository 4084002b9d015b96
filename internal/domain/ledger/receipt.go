package ledger

import (
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents the method of payment
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodUPI,
		PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Receipt represents a payment received from a customer. A receipt may carry
// an explicit invoice reference (directed allocation) or none, in which case
// the allocator spreads it across the customer's outstanding invoices oldest
// due date first. Allocated and unallocated amounts are maintained by the
// allocator; they are fully derivable from the invoices' allocation records.
type Receipt struct {
	shared.BaseAggregateRoot
	ReceiptNumber     string          `json:"receipt_number"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	CustomerName      string          `json:"customer_name"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentDate       time.Time       `json:"payment_date"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	PaymentReference  string          `json:"payment_reference"`
	InvoiceID         *uuid.UUID      `json:"invoice_id"` // Explicit allocation target; nil means auto-allocate
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	Remark            string          `json:"remark"`
}

// NewReceipt creates a new receipt
func NewReceipt(
	receiptNumber string,
	customerID uuid.UUID,
	customerName string,
	amount valueobject.Money,
	paymentDate time.Time,
	paymentMethod PaymentMethod,
	invoiceID *uuid.UUID,
) (*Receipt, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if len(receiptNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Receipt amount must be positive")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}
	if !paymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}

	r := &Receipt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReceiptNumber:     receiptNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		Amount:            amount.Amount(),
		PaymentDate:       paymentDate,
		PaymentMethod:     paymentMethod,
		InvoiceID:         invoiceID,
		AllocatedAmount:   decimal.Zero,
		UnallocatedAmount: amount.Amount(),
	}

	r.AddDomainEvent(NewReceiptCreatedEvent(r))

	return r, nil
}

// UpdateDetails changes the mutable receipt fields. The caller must retract
// prior allocations before calling this and re-run allocation afterwards.
func (r *Receipt) UpdateDetails(amount valueobject.Money, paymentDate time.Time, paymentMethod PaymentMethod, invoiceID *uuid.UUID) error {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Receipt amount must be positive")
	}
	if paymentDate.IsZero() {
		return shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}
	if !paymentMethod.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if r.AllocatedAmount.GreaterThan(decimal.Zero) {
		return shared.NewDomainError("HAS_ALLOCATIONS", "Allocations must be retracted before editing a receipt")
	}

	r.Amount = amount.Amount()
	r.PaymentDate = paymentDate
	r.PaymentMethod = paymentMethod
	r.InvoiceID = invoiceID
	r.UnallocatedAmount = amount.Amount()
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewReceiptUpdatedEvent(r))

	return nil
}

// RecordAllocation records that part of this receipt was allocated to an
// invoice. Called by the allocator only.
func (r *Receipt) RecordAllocation(amount valueobject.Money) error {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.Amount().GreaterThan(r.UnallocatedAmount) {
		return shared.NewDomainError("EXCEEDS_UNALLOCATED", "Allocation exceeds unallocated amount")
	}

	r.AllocatedAmount = r.AllocatedAmount.Add(amount.Amount())
	r.UnallocatedAmount = r.Amount.Sub(r.AllocatedAmount)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// ResetAllocations clears the allocation totals ahead of a reapply cycle.
// Called by the allocator only.
func (r *Receipt) ResetAllocations() {
	r.AllocatedAmount = decimal.Zero
	r.UnallocatedAmount = r.Amount
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// SetPaymentReference sets the payment reference (bank txn, check number)
func (r *Receipt) SetPaymentReference(reference string) error {
	if len(reference) > 100 {
		return shared.NewDomainError("INVALID_REFERENCE", "Payment reference cannot exceed 100 characters")
	}

	r.PaymentReference = reference
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// SetRemark sets the remark
func (r *Receipt) SetRemark(remark string) {
	r.Remark = remark
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// Helper methods

// GetAmountMoney returns the receipt amount as Money
func (r *Receipt) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(r.Amount)
}

// GetAllocatedAmountMoney returns the allocated amount as Money
func (r *Receipt) GetAllocatedAmountMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(r.AllocatedAmount)
}

// GetUnallocatedAmountMoney returns the unallocated amount as Money
func (r *Receipt) GetUnallocatedAmountMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(r.UnallocatedAmount)
}

// IsDirected returns true if the receipt carries an explicit invoice reference
func (r *Receipt) IsDirected() bool {
	return r.InvoiceID != nil && *r.InvoiceID != uuid.Nil
}

// IsFullyAllocated returns true if the whole amount has been allocated
func (r *Receipt) IsFullyAllocated() bool {
	return r.UnallocatedAmount.IsZero()
}
