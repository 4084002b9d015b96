package ledger

import (
	"context"
	"fmt"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAllocator is a domain service that spreads a receipt across a
// customer's open invoices. It guarantees:
//  1. A receipt only ever touches invoices of its own customer
//  2. No invoice goes below zero outstanding, no receipt over-allocates
//  3. Receipt totals and invoice allocation records stay consistent
//
// Directed receipts (explicit invoice reference) are applied to that invoice
// only; undirected receipts fill open invoices oldest due date first. Excess
// money stays on the receipt as an unallocated balance.
type PaymentAllocator struct {
	strategyFactory *AllocationStrategyFactory
}

// NewPaymentAllocator creates a new payment allocator
func NewPaymentAllocator() *PaymentAllocator {
	return &PaymentAllocator{
		strategyFactory: NewAllocationStrategyFactory(),
	}
}

// AllocateResult represents the outcome of applying a receipt to invoices
type AllocateResult struct {
	Receipt           *Receipt           // Updated receipt with new totals
	UpdatedInvoices   []*Invoice         // Invoices that received money, in allocation order
	Records           []AllocationRecord // Allocation records written to invoices
	TotalAllocated    decimal.Decimal    // Total amount placed
	UnallocatedAmount decimal.Decimal    // Amount left on the receipt
	FullyAllocated    bool               // True if the whole receipt amount was placed
}

// Allocate applies the receipt's unallocated amount to the given invoices.
// Invoices not belonging to the receipt's customer are rejected, not skipped,
// so a caller that loaded the wrong set fails loudly.
func (s *PaymentAllocator) Allocate(ctx context.Context, receipt *Receipt, invoices []*Invoice) (*AllocateResult, error) {
	if receipt == nil {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt cannot be nil")
	}
	if receipt.UnallocatedAmount.LessThanOrEqual(decimal.Zero) {
		return &AllocateResult{
			Receipt:           receipt,
			UpdatedInvoices:   []*Invoice{},
			Records:           []AllocationRecord{},
			TotalAllocated:    decimal.Zero,
			UnallocatedAmount: receipt.UnallocatedAmount,
			FullyAllocated:    receipt.IsFullyAllocated(),
		}, nil
	}
	for _, inv := range invoices {
		if inv.CustomerID != receipt.CustomerID {
			return nil, shared.NewDomainError("CUSTOMER_MISMATCH",
				fmt.Sprintf("Invoice %s belongs to a different customer than receipt %s", inv.InvoiceNumber, receipt.ReceiptNumber))
		}
	}
	if receipt.IsDirected() {
		if err := s.validateDirectedTarget(receipt, invoices); err != nil {
			return nil, err
		}
	}

	strategy, err := s.strategyFactory.StrategyForReceipt(receipt)
	if err != nil {
		return nil, err
	}

	targets := make([]AllocationTarget, 0, len(invoices))
	invoiceMap := make(map[uuid.UUID]*Invoice, len(invoices))
	for _, inv := range invoices {
		invoiceMap[inv.ID] = inv
		if inv.Status.CanApplyPayment() && inv.Outstanding.GreaterThan(decimal.Zero) {
			targets = append(targets, AllocationTarget{
				ID:                inv.ID,
				Number:            inv.InvoiceNumber,
				OutstandingAmount: inv.Outstanding,
				DueDate:           inv.DueDate,
				CreatedAt:         inv.CreatedAt,
			})
		}
	}

	plan, err := strategy.Plan(receipt.GetUnallocatedAmountMoney(), targets)
	if err != nil {
		return nil, err
	}

	updated := make([]*Invoice, 0, len(plan.Lines))
	records := make([]AllocationRecord, 0, len(plan.Lines))

	for _, line := range plan.Lines {
		inv, exists := invoiceMap[line.TargetID]
		if !exists {
			continue
		}

		amount := valueobject.NewMoneyFromDecimal(line.Amount)

		record, err := inv.ApplyAllocation(receipt.ID, amount, receipt.PaymentDate,
			fmt.Sprintf("Allocated from receipt %s", receipt.ReceiptNumber))
		if err != nil {
			return nil, fmt.Errorf("failed to allocate to invoice %s: %w", inv.InvoiceNumber, err)
		}
		records = append(records, *record)

		if err := receipt.RecordAllocation(amount); err != nil {
			return nil, fmt.Errorf("failed to record allocation on receipt %s: %w", receipt.ReceiptNumber, err)
		}
		updated = append(updated, inv)
	}

	receipt.AddDomainEvent(NewReceiptAllocatedEvent(receipt, len(updated)))

	return &AllocateResult{
		Receipt:           receipt,
		UpdatedInvoices:   updated,
		Records:           records,
		TotalAllocated:    plan.TotalAllocated,
		UnallocatedAmount: receipt.UnallocatedAmount,
		FullyAllocated:    receipt.IsFullyAllocated(),
	}, nil
}

// validateDirectedTarget ensures the explicitly referenced invoice is in the
// working set and belongs to the receipt's customer
func (s *PaymentAllocator) validateDirectedTarget(receipt *Receipt, invoices []*Invoice) error {
	for _, inv := range invoices {
		if inv.ID == *receipt.InvoiceID {
			return nil
		}
	}
	return shared.NewDomainError("INVALID_TARGET",
		fmt.Sprintf("Receipt %s references an invoice outside the customer's ledger", receipt.ReceiptNumber))
}

// RetractResult represents the outcome of unwinding a receipt's allocations
type RetractResult struct {
	Receipt          *Receipt        // Receipt with allocation totals reset
	UpdatedInvoices  []*Invoice      // Invoices that had allocations removed
	TotalRetracted   decimal.Decimal // Total amount returned to the receipt
	RetractedRecords int             // Number of allocation records removed
}

// Retract removes every allocation the receipt made to the given invoices and
// resets the receipt's totals. This is the first half of the
// retract-then-reapply cycle used when a receipt is edited or deleted, and
// when an invoice is deleted while carrying allocations.
func (s *PaymentAllocator) Retract(ctx context.Context, receipt *Receipt, invoices []*Invoice) (*RetractResult, error) {
	if receipt == nil {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt cannot be nil")
	}

	total := decimal.Zero
	recordCount := 0
	updated := make([]*Invoice, 0)

	for _, inv := range invoices {
		removed := len(inv.AllocationsForReceipt(receipt.ID))
		if removed == 0 {
			continue
		}
		retracted := inv.RetractAllocations(receipt.ID)
		total = total.Add(retracted.Amount())
		recordCount += removed
		updated = append(updated, inv)
	}

	receipt.ResetAllocations()

	return &RetractResult{
		Receipt:          receipt,
		UpdatedInvoices:  updated,
		TotalRetracted:   total,
		RetractedRecords: recordCount,
	}, nil
}

// Reapply retracts the receipt's allocations from the given invoices and
// allocates the full receipt amount again. The invoice slice must contain
// every invoice currently holding allocations from this receipt plus every
// open invoice of the customer.
func (s *PaymentAllocator) Reapply(ctx context.Context, receipt *Receipt, invoices []*Invoice) (*AllocateResult, error) {
	if _, err := s.Retract(ctx, receipt, invoices); err != nil {
		return nil, err
	}
	return s.Allocate(ctx, receipt, invoices)
}

// Preview computes the allocation plan for a receipt without mutating any
// aggregate. Used to show the operator what an allocation would do.
func (s *PaymentAllocator) Preview(ctx context.Context, receipt *Receipt, invoices []*Invoice) (*AllocationPlan, error) {
	if receipt == nil {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt cannot be nil")
	}
	if receipt.UnallocatedAmount.LessThanOrEqual(decimal.Zero) {
		return emptyPlan(decimal.Zero), nil
	}

	strategy, err := s.strategyFactory.StrategyForReceipt(receipt)
	if err != nil {
		return nil, err
	}

	targets := make([]AllocationTarget, 0, len(invoices))
	for _, inv := range invoices {
		if inv.CustomerID != receipt.CustomerID {
			continue
		}
		if inv.Status.CanApplyPayment() && inv.Outstanding.GreaterThan(decimal.Zero) {
			targets = append(targets, AllocationTarget{
				ID:                inv.ID,
				Number:            inv.InvoiceNumber,
				OutstandingAmount: inv.Outstanding,
				DueDate:           inv.DueDate,
				CreatedAt:         inv.CreatedAt,
			})
		}
	}

	return strategy.Plan(receipt.GetUnallocatedAmountMoney(), targets)
}
