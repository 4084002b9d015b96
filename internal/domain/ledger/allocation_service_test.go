package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCustomerInvoice(t *testing.T, customerID uuid.UUID, number string, amount float64, dueDate time.Time) *Invoice {
	t.Helper()
	inv, err := NewInvoice(number, customerID, "Acme Traders", dueDate.AddDate(0, 0, -30), 0, &dueDate,
		valueobject.NewMoneyFromFloat(amount), valueobject.Zero(), decimal.NewFromInt(18))
	require.NoError(t, err)
	return inv
}

func newCustomerReceipt(t *testing.T, customerID uuid.UUID, amount float64, paymentDate time.Time, invoiceID *uuid.UUID) *Receipt {
	t.Helper()
	r, err := NewReceipt("RCT-100", customerID, "Acme Traders",
		valueobject.NewMoneyFromFloat(amount), paymentDate, PaymentMethodBankTransfer, invoiceID)
	require.NoError(t, err)
	return r
}

func TestPaymentAllocatorFIFO(t *testing.T) {
	ctx := context.Background()
	allocator := NewPaymentAllocator()

	t.Run("fills oldest due date first", func(t *testing.T) {
		customerID := uuid.New()
		older := newCustomerInvoice(t, customerID, "INV-A", 4000, day(2026, 1, 15))
		newer := newCustomerInvoice(t, customerID, "INV-B", 4000, day(2026, 2, 15))
		receipt := newCustomerReceipt(t, customerID, 6000, day(2026, 3, 1), nil)

		// Pass invoices newest first to prove ordering comes from due dates
		result, err := allocator.Allocate(ctx, receipt, []*Invoice{newer, older})
		require.NoError(t, err)

		assert.True(t, result.FullyAllocated)
		assert.True(t, older.IsPaid())
		assert.True(t, newer.IsPartial())
		assert.True(t, newer.Outstanding.Equal(decimal.NewFromInt(2000)))
		require.Len(t, result.Records, 2)
		assert.Equal(t, older.ID, result.UpdatedInvoices[0].ID)
	})

	t.Run("equal due dates break ties by creation order", func(t *testing.T) {
		customerID := uuid.New()
		due := day(2026, 1, 15)
		first := newCustomerInvoice(t, customerID, "INV-A", 3000, due)
		time.Sleep(2 * time.Millisecond)
		second := newCustomerInvoice(t, customerID, "INV-B", 3000, due)
		receipt := newCustomerReceipt(t, customerID, 3000, day(2026, 2, 1), nil)

		result, err := allocator.Allocate(ctx, receipt, []*Invoice{second, first})
		require.NoError(t, err)

		require.Len(t, result.UpdatedInvoices, 1)
		assert.Equal(t, first.ID, result.UpdatedInvoices[0].ID)
		assert.True(t, first.IsPaid())
		assert.True(t, second.IsUnpaid())
	})

	t.Run("overpayment surfaces as unallocated amount", func(t *testing.T) {
		// Receipt of 12,000 against a 10,000 invoice
		customerID := uuid.New()
		inv := newCustomerInvoice(t, customerID, "INV-A", 10000, day(2026, 1, 15))
		receipt := newCustomerReceipt(t, customerID, 12000, day(2026, 2, 1), nil)

		result, err := allocator.Allocate(ctx, receipt, []*Invoice{inv})
		require.NoError(t, err)

		assert.True(t, inv.IsPaid())
		assert.True(t, result.TotalAllocated.Equal(decimal.NewFromInt(10000)))
		assert.True(t, result.UnallocatedAmount.Equal(decimal.NewFromInt(2000)))
		assert.False(t, result.FullyAllocated)
	})

	t.Run("allocation conservation", func(t *testing.T) {
		customerID := uuid.New()
		invoices := []*Invoice{
			newCustomerInvoice(t, customerID, "INV-A", 1200.50, day(2026, 1, 10)),
			newCustomerInvoice(t, customerID, "INV-B", 850.25, day(2026, 1, 20)),
			newCustomerInvoice(t, customerID, "INV-C", 4301.75, day(2026, 2, 5)),
		}
		receipt := newCustomerReceipt(t, customerID, 3000, day(2026, 3, 1), nil)

		result, err := allocator.Allocate(ctx, receipt, invoices)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, rec := range result.Records {
			sum = sum.Add(rec.Amount)
		}
		assert.True(t, sum.Equal(receipt.AllocatedAmount))
		assert.True(t, receipt.Amount.Sub(sum).Equal(receipt.UnallocatedAmount))
	})

	t.Run("cross-customer allocation fails loudly", func(t *testing.T) {
		inv := newCustomerInvoice(t, uuid.New(), "INV-A", 1000, day(2026, 1, 15))
		receipt := newCustomerReceipt(t, uuid.New(), 1000, day(2026, 2, 1), nil)

		_, err := allocator.Allocate(ctx, receipt, []*Invoice{inv})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CUSTOMER_MISMATCH", domainErr.Code)
	})

	t.Run("skips cancelled and settled invoices", func(t *testing.T) {
		customerID := uuid.New()
		cancelled := newCustomerInvoice(t, customerID, "INV-A", 1000, day(2026, 1, 10))
		require.NoError(t, cancelled.Cancel("void"))
		open := newCustomerInvoice(t, customerID, "INV-B", 1000, day(2026, 1, 20))
		receipt := newCustomerReceipt(t, customerID, 1000, day(2026, 2, 1), nil)

		result, err := allocator.Allocate(ctx, receipt, []*Invoice{cancelled, open})
		require.NoError(t, err)

		require.Len(t, result.UpdatedInvoices, 1)
		assert.Equal(t, open.ID, result.UpdatedInvoices[0].ID)
	})
}

func TestPaymentAllocatorDirected(t *testing.T) {
	ctx := context.Background()
	allocator := NewPaymentAllocator()

	t.Run("directed receipt only touches its target", func(t *testing.T) {
		customerID := uuid.New()
		older := newCustomerInvoice(t, customerID, "INV-A", 5000, day(2026, 1, 10))
		target := newCustomerInvoice(t, customerID, "INV-B", 5000, day(2026, 2, 10))
		receipt := newCustomerReceipt(t, customerID, 3000, day(2026, 3, 1), &target.ID)

		result, err := allocator.Allocate(ctx, receipt, []*Invoice{older, target})
		require.NoError(t, err)

		assert.True(t, older.IsUnpaid())
		assert.True(t, target.IsPartial())
		assert.True(t, result.TotalAllocated.Equal(decimal.NewFromInt(3000)))
	})

	t.Run("excess over the target stays unallocated", func(t *testing.T) {
		customerID := uuid.New()
		other := newCustomerInvoice(t, customerID, "INV-A", 5000, day(2026, 1, 10))
		target := newCustomerInvoice(t, customerID, "INV-B", 2000, day(2026, 2, 10))
		receipt := newCustomerReceipt(t, customerID, 3000, day(2026, 3, 1), &target.ID)

		result, err := allocator.Allocate(ctx, receipt, []*Invoice{other, target})
		require.NoError(t, err)

		assert.True(t, target.IsPaid())
		assert.True(t, other.IsUnpaid())
		assert.True(t, result.UnallocatedAmount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("target outside the working set is rejected", func(t *testing.T) {
		customerID := uuid.New()
		inv := newCustomerInvoice(t, customerID, "INV-A", 5000, day(2026, 1, 10))
		stranger := uuid.New()
		receipt := newCustomerReceipt(t, customerID, 3000, day(2026, 3, 1), &stranger)

		_, err := allocator.Allocate(ctx, receipt, []*Invoice{inv})
		assert.Error(t, err)
	})
}

func TestPaymentAllocatorRetractReapply(t *testing.T) {
	ctx := context.Background()
	allocator := NewPaymentAllocator()

	t.Run("retract then reapply restores a consistent ledger", func(t *testing.T) {
		customerID := uuid.New()
		invA := newCustomerInvoice(t, customerID, "INV-A", 4000, day(2026, 1, 10))
		invB := newCustomerInvoice(t, customerID, "INV-B", 4000, day(2026, 2, 10))
		receipt := newCustomerReceipt(t, customerID, 6000, day(2026, 3, 1), nil)
		invoices := []*Invoice{invA, invB}

		_, err := allocator.Allocate(ctx, receipt, invoices)
		require.NoError(t, err)

		retract, err := allocator.Retract(ctx, receipt, invoices)
		require.NoError(t, err)
		assert.True(t, retract.TotalRetracted.Equal(decimal.NewFromInt(6000)))
		assert.True(t, invA.IsUnpaid())
		assert.True(t, invB.IsUnpaid())
		assert.True(t, receipt.UnallocatedAmount.Equal(receipt.Amount))

		result, err := allocator.Allocate(ctx, receipt, invoices)
		require.NoError(t, err)
		assert.True(t, invA.IsPaid())
		assert.True(t, invB.Outstanding.Equal(decimal.NewFromInt(2000)))
		assert.True(t, result.FullyAllocated)
	})

	t.Run("reapply after edit moves money with the new amount", func(t *testing.T) {
		customerID := uuid.New()
		inv := newCustomerInvoice(t, customerID, "INV-A", 4000, day(2026, 1, 10))
		receipt := newCustomerReceipt(t, customerID, 4000, day(2026, 3, 1), nil)
		invoices := []*Invoice{inv}

		_, err := allocator.Allocate(ctx, receipt, invoices)
		require.NoError(t, err)
		require.True(t, inv.IsPaid())

		_, err = allocator.Retract(ctx, receipt, invoices)
		require.NoError(t, err)
		require.NoError(t, receipt.UpdateDetails(valueobject.NewMoneyFromFloat(1500), day(2026, 3, 5), PaymentMethodBankTransfer, nil))

		result, err := allocator.Allocate(ctx, receipt, invoices)
		require.NoError(t, err)
		assert.True(t, inv.IsPartial())
		assert.True(t, inv.Outstanding.Equal(decimal.NewFromFloat(2500)))
		assert.True(t, result.FullyAllocated)
	})

	t.Run("reapply is deterministic over the same inputs", func(t *testing.T) {
		customerID := uuid.New()
		invA := newCustomerInvoice(t, customerID, "INV-A", 3000, day(2026, 1, 10))
		invB := newCustomerInvoice(t, customerID, "INV-B", 3000, day(2026, 2, 10))
		receipt := newCustomerReceipt(t, customerID, 4000, day(2026, 3, 1), nil)
		invoices := []*Invoice{invA, invB}

		first, err := allocator.Allocate(ctx, receipt, invoices)
		require.NoError(t, err)
		snapshotA := invA.Outstanding
		snapshotB := invB.Outstanding

		second, err := allocator.Reapply(ctx, receipt, invoices)
		require.NoError(t, err)

		assert.True(t, invA.Outstanding.Equal(snapshotA))
		assert.True(t, invB.Outstanding.Equal(snapshotB))
		assert.True(t, first.TotalAllocated.Equal(second.TotalAllocated))
		assert.True(t, first.UnallocatedAmount.Equal(second.UnallocatedAmount))
	})
}

func TestPaymentAllocatorPreview(t *testing.T) {
	ctx := context.Background()
	allocator := NewPaymentAllocator()

	customerID := uuid.New()
	inv := newCustomerInvoice(t, customerID, "INV-A", 4000, day(2026, 1, 10))
	receipt := newCustomerReceipt(t, customerID, 6000, day(2026, 3, 1), nil)

	plan, err := allocator.Preview(ctx, receipt, []*Invoice{inv})
	require.NoError(t, err)

	assert.True(t, plan.TotalAllocated.Equal(decimal.NewFromInt(4000)))
	assert.True(t, plan.RemainingAmount.Equal(decimal.NewFromInt(2000)))
	// Preview never mutates
	assert.True(t, inv.IsUnpaid())
	assert.True(t, receipt.AllocatedAmount.IsZero())
}
