package ledger

import (
	"testing"
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestInvoice(t *testing.T, amount float64, invoiceDate time.Time, termDays int) *Invoice {
	t.Helper()
	inv, err := NewInvoice(
		"INV-001",
		uuid.New(),
		"Acme Traders",
		invoiceDate,
		termDays,
		nil,
		valueobject.NewMoneyFromFloat(amount),
		valueobject.NewMoneyFromFloat(amount*0.8),
		decimal.NewFromInt(18),
	)
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	t.Run("derives due date from payment terms", func(t *testing.T) {
		inv := newTestInvoice(t, 10000, day(2026, 1, 1), 30)
		assert.Equal(t, day(2026, 1, 31), inv.DueDate)
		assert.False(t, inv.DueDateManual)
		assert.Equal(t, InvoiceStatusUnpaid, inv.Status)
		assert.True(t, inv.Outstanding.Equal(decimal.NewFromInt(10000)))
	})

	t.Run("explicit due date wins over terms", func(t *testing.T) {
		override := day(2026, 2, 15)
		inv, err := NewInvoice("INV-002", uuid.New(), "Acme Traders", day(2026, 1, 1), 30, &override,
			valueobject.NewMoneyFromFloat(5000), valueobject.Zero(), decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, override, inv.DueDate)
		assert.True(t, inv.DueDateManual)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewInvoice("INV-003", uuid.New(), "Acme Traders", day(2026, 1, 1), 30, nil,
			valueobject.Zero(), valueobject.Zero(), decimal.Zero)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_AMOUNT", domainErr.Code)
	})

	t.Run("rejects empty customer", func(t *testing.T) {
		_, err := NewInvoice("INV-004", uuid.Nil, "Acme Traders", day(2026, 1, 1), 30, nil,
			valueobject.NewMoneyFromFloat(100), valueobject.Zero(), decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("emits created event", func(t *testing.T) {
		inv := newTestInvoice(t, 10000, day(2026, 1, 1), 30)
		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeInvoiceCreated, events[0].EventType())
	})
}

func TestInvoiceApplyAllocation(t *testing.T) {
	t.Run("full payment settles the invoice", func(t *testing.T) {
		inv := newTestInvoice(t, 10000, day(2026, 1, 1), 0)
		receiptID := uuid.New()

		record, err := inv.ApplyAllocation(receiptID, valueobject.NewMoneyFromFloat(10000), day(2026, 1, 31), "")
		require.NoError(t, err)
		assert.Equal(t, receiptID, record.ReceiptID)
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.Outstanding.IsZero())
		assert.NotNil(t, inv.PaidAt)
	})

	t.Run("partial payment leaves invoice partial", func(t *testing.T) {
		inv := newTestInvoice(t, 10000, day(2026, 1, 1), 0)

		_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(4000), day(2026, 1, 10), "")
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPartial, inv.Status)
		assert.True(t, inv.Outstanding.Equal(decimal.NewFromInt(6000)))
		assert.Nil(t, inv.PaidAt)
	})

	t.Run("allocation beyond outstanding is rejected", func(t *testing.T) {
		inv := newTestInvoice(t, 10000, day(2026, 1, 1), 0)

		_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(10001), day(2026, 1, 10), "")
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "EXCEEDS_OUTSTANDING", domainErr.Code)
	})

	t.Run("paid invoice rejects further allocations", func(t *testing.T) {
		inv := newTestInvoice(t, 1000, day(2026, 1, 1), 0)
		_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(1000), day(2026, 1, 5), "")
		require.NoError(t, err)

		_, err = inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(1), day(2026, 1, 6), "")
		assert.Error(t, err)
	})

	t.Run("balance conservation across allocations", func(t *testing.T) {
		inv := newTestInvoice(t, 10000, day(2026, 1, 1), 0)
		amounts := []float64{2500, 1500, 3000}
		total := decimal.Zero
		for _, a := range amounts {
			_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(a), day(2026, 1, 20), "")
			require.NoError(t, err)
			total = total.Add(decimal.NewFromFloat(a))
			assert.True(t, inv.Outstanding.Equal(inv.Amount.Sub(total)))
			assert.True(t, inv.PaidAmount.Equal(total))
		}
	})
}

func TestInvoiceRetractAllocations(t *testing.T) {
	t.Run("retract restores the outstanding balance", func(t *testing.T) {
		inv := newTestInvoice(t, 10000, day(2026, 1, 1), 0)
		receiptA := uuid.New()
		receiptB := uuid.New()

		_, err := inv.ApplyAllocation(receiptA, valueobject.NewMoneyFromFloat(4000), day(2026, 1, 10), "")
		require.NoError(t, err)
		_, err = inv.ApplyAllocation(receiptB, valueobject.NewMoneyFromFloat(6000), day(2026, 1, 15), "")
		require.NoError(t, err)
		require.Equal(t, InvoiceStatusPaid, inv.Status)

		retracted := inv.RetractAllocations(receiptA)
		assert.Equal(t, "4000.00", retracted.StringFixed(2))
		assert.Equal(t, InvoiceStatusPartial, inv.Status)
		assert.True(t, inv.Outstanding.Equal(decimal.NewFromInt(4000)))
		assert.Len(t, inv.AllocationsForReceipt(receiptB), 1)
		assert.Empty(t, inv.AllocationsForReceipt(receiptA))
	})

	t.Run("retracting everything returns invoice to unpaid", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, day(2026, 1, 1), 0)
		receiptID := uuid.New()
		_, err := inv.ApplyAllocation(receiptID, valueobject.NewMoneyFromFloat(5000), day(2026, 1, 10), "")
		require.NoError(t, err)

		inv.RetractAllocations(receiptID)
		assert.Equal(t, InvoiceStatusUnpaid, inv.Status)
		assert.True(t, inv.Outstanding.Equal(inv.Amount))
		assert.Nil(t, inv.PaidAt)
	})

	t.Run("retracting an unknown receipt is a no-op", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, day(2026, 1, 1), 0)
		version := inv.Version

		retracted := inv.RetractAllocations(uuid.New())
		assert.True(t, retracted.IsZero())
		assert.Equal(t, version, inv.Version)
	})
}

func TestInvoiceCancel(t *testing.T) {
	t.Run("cancel before any payment", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, day(2026, 1, 1), 30)
		require.NoError(t, inv.Cancel("entered in error"))
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
		assert.True(t, inv.Outstanding.IsZero())
	})

	t.Run("cancel is blocked once payments exist", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, day(2026, 1, 1), 0)
		_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(100), day(2026, 1, 5), "")
		require.NoError(t, err)

		err = inv.Cancel("too late")
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "HAS_PAYMENTS", domainErr.Code)
	})
}

func TestInvoiceOverdue(t *testing.T) {
	inv := newTestInvoice(t, 5000, day(2026, 1, 1), 30) // due Jan 31

	assert.False(t, inv.IsOverdue(day(2026, 1, 31)))
	assert.Equal(t, 0, inv.DaysOverdue(day(2026, 1, 20)))
	assert.True(t, inv.IsOverdue(day(2026, 2, 10)))
	assert.Equal(t, 10, inv.DaysOverdue(day(2026, 2, 10)))
}

func TestInvoiceSetDueDate(t *testing.T) {
	inv := newTestInvoice(t, 5000, day(2026, 1, 1), 30)

	require.NoError(t, inv.SetDueDate(day(2026, 3, 1)))
	assert.Equal(t, day(2026, 3, 1), inv.DueDate)
	assert.True(t, inv.DueDateManual)
}
