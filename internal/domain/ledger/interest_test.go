package ledger

import (
	"testing"
	"time"

	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInterestInvoice(t *testing.T, amount float64, dueDate time.Time, ratePct int64) *Invoice {
	t.Helper()
	inv, err := NewInvoice("INV-INT", uuid.New(), "Acme Traders", dueDate.AddDate(0, 0, -15), 0, &dueDate,
		valueobject.NewMoneyFromFloat(amount), valueobject.Zero(), decimal.NewFromInt(ratePct))
	require.NoError(t, err)
	return inv
}

func TestComputeInterestSinglePayment(t *testing.T) {
	// Invoice 10,000 due day 0 at 18%/yr, paid in full 30 days late:
	// 10000 * 0.18/365 * 30 = 147.95
	due := day(2026, 1, 1)
	inv := newInterestInvoice(t, 10000, due, 18)
	_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(10000), due.AddDate(0, 0, 30), "")
	require.NoError(t, err)
	require.True(t, inv.IsPaid())

	calc := NewInterestCalculator()
	breakdown, err := calc.ComputeInterest(inv, day(2026, 3, 1))
	require.NoError(t, err)

	require.Len(t, breakdown.PerTranche, 1)
	assert.Equal(t, 30, breakdown.PerTranche[0].DaysOverdue)
	assert.Equal(t, "147.95", breakdown.PerTranche[0].Interest.StringFixed(2))
	assert.Equal(t, "147.95", breakdown.TotalInterest.StringFixed(2))
	assert.True(t, breakdown.AccruedOutstanding.IsZero())
}

func TestComputeInterestSplitPayments(t *testing.T) {
	// Invoice due day 15. Tranche 1 of 5,000 on day 10 (on time, zero).
	// Tranche 2 of 5,000 on day 40, 25 days late: 5000 * 0.18/365 * 25 = 61.64
	due := day(2026, 1, 15)
	inv := newInterestInvoice(t, 10000, due, 18)
	_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(5000), day(2026, 1, 10), "")
	require.NoError(t, err)
	_, err = inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(5000), day(2026, 2, 9), "")
	require.NoError(t, err)
	require.True(t, inv.IsPaid())

	calc := NewInterestCalculator()
	breakdown, err := calc.ComputeInterest(inv, day(2026, 3, 1))
	require.NoError(t, err)

	require.Len(t, breakdown.PerTranche, 2)
	assert.Equal(t, 0, breakdown.PerTranche[0].DaysOverdue)
	assert.True(t, breakdown.PerTranche[0].Interest.IsZero())
	assert.Equal(t, 25, breakdown.PerTranche[1].DaysOverdue)
	assert.Equal(t, "61.64", breakdown.PerTranche[1].Interest.StringFixed(2))
	assert.Equal(t, "61.64", breakdown.TotalInterest.StringFixed(2))
}

func TestComputeInterestEdgeCases(t *testing.T) {
	calc := NewInterestCalculator()

	t.Run("no payments yet means empty breakdown", func(t *testing.T) {
		inv := newInterestInvoice(t, 10000, day(2026, 1, 15), 18)
		breakdown, err := calc.ComputeInterest(inv, day(2026, 1, 20))
		require.NoError(t, err)
		assert.Empty(t, breakdown.PerTranche)
		assert.True(t, breakdown.TotalInterest.IsZero())
	})

	t.Run("zero rate means zero interest", func(t *testing.T) {
		inv := newInterestInvoice(t, 10000, day(2026, 1, 1), 0)
		_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(10000), day(2026, 3, 1), "")
		require.NoError(t, err)

		breakdown, err := calc.ComputeInterest(inv, day(2026, 3, 1))
		require.NoError(t, err)
		assert.True(t, breakdown.TotalInterest.IsZero())
	})

	t.Run("unpaid balance accrues against asOf", func(t *testing.T) {
		inv := newInterestInvoice(t, 10000, day(2026, 1, 1), 18)
		_, err := inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(4000), day(2026, 1, 1), "")
		require.NoError(t, err)

		// 6,000 outstanding, 30 days past due: 6000 * 0.18/365 * 30 = 88.77
		breakdown, err := calc.ComputeInterest(inv, day(2026, 1, 31))
		require.NoError(t, err)
		assert.Equal(t, "88.77", breakdown.AccruedOutstanding.StringFixed(2))
		// Accrual on the open balance is informational, not part of the settled total
		assert.True(t, breakdown.TotalInterest.IsZero())
	})

	t.Run("rejects zero asOf", func(t *testing.T) {
		inv := newInterestInvoice(t, 10000, day(2026, 1, 1), 18)
		_, err := calc.ComputeInterest(inv, time.Time{})
		assert.Error(t, err)
	})
}

func TestInterestRecomputesAfterRetract(t *testing.T) {
	due := day(2026, 1, 1)
	inv := newInterestInvoice(t, 10000, due, 18)
	receiptID := uuid.New()
	_, err := inv.ApplyAllocation(receiptID, valueobject.NewMoneyFromFloat(10000), due.AddDate(0, 0, 30), "")
	require.NoError(t, err)

	calc := NewInterestCalculator()
	before, err := calc.ComputeInterest(inv, day(2026, 3, 1))
	require.NoError(t, err)
	require.Equal(t, "147.95", before.TotalInterest.StringFixed(2))

	inv.RetractAllocations(receiptID)

	after, err := calc.ComputeInterest(inv, day(2026, 3, 1))
	require.NoError(t, err)
	assert.Empty(t, after.PerTranche)
	assert.True(t, after.TotalInterest.IsZero())
}

func TestComputeCustomerInterest(t *testing.T) {
	customerID := uuid.New()
	due := day(2026, 1, 1)

	makeLedger := func(t *testing.T) []*Invoice {
		inv, err := NewInvoice("INV-1", customerID, "Acme Traders", due, 0, nil,
			valueobject.NewMoneyFromFloat(10000), valueobject.Zero(), decimal.NewFromInt(18))
		require.NoError(t, err)
		_, err = inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(10000), due.AddDate(0, 0, 30), "")
		require.NoError(t, err)
		return []*Invoice{inv}
	}

	newProfile := func(t *testing.T) *CustomerCreditProfile {
		profile, err := NewCustomerCreditProfile(customerID, "Acme Traders", CustomerCategoryWholesale,
			valueobject.NewMoneyFromFloat(100000))
		require.NoError(t, err)
		anchor := due
		require.NoError(t, profile.SetOpeningBalances(valueobject.Zero(), valueobject.NewMoneyFromFloat(20000)))
		require.NoError(t, profile.SetInterestPolicy(decimal.NewFromInt(18), &anchor))
		return profile
	}

	t.Run("sum policy adds the opening-balance term", func(t *testing.T) {
		calc := NewInterestCalculator()
		summary, err := calc.ComputeCustomerInterest(customerID, makeLedger(t), newProfile(t), due.AddDate(0, 0, 30))
		require.NoError(t, err)

		// Invoice: 147.95. Opening balance: 20000 * 0.18/365 * 30 = 295.89
		assert.Equal(t, "147.95", summary.InvoiceInterest.StringFixed(2))
		assert.Equal(t, "295.89", summary.OpeningBalanceTerm.StringFixed(2))
		assert.Equal(t, "443.84", summary.TotalInterest.StringFixed(2))
	})

	t.Run("compound policy grows the opening principal by invoice interest", func(t *testing.T) {
		calc := NewInterestCalculator(WithCombinePolicy(InterestCombineCompound))
		summary, err := calc.ComputeCustomerInterest(customerID, makeLedger(t), newProfile(t), due.AddDate(0, 0, 30))
		require.NoError(t, err)

		// Principal 20147.95: 20147.95 * 0.18/365 * 30 = 298.08
		assert.Equal(t, "298.08", summary.OpeningBalanceTerm.StringFixed(2))
		assert.Equal(t, "446.03", summary.TotalInterest.StringFixed(2))
	})

	t.Run("no anchor date disables the opening term", func(t *testing.T) {
		profile := newProfile(t)
		require.NoError(t, profile.SetInterestPolicy(decimal.NewFromInt(18), nil))

		calc := NewInterestCalculator()
		summary, err := calc.ComputeCustomerInterest(customerID, makeLedger(t), profile, due.AddDate(0, 0, 30))
		require.NoError(t, err)
		assert.True(t, summary.OpeningBalanceTerm.IsZero())
	})

	t.Run("foreign invoice is rejected", func(t *testing.T) {
		stranger, err := NewInvoice("INV-X", uuid.New(), "Other Co", due, 30, nil,
			valueobject.NewMoneyFromFloat(1000), valueobject.Zero(), decimal.Zero)
		require.NoError(t, err)

		calc := NewInterestCalculator()
		_, err = calc.ComputeCustomerInterest(customerID, []*Invoice{stranger}, nil, due)
		assert.Error(t, err)
	})
}
