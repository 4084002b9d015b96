package ledger

import (
	"testing"

	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProfitability(t *testing.T) {
	resolver := NewProfitabilityResolver(NewInterestCalculator())
	due := day(2026, 1, 1)

	t.Run("late payment eats into gross profit", func(t *testing.T) {
		inv, err := NewInvoice("INV-P1", uuid.New(), "Acme Traders", due, 0, nil,
			valueobject.NewMoneyFromFloat(10000), valueobject.NewMoneyFromFloat(9000), decimal.NewFromInt(18))
		require.NoError(t, err)
		_, err = inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(10000), due.AddDate(0, 0, 30), "")
		require.NoError(t, err)

		p, err := resolver.ResolveAsOf(inv, day(2026, 3, 1))
		require.NoError(t, err)

		assert.Equal(t, "1000.00", p.GrossProfit.StringFixed(2))
		assert.Equal(t, "147.95", p.TotalInterest.StringFixed(2))
		assert.Equal(t, "852.05", p.FinalGrossProfit.StringFixed(2))
		require.NotNil(t, p.FinalGrossProfitPct)
		assert.Equal(t, "8.52", p.FinalGrossProfitPct.StringFixed(2))
	})

	t.Run("negative final profit is preserved, not clamped", func(t *testing.T) {
		inv, err := NewInvoice("INV-P2", uuid.New(), "Acme Traders", due, 0, nil,
			valueobject.NewMoneyFromFloat(10000), valueobject.NewMoneyFromFloat(9950), decimal.NewFromInt(18))
		require.NoError(t, err)
		_, err = inv.ApplyAllocation(uuid.New(), valueobject.NewMoneyFromFloat(10000), due.AddDate(0, 0, 30), "")
		require.NoError(t, err)

		p, err := resolver.ResolveAsOf(inv, day(2026, 3, 1))
		require.NoError(t, err)

		assert.Equal(t, "50.00", p.GrossProfit.StringFixed(2))
		assert.True(t, p.FinalGrossProfit.IsNegative())
		assert.Equal(t, "-97.95", p.FinalGrossProfit.StringFixed(2))
	})

	t.Run("unknown cost basis falls back to invoice amount", func(t *testing.T) {
		inv, err := NewInvoice("INV-P3", uuid.New(), "Acme Traders", due, 30, nil,
			valueobject.NewMoneyFromFloat(5000), valueobject.Zero(), decimal.Zero)
		require.NoError(t, err)

		p, err := resolver.ResolveAsOf(inv, day(2026, 1, 15))
		require.NoError(t, err)
		assert.Equal(t, "5000.00", p.GrossProfit.StringFixed(2))
	})

	t.Run("breakdown for another invoice is rejected", func(t *testing.T) {
		invA, err := NewInvoice("INV-P4", uuid.New(), "Acme Traders", due, 30, nil,
			valueobject.NewMoneyFromFloat(5000), valueobject.Zero(), decimal.Zero)
		require.NoError(t, err)
		invB, err := NewInvoice("INV-P5", uuid.New(), "Acme Traders", due, 30, nil,
			valueobject.NewMoneyFromFloat(5000), valueobject.Zero(), decimal.Zero)
		require.NoError(t, err)

		calc := NewInterestCalculator()
		breakdown, err := calc.ComputeInterest(invB, day(2026, 1, 15))
		require.NoError(t, err)

		_, err = resolver.Resolve(invA, breakdown)
		assert.Error(t, err)
	})
}
