package ledger

import (
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Profitability is the derived profit picture for one invoice. Final gross
// profit may go negative when interest exceeds gross profit; the sign is
// preserved because it is operationally meaningful. FinalGrossProfitPct is
// nil when the invoice amount is zero, never a divide-by-zero.
type Profitability struct {
	InvoiceID           uuid.UUID        `json:"invoice_id"`
	InvoiceNumber       string           `json:"invoice_number"`
	InvoiceAmount       decimal.Decimal  `json:"invoice_amount"`
	CostBasis           decimal.Decimal  `json:"cost_basis"`
	GrossProfit         decimal.Decimal  `json:"gross_profit"`
	TotalInterest       decimal.Decimal  `json:"total_interest"`
	FinalGrossProfit    decimal.Decimal  `json:"final_gross_profit"`
	FinalGrossProfitPct *decimal.Decimal `json:"final_gross_profit_pct"`
	AsOf                time.Time        `json:"as_of"`
}

// ProfitabilityResolver combines invoice amount, cost basis and accrued
// interest into the profit figures. Like the interest breakdown, the result
// is derived on demand and never stored.
type ProfitabilityResolver struct {
	calculator *InterestCalculator
}

// NewProfitabilityResolver creates a new profitability resolver
func NewProfitabilityResolver(calculator *InterestCalculator) *ProfitabilityResolver {
	if calculator == nil {
		calculator = NewInterestCalculator()
	}
	return &ProfitabilityResolver{calculator: calculator}
}

// Resolve derives the profitability figures from an invoice and its interest
// breakdown. A zero cost basis means the cost is unknown and gross profit
// falls back to the invoice amount, a documented approximation.
func (r *ProfitabilityResolver) Resolve(inv *Invoice, breakdown *InterestBreakdown) (*Profitability, error) {
	if inv == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice cannot be nil")
	}
	if breakdown == nil {
		return nil, shared.NewDomainError("INVALID_BREAKDOWN", "Interest breakdown cannot be nil")
	}
	if breakdown.InvoiceID != inv.ID {
		return nil, shared.NewDomainError("BREAKDOWN_MISMATCH", "Interest breakdown belongs to a different invoice")
	}

	grossProfit := inv.Amount.Sub(inv.CostBasis).Round(2)
	finalGrossProfit := grossProfit.Sub(breakdown.TotalInterest).Round(2)

	var pct *decimal.Decimal
	if inv.Amount.GreaterThan(decimal.Zero) {
		v := finalGrossProfit.Div(inv.Amount).Mul(decimal.NewFromInt(100)).Round(2)
		pct = &v
	}

	return &Profitability{
		InvoiceID:           inv.ID,
		InvoiceNumber:       inv.InvoiceNumber,
		InvoiceAmount:       inv.Amount,
		CostBasis:           inv.CostBasis,
		GrossProfit:         grossProfit,
		TotalInterest:       breakdown.TotalInterest,
		FinalGrossProfit:    finalGrossProfit,
		FinalGrossProfitPct: pct,
		AsOf:                breakdown.AsOf,
	}, nil
}

// ResolveAsOf computes the interest breakdown and resolves profitability in
// one step
func (r *ProfitabilityResolver) ResolveAsOf(inv *Invoice, asOf time.Time) (*Profitability, error) {
	breakdown, err := r.calculator.ComputeInterest(inv, asOf)
	if err != nil {
		return nil, err
	}
	return r.Resolve(inv, breakdown)
}
