package ledger

import (
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InterestCombinePolicy controls how opening-balance interest and tranche
// interest combine when both apply to the same customer
type InterestCombinePolicy string

const (
	// InterestCombineSum adds the opening-balance term to the tranche total
	InterestCombineSum InterestCombinePolicy = "SUM"
	// InterestCombineCompound accrues the opening-balance term on the opening
	// balance plus the tranche interest already earned
	InterestCombineCompound InterestCombinePolicy = "COMPOUND"
)

// IsValid checks if the policy is valid
func (p InterestCombinePolicy) IsValid() bool {
	switch p {
	case InterestCombineSum, InterestCombineCompound:
		return true
	}
	return false
}

// String returns the string representation
func (p InterestCombinePolicy) String() string {
	return string(p)
}

// InterestTranche is the interest detail for a single allocation. Days overdue
// and interest are derived from the allocation's payment date against the
// invoice due date at computation time.
type InterestTranche struct {
	AllocationID uuid.UUID       `json:"allocation_id"`
	ReceiptID    uuid.UUID       `json:"receipt_id"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  time.Time       `json:"payment_date"`
	DaysOverdue  int             `json:"days_overdue"`
	Interest     decimal.Decimal `json:"interest"`
}

// InterestBreakdown is the full interest picture for one invoice. It is a
// pure function of (invoice, allocations, rate, asOf) and is never stored.
type InterestBreakdown struct {
	InvoiceID           uuid.UUID         `json:"invoice_id"`
	InvoiceNumber       string            `json:"invoice_number"`
	InterestRatePct     decimal.Decimal   `json:"interest_rate_pct"`
	PerTranche          []InterestTranche `json:"per_tranche"`
	TrancheInterest     decimal.Decimal   `json:"tranche_interest"`      // Σ interest over settled tranches
	AccruedOutstanding  decimal.Decimal   `json:"accrued_outstanding"`   // Interest accruing on the unpaid balance as of asOf; informational, not part of TotalInterest
	OpeningBalanceTerm  decimal.Decimal   `json:"opening_balance_term"`  // Customer opening-balance interest, zero unless computed at customer level
	TotalInterest       decimal.Decimal   `json:"total_interest"`        // TrancheInterest plus OpeningBalanceTerm
	AsOf                time.Time         `json:"as_of"`
}

// InterestCalculator derives interest owed per tranche and in aggregate.
// Interest is simple (linear) on the allocated amount of each tranche, at a
// daily rate of annualRate/365, for the calendar days between due date and
// payment date.
type InterestCalculator struct {
	combinePolicy InterestCombinePolicy
}

// InterestCalculatorOption is a functional option for the calculator
type InterestCalculatorOption func(*InterestCalculator)

// WithCombinePolicy sets how opening-balance interest combines with tranche interest
func WithCombinePolicy(policy InterestCombinePolicy) InterestCalculatorOption {
	return func(c *InterestCalculator) {
		if policy.IsValid() {
			c.combinePolicy = policy
		}
	}
}

// NewInterestCalculator creates a new interest calculator
func NewInterestCalculator(opts ...InterestCalculatorOption) *InterestCalculator {
	c := &InterestCalculator{
		combinePolicy: InterestCombineSum,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CombinePolicy returns the configured combine policy
func (c *InterestCalculator) CombinePolicy() InterestCombinePolicy {
	return c.combinePolicy
}

// ComputeInterest computes the interest breakdown for an invoice from its
// allocation set. asOf drives the accrual on the unpaid balance only; settled
// tranches always use their own payment dates.
func (c *InterestCalculator) ComputeInterest(inv *Invoice, asOf time.Time) (*InterestBreakdown, error) {
	if inv == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice cannot be nil")
	}
	if asOf.IsZero() {
		return nil, shared.NewDomainError("INVALID_AS_OF", "As-of date is required")
	}

	breakdown := &InterestBreakdown{
		InvoiceID:          inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		InterestRatePct:    inv.InterestRatePct,
		PerTranche:         make([]InterestTranche, 0, len(inv.Allocations)),
		TrancheInterest:    decimal.Zero,
		AccruedOutstanding: decimal.Zero,
		OpeningBalanceTerm: decimal.Zero,
		TotalInterest:      decimal.Zero,
		AsOf:               asOf,
	}

	if inv.InterestRatePct.LessThanOrEqual(decimal.Zero) {
		return breakdown, nil
	}

	for _, alloc := range inv.Allocations {
		days := valueobject.DaysOverdue(alloc.PaymentDate, inv.DueDate)
		interest := valueobject.SimpleInterest(alloc.GetAmountMoney(), inv.InterestRatePct, days)

		breakdown.PerTranche = append(breakdown.PerTranche, InterestTranche{
			AllocationID: alloc.ID,
			ReceiptID:    alloc.ReceiptID,
			Amount:       alloc.Amount,
			PaymentDate:  alloc.PaymentDate,
			DaysOverdue:  days,
			Interest:     interest.Amount(),
		})
		breakdown.TrancheInterest = breakdown.TrancheInterest.Add(interest.Amount())
	}

	if inv.Outstanding.GreaterThan(decimal.Zero) && !inv.Status.IsTerminal() {
		days := valueobject.DaysOverdue(asOf, inv.DueDate)
		accrued := valueobject.SimpleInterest(inv.GetOutstandingMoney(), inv.InterestRatePct, days)
		breakdown.AccruedOutstanding = accrued.Amount()
	}

	breakdown.TotalInterest = breakdown.TrancheInterest
	return breakdown, nil
}

// ComputeOpeningBalanceInterest computes the opening-balance interest term for
// a customer: simple interest on the opening balance from the configured
// anchor date to asOf. Zero when the balance, rate, or anchor is absent.
func (c *InterestCalculator) ComputeOpeningBalanceInterest(
	openingBalance valueobject.Money,
	annualRatePct decimal.Decimal,
	anchorDate *time.Time,
	asOf time.Time,
) valueobject.Money {
	if anchorDate == nil || anchorDate.IsZero() {
		return valueobject.Zero()
	}
	if openingBalance.Amount().LessThanOrEqual(decimal.Zero) {
		return valueobject.Zero()
	}
	days := valueobject.DaysOverdue(asOf, *anchorDate)
	return valueobject.SimpleInterest(openingBalance, annualRatePct, days)
}

// CustomerInterestSummary aggregates interest across a customer's invoices
// plus the opening-balance term
type CustomerInterestSummary struct {
	CustomerID          uuid.UUID           `json:"customer_id"`
	Breakdowns          []InterestBreakdown `json:"breakdowns"`
	InvoiceInterest     decimal.Decimal     `json:"invoice_interest"`
	OpeningBalanceTerm  decimal.Decimal     `json:"opening_balance_term"`
	TotalInterest       decimal.Decimal     `json:"total_interest"`
	AsOf                time.Time           `json:"as_of"`
}

// ComputeCustomerInterest computes interest across all of a customer's
// invoices and combines it with the opening-balance term per the configured
// policy. Under SUM the two terms add; under COMPOUND the opening-balance
// rate is applied to the opening balance grown by the invoice interest
// already earned.
func (c *InterestCalculator) ComputeCustomerInterest(
	customerID uuid.UUID,
	invoices []*Invoice,
	profile *CustomerCreditProfile,
	asOf time.Time,
) (*CustomerInterestSummary, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}

	summary := &CustomerInterestSummary{
		CustomerID:         customerID,
		Breakdowns:         make([]InterestBreakdown, 0, len(invoices)),
		InvoiceInterest:    decimal.Zero,
		OpeningBalanceTerm: decimal.Zero,
		TotalInterest:      decimal.Zero,
		AsOf:               asOf,
	}

	for _, inv := range invoices {
		if inv.CustomerID != customerID {
			return nil, shared.NewDomainError("CUSTOMER_MISMATCH", "Invoice belongs to a different customer")
		}
		breakdown, err := c.ComputeInterest(inv, asOf)
		if err != nil {
			return nil, err
		}
		summary.Breakdowns = append(summary.Breakdowns, *breakdown)
		summary.InvoiceInterest = summary.InvoiceInterest.Add(breakdown.TotalInterest)
	}

	if profile != nil && profile.HasOpeningBalanceInterest() {
		principal := profile.GetCustomerOpeningBalanceMoney()
		if c.combinePolicy == InterestCombineCompound {
			principal = valueobject.NewMoneyFromDecimal(principal.Amount().Add(summary.InvoiceInterest)).Round2()
		}
		term := c.ComputeOpeningBalanceInterest(principal, profile.InterestRatePct, profile.InterestAnchorDate, asOf)
		summary.OpeningBalanceTerm = term.Amount()
	}

	summary.TotalInterest = summary.InvoiceInterest.Add(summary.OpeningBalanceTerm)
	return summary, nil
}
