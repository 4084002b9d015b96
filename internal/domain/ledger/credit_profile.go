package ledger

import (
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerCategory groups customers for opening-balance bookkeeping
type CustomerCategory string

const (
	CustomerCategoryRetail      CustomerCategory = "RETAIL"
	CustomerCategoryWholesale   CustomerCategory = "WHOLESALE"
	CustomerCategoryDistributor CustomerCategory = "DISTRIBUTOR"
	CustomerCategoryOther       CustomerCategory = "OTHER"
)

// IsValid checks if the category is valid
func (c CustomerCategory) IsValid() bool {
	switch c {
	case CustomerCategoryRetail, CustomerCategoryWholesale, CustomerCategoryDistributor, CustomerCategoryOther:
		return true
	}
	return false
}

// String returns the string representation
func (c CustomerCategory) String() string {
	return string(c)
}

// CustomerCreditProfile holds the credit terms for one customer. Utilization
// figures are derived on read, never stored on the profile.
type CustomerCreditProfile struct {
	shared.BaseAggregateRoot
	CustomerID             uuid.UUID        `json:"customer_id"`
	CustomerName           string           `json:"customer_name"`
	Category               CustomerCategory `json:"category"`
	CreditLimit            decimal.Decimal  `json:"credit_limit"`
	CategoryOpeningBalance decimal.Decimal  `json:"category_opening_balance"`
	CustomerOpeningBalance decimal.Decimal  `json:"customer_opening_balance"`
	InterestRatePct        decimal.Decimal  `json:"interest_rate_pct"`  // Default annual rate for the customer's invoices and opening balance
	InterestAnchorDate     *time.Time       `json:"interest_anchor_date"` // Opening-balance interest accrues from this date; nil disables it
}

// NewCustomerCreditProfile creates a new credit profile
func NewCustomerCreditProfile(
	customerID uuid.UUID,
	customerName string,
	category CustomerCategory,
	creditLimit valueobject.Money,
) (*CustomerCreditProfile, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Customer category is not valid")
	}
	if creditLimit.IsNegative() {
		return nil, shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}

	return &CustomerCreditProfile{
		BaseAggregateRoot:      shared.NewBaseAggregateRoot(),
		CustomerID:             customerID,
		CustomerName:           customerName,
		Category:               category,
		CreditLimit:            creditLimit.Amount(),
		CategoryOpeningBalance: decimal.Zero,
		CustomerOpeningBalance: decimal.Zero,
		InterestRatePct:        decimal.Zero,
	}, nil
}

// SetCreditLimit updates the credit limit
func (p *CustomerCreditProfile) SetCreditLimit(limit valueobject.Money) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	p.CreditLimit = limit.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SetCategory updates the customer category
func (p *CustomerCreditProfile) SetCategory(category CustomerCategory) error {
	if !category.IsValid() {
		return shared.NewDomainError("INVALID_CATEGORY", "Customer category is not valid")
	}
	p.Category = category
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SetOpeningBalances updates the category and customer opening balances
func (p *CustomerCreditProfile) SetOpeningBalances(categoryBalance, customerBalance valueobject.Money) error {
	if categoryBalance.IsNegative() || customerBalance.IsNegative() {
		return shared.NewDomainError("INVALID_OPENING_BALANCE", "Opening balances cannot be negative")
	}
	p.CategoryOpeningBalance = categoryBalance.Amount()
	p.CustomerOpeningBalance = customerBalance.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SetInterestPolicy updates the customer-level interest rate and the
// opening-balance anchor date
func (p *CustomerCreditProfile) SetInterestPolicy(ratePct decimal.Decimal, anchorDate *time.Time) error {
	if ratePct.IsNegative() {
		return shared.NewDomainError("INVALID_INTEREST_RATE", "Interest rate cannot be negative")
	}
	p.InterestRatePct = ratePct
	p.InterestAnchorDate = anchorDate
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// HasOpeningBalanceInterest returns true when the opening-balance interest
// term applies to this customer
func (p *CustomerCreditProfile) HasOpeningBalanceInterest() bool {
	return p.InterestAnchorDate != nil &&
		p.InterestRatePct.GreaterThan(decimal.Zero) &&
		p.CustomerOpeningBalance.GreaterThan(decimal.Zero)
}

// GetCreditLimitMoney returns the credit limit as Money
func (p *CustomerCreditProfile) GetCreditLimitMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(p.CreditLimit)
}

// GetCustomerOpeningBalanceMoney returns the customer opening balance as Money
func (p *CustomerCreditProfile) GetCustomerOpeningBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyFromDecimal(p.CustomerOpeningBalance)
}

// UtilizationBucket is the dashboard band for a utilization percentage
type UtilizationBucket string

const (
	UtilizationBucketUndefined    UtilizationBucket = "UNDEFINED"     // No credit limit set
	UtilizationBucketNotUtilized  UtilizationBucket = "NOT_UTILIZED"  // 0%
	UtilizationBucketLow          UtilizationBucket = "LOW"           // 1-25%
	UtilizationBucketModerate     UtilizationBucket = "MODERATE"      // 26-50%
	UtilizationBucketHigh         UtilizationBucket = "HIGH"          // 51-75%
	UtilizationBucketCritical     UtilizationBucket = "CRITICAL"      // 76-100%
	UtilizationBucketOverUtilized UtilizationBucket = "OVER_UTILIZED" // >100%
)

// String returns the string representation
func (b UtilizationBucket) String() string {
	return string(b)
}

// BucketForUtilization maps a utilization percentage to its dashboard band.
// Boundaries are inclusive on both ends; a nil percentage (no credit limit)
// maps to UNDEFINED.
func BucketForUtilization(pct *decimal.Decimal) UtilizationBucket {
	if pct == nil {
		return UtilizationBucketUndefined
	}
	v := *pct
	switch {
	case v.LessThanOrEqual(decimal.Zero):
		return UtilizationBucketNotUtilized
	case v.LessThanOrEqual(decimal.NewFromInt(25)):
		return UtilizationBucketLow
	case v.LessThanOrEqual(decimal.NewFromInt(50)):
		return UtilizationBucketModerate
	case v.LessThanOrEqual(decimal.NewFromInt(75)):
		return UtilizationBucketHigh
	case v.LessThanOrEqual(decimal.NewFromInt(100)):
		return UtilizationBucketCritical
	default:
		return UtilizationBucketOverUtilized
	}
}

// Utilization is the derived credit-utilization view for one customer.
// UtilizationPct is nil when the customer has no credit limit; the dashboard
// renders it as a dash rather than a number.
type Utilization struct {
	CustomerID     uuid.UUID         `json:"customer_id"`
	CreditLimit    decimal.Decimal   `json:"credit_limit"`
	UtilizedLimit  decimal.Decimal   `json:"utilized_limit"`
	AvailableLimit decimal.Decimal   `json:"available_limit"` // May be negative: over-utilized
	UtilizationPct *decimal.Decimal  `json:"utilization_pct"`
	Bucket         UtilizationBucket `json:"bucket"`
	InvoiceCount   int               `json:"invoice_count"`
}

// ComputeUtilization derives the utilization view from a customer's profile
// and outstanding invoices. The customer opening balance counts once toward
// the utilized limit, not per invoice. Cancelled and paid invoices contribute
// nothing.
func ComputeUtilization(profile *CustomerCreditProfile, invoices []*Invoice) (*Utilization, error) {
	if profile == nil {
		return nil, shared.NewDomainError("INVALID_PROFILE", "Credit profile cannot be nil")
	}

	utilized := profile.CustomerOpeningBalance
	count := 0
	for _, inv := range invoices {
		if inv.CustomerID != profile.CustomerID {
			return nil, shared.NewDomainError("CUSTOMER_MISMATCH", "Invoice belongs to a different customer")
		}
		if inv.Status.IsTerminal() || inv.Outstanding.LessThanOrEqual(decimal.Zero) {
			continue
		}
		utilized = utilized.Add(inv.Outstanding)
		count++
	}
	utilized = utilized.Round(2)

	available := profile.CreditLimit.Sub(utilized).Round(2)

	var pct *decimal.Decimal
	if profile.CreditLimit.GreaterThan(decimal.Zero) {
		v := utilized.Div(profile.CreditLimit).Mul(decimal.NewFromInt(100)).Round(2)
		pct = &v
	}

	return &Utilization{
		CustomerID:     profile.CustomerID,
		CreditLimit:    profile.CreditLimit,
		UtilizedLimit:  utilized,
		AvailableLimit: available,
		UtilizationPct: pct,
		Bucket:         BucketForUtilization(pct),
		InvoiceCount:   count,
	}, nil
}
