package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	AED Currency = "AED"
)

// DefaultCurrency is used wherever no explicit currency is given. The
// ledger is single-currency; the code is carried for display only.
const DefaultCurrency = INR

// Money is an immutable monetary amount. Arithmetic returns new values
// at full decimal precision; multi-step computations must re-quantize
// via Round2 before the result re-enters the ledger, so repeated
// recomputation cannot drift.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney builds a Money in an explicit currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromFloat builds a default-currency Money from a float64
func NewMoneyFromFloat(amount float64) Money {
	return Money{amount: decimal.NewFromFloat(amount), currency: DefaultCurrency}
}

// NewMoneyFromDecimal builds a default-currency Money
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: DefaultCurrency}
}

// NewMoneyFromString parses a decimal string into a default-currency Money
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return Money{amount: d, currency: DefaultCurrency}, nil
}

// Zero is the default-currency zero amount
func Zero() Money {
	return Money{amount: decimal.Zero, currency: DefaultCurrency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

// sameCurrency guards every binary operation; mixing currencies is a
// programming error surfaced to the caller.
func (m Money) sameCurrency(verb string, other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("cannot %s money with different currencies: %s and %s", verb, m.currency, other.currency)
	}
	return nil
}

// derive keeps the currency while swapping the amount
func (m Money) derive(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: m.currency}
}

// Add sums two amounts in the same currency
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency("add", other); err != nil {
		return Money{}, err
	}
	return m.derive(m.amount.Add(other.amount)), nil
}

// MustAdd is Add for callers that have already verified the currencies
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract takes the difference of two amounts in the same currency
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency("subtract", other); err != nil {
		return Money{}, err
	}
	return m.derive(m.amount.Sub(other.amount)), nil
}

// MustSubtract is Subtract for callers that have already verified the currencies
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Multiply scales the amount by factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return m.derive(m.amount.Mul(factor))
}

// Divide divides the amount, rejecting a zero divisor
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, errors.New("cannot divide by zero")
	}
	return m.derive(m.amount.Div(divisor)), nil
}

// Negate flips the sign
func (m Money) Negate() Money {
	return m.derive(m.amount.Neg())
}

// Round2 quantizes to two decimal places. Every multi-step ledger
// computation must pass through here before the result is stored or
// compared.
func (m Money) Round2() Money {
	return m.derive(m.amount.Round(2))
}

// ClampNonNegative floors the amount at zero
func (m Money) ClampNonNegative() Money {
	if m.amount.IsNegative() {
		return m.derive(decimal.Zero)
	}
	return m
}

// Min picks the smaller of two same-currency amounts
func Min(a, b Money) (Money, error) {
	if err := a.sameCurrency("compare", b); err != nil {
		return Money{}, err
	}
	return a.derive(decimal.Min(a.amount, b.amount)), nil
}

// Equals compares amount and currency exactly
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan compares two same-currency amounts
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.sameCurrency("compare", other); err != nil {
		return false, err
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan compares two same-currency amounts
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency("compare", other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// String renders "123.45 INR"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// StringFixed renders the bare amount at the given precision
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

// Float64 converts the amount, possibly losing precision. Display only.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// moneyJSON is the wire shape: the amount travels as a string so no
// precision is lost in transit
type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler for request binding. An
// empty currency falls back to DefaultCurrency.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	m.amount = amount
	m.currency = v.Currency
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// Value implements driver.Valuer; only the numeric amount is stored
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner. Only the amount is read back; currency
// defaults to DefaultCurrency if not already set.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		m.currency = DefaultCurrency
		return nil
	}

	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}

	m.amount = amount
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// CalculatePercentage returns percent% of the amount
func (m Money) CalculatePercentage(percent decimal.Decimal) Money {
	return m.derive(m.amount.Mul(percent).Div(decimal.NewFromInt(100)))
}

// PercentageOf returns (m / base) * 100 rounded to two places, or nil
// when base is not positive. The nil result is how the ledger expresses
// an undefined percentage; consumers render it as "—", never as zero.
func (m Money) PercentageOf(base Money) *decimal.Decimal {
	if base.amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	pct := m.amount.Div(base.amount).Mul(decimal.NewFromInt(100)).Round(2)
	return &pct
}
