package valueobject

import (
	"time"

	"github.com/shopspring/decimal"
)

// DaysInYear is the day-count denominator for converting annual interest
// rates to daily rates. Simple interest, actual/365.
const DaysInYear = 365

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b is before a. Time-of-day and timezone offsets are
// discarded so a payment at 23:59 and one at 00:01 on the same date count
// identically.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

// DaysOverdue returns the calendar days paymentDate falls after dueDate,
// floored at zero. A payment on or before the due date is on time.
func DaysOverdue(paymentDate, dueDate time.Time) int {
	days := DaysBetween(dueDate, paymentDate)
	if days < 0 {
		return 0
	}
	return days
}

// DailyRate converts an annual percentage rate to a daily fractional rate
// (annualRatePct / 100 / 365). A zero or negative annual rate yields zero.
func DailyRate(annualRatePct decimal.Decimal) decimal.Decimal {
	if annualRatePct.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return annualRatePct.
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(DaysInYear))
}

// SimpleInterest computes principal * dailyRate * days, quantized to two
// decimal places. Zero when days or the rate is not positive.
func SimpleInterest(principal Money, annualRatePct decimal.Decimal, days int) Money {
	if days <= 0 {
		return Zero()
	}
	rate := DailyRate(annualRatePct)
	if rate.IsZero() {
		return Zero()
	}
	return principal.
		Multiply(rate).
		Multiply(decimal.NewFromInt(int64(days))).
		Round2()
}
