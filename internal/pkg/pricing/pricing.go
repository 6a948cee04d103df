// Package pricing holds the pure money calculators: price breakdown,
// platform commission, and the cancellation refund policy. Everything is
// fixed-point decimal; binary floats never touch an amount.
package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount  = errors.New("pricing: negative amount")
	ErrDiscountTooHigh = errors.New("pricing: discount exceeds base amount")
)

// DefaultTaxRate is 12% GST on the discounted base.
var DefaultTaxRate = decimal.NewFromFloat(0.12)

// DefaultCommissionRate is the canonical platform commission (5%).
var DefaultCommissionRate = decimal.NewFromFloat(0.05)

type Breakdown struct {
	BaseAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountedBase decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ComputeBookingPrice derives tax and total from a base amount and discount.
// Amounts round half-up to 2 fraction digits, the same as every other currency
// operation here.
func ComputeBookingPrice(base, taxRate, discount decimal.Decimal) (Breakdown, error) {
	if base.IsNegative() || discount.IsNegative() || taxRate.IsNegative() {
		return Breakdown{}, ErrNegativeAmount
	}
	if discount.GreaterThan(base) {
		return Breakdown{}, ErrDiscountTooHigh
	}

	discounted := base.Sub(discount)
	tax := discounted.Mul(taxRate).Round(2)
	total := discounted.Add(tax).Round(2)

	return Breakdown{
		BaseAmount:     base.Round(2),
		DiscountAmount: discount.Round(2),
		DiscountedBase: discounted.Round(2),
		TaxAmount:      tax,
		TotalAmount:    total,
	}, nil
}

// ComputeCommission is the platform-side deduction on the guest total. It is
// never added to what the guest pays.
func ComputeCommission(total, rate decimal.Decimal) (decimal.Decimal, error) {
	if total.IsNegative() || rate.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return total.Mul(rate).Round(2), nil
}

// RefundQuote is the outcome of applying the cancellation policy.
type RefundQuote struct {
	Amount     decimal.Decimal
	Percentage int
}

// ComputeRefund applies the cancellation policy:
//
//	more than 7 days before the reference date: 100%
//	3 to 7 days (inclusive): 50%
//	under 3 days: nothing
//
// Only confirmed or completed bookings are refundable; everything else quotes
// zero. days are whole calendar days between today and the reference date.
func ComputeRefund(status string, referenceDate *time.Time, today time.Time, total decimal.Decimal) RefundQuote {
	if status != "confirmed" && status != "completed" {
		return RefundQuote{Amount: decimal.Zero, Percentage: 0}
	}
	if referenceDate == nil {
		return RefundQuote{Amount: decimal.Zero, Percentage: 0}
	}

	days := DaysUntil(*referenceDate, today)

	var pct int
	switch {
	case days > 7:
		pct = 100
	case days >= 3:
		pct = 50
	default:
		pct = 0
	}

	amount := total.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(2)
	return RefundQuote{Amount: amount, Percentage: pct}
}

// DaysUntil counts whole calendar days from today to the target date,
// ignoring the time-of-day component of both.
func DaysUntil(target, today time.Time) int {
	t := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(n).Hours() / 24)
}

// ToMinorUnits converts a 2-decimal amount to integer minor currency units
// (paise) by exponent shift. Integer arithmetic only, per gateway contract.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts gateway minor units back to a decimal amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-2)
}
