// Package money holds the currency arithmetic shared by the billing services.
// Amounts are decimal.Decimal; percentages are 0-100 values.
package money

import "github.com/shopspring/decimal"

var (
	// Cent is the absolute tolerance applied when comparing payable amounts.
	Cent = decimal.New(1, -2)
	// Unit is the looser tolerance used to recognise historical full-discount payments.
	Unit = decimal.NewFromInt(1)

	hundred = decimal.NewFromInt(100)
)

// Equal reports whether a and b differ by at most tolerance.
func Equal(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// AtLeast reports whether a >= b once tolerance is granted to a.
func AtLeast(a, b, tolerance decimal.Decimal) bool {
	return a.Add(tolerance).GreaterThanOrEqual(b)
}

// NonNegative floors d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Percent returns amount * pct / 100 without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Discounted returns amount * (1 - pct/100) without rounding.
func Discounted(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Sub(Percent(amount, pct))
}

// RoundUnits rounds to whole currency units, half away from zero (half-up for the
// non-negative amounts billing deals with).
func RoundUnits(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// RoundCents rounds to two decimal places, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ValidPercentage reports whether pct lies in [0, 100].
func ValidPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}
