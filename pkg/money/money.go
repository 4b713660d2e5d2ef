// Package money does cent-exact arithmetic on float64 amounts. Values are
// converted to decimals, combined, and rounded back to two places so that
// running sums never drift from the entries they were built from.
package money

import "github.com/shopspring/decimal"

// Cent is the rounding tolerance used when comparing monetary amounts.
const Cent = 0.01

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// Round2 rounds f half away from zero to two decimal places.
func Round2(f float64) float64 { return d(f).Round(2).InexactFloat64() }

// RoundTo rounds f to the given number of decimal places.
func RoundTo(f float64, places int32) float64 { return d(f).Round(places).InexactFloat64() }

// Sum adds amounts exactly and rounds the result to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(d(a))
	}
	return total.Round(2).InexactFloat64()
}

func Add(a, b float64) float64 { return d(a).Add(d(b)).Round(2).InexactFloat64() }

func Sub(a, b float64) float64 { return d(a).Sub(d(b)).Round(2).InexactFloat64() }

// Mul multiplies and rounds to cents.
func Mul(a, b float64) float64 { return d(a).Mul(d(b)).Round(2).InexactFloat64() }

// Ratio returns num/den rounded to places, or 0 when den is zero.
func Ratio(num, den float64, places int32) float64 {
	dd := d(den)
	if dd.IsZero() {
		return 0
	}
	return d(num).DivRound(dd, places).InexactFloat64()
}

// Within reports whether |a-b| <= tol.
func Within(a, b, tol float64) bool {
	return d(a).Sub(d(b)).Abs().LessThanOrEqual(d(tol))
}

// Min returns the smaller amount.
func Min(a, b float64) float64 {
	if d(a).LessThan(d(b)) {
		return a
	}
	return b
}
