package loan

import (
	"math"

	"credit-acceleration/pkg/money"
)

// MonthlyPayment returns the level payment that amortizes principal over
// months at annualRate (a fraction, 0.045 = 4.5%), rounded to cents.
func MonthlyPayment(principal, annualRate float64, months int) float64 {
	if principal <= 0 || months <= 0 {
		return 0
	}
	if annualRate == 0 {
		return money.Round2(principal / float64(months))
	}
	r := annualRate / 12
	n := float64(months)
	return money.Round2(principal * (r / (1 - math.Pow(1+r, -n))))
}

// ScheduleEntry is one row of an amortization schedule.
type ScheduleEntry struct {
	Period    int     `json:"period"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// Schedule builds the full amortization table. The final period absorbs
// rounding so the balance ends at exactly zero.
func Schedule(principal, annualRate float64, months int) []ScheduleEntry {
	pmt := MonthlyPayment(principal, annualRate, months)
	if pmt == 0 {
		return nil
	}
	r := annualRate / 12
	out := make([]ScheduleEntry, 0, months)
	balance := money.Round2(principal)
	for p := 1; p <= months; p++ {
		interest := money.Round2(balance * r)
		princ := money.Sub(pmt, interest)
		if p == months || princ > balance {
			princ = balance
		}
		balance = money.Sub(balance, princ)
		out = append(out, ScheduleEntry{
			Period:    p,
			Payment:   money.Add(princ, interest),
			Principal: princ,
			Interest:  interest,
			Balance:   balance,
		})
	}
	return out
}
