// Package billing implements the amortization and delinquency rules for
// fixed-term weekly installment loans: 50 weekly installments at a flat 10%
// interest on the principal. All functions are pure; callers pass the clock
// and the payment history explicitly.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// TermWeeks is the fixed repayment horizon.
const TermWeeks = 50

var (
	interestRate = decimal.New(10, -2) // flat 10%
	termWeeks    = decimal.NewFromInt(TermWeeks)
)

// TotalAmount returns the full repayment amount, principal plus flat
// interest, rounded to currency precision.
func TotalAmount(principal decimal.Decimal) decimal.Decimal {
	return principal.Add(principal.Mul(interestRate)).Round(2)
}

// WeeklyPayment returns the flat per-week installment.
func WeeklyPayment(principal decimal.Decimal) decimal.Decimal {
	return TotalAmount(principal).Div(termWeeks).Round(2)
}

// FinalDueAmount returns the week-50 due amount with the per-week rounding
// remainder folded in, so a displayed schedule sums exactly to TotalAmount.
// Recorded payments always use the flat weekly amount regardless.
func FinalDueAmount(principal decimal.Decimal) decimal.Decimal {
	weekly := WeeklyPayment(principal)
	return TotalAmount(principal).Sub(weekly.Mul(decimal.NewFromInt(TermWeeks - 1)))
}

// CurrentWeek maps calendar time to a 1-based week index since the loan
// start date, clamped to [1, TermWeeks]. Days 0-6 are week 1. A start date
// in the future still reports week 1.
func CurrentWeek(startDate, now time.Time) int {
	days := daysBetween(startDate, now)
	week := days/7 + 1
	if week < 1 {
		return 1
	}
	if week > TermWeeks {
		return TermWeeks
	}
	return week
}

func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.UTC().Date()
	ty, tm, td := to.UTC().Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// OutstandingBalance returns the total amount minus everything paid so far,
// floored at zero so rounding surplus never reports a negative balance.
func OutstandingBalance(principal decimal.Decimal, paid []decimal.Decimal) decimal.Decimal {
	total := TotalAmount(principal)
	for _, p := range paid {
		total = total.Sub(p)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// NextPaymentWeek resolves the week a new payment should be credited to:
// the earliest unpaid week, scanning up to one past the highest paid week so
// a missed week is backfilled before the schedule advances. The second
// return is false once all TermWeeks installments are recorded.
func NextPaymentWeek(paidWeeks []int) (int, bool) {
	paid := make(map[int]bool, len(paidWeeks))
	last := 0
	for _, w := range paidWeeks {
		paid[w] = true
		if w > last {
			last = w
		}
	}
	for week := 1; week <= last+1; week++ {
		if !paid[week] {
			if week > TermWeeks {
				return 0, false
			}
			return week, true
		}
	}
	return 0, false
}

// IsDelinquent reports whether the loan is delinquent at the given calendar
// week: both the current and the immediately preceding week must have a
// recorded payment. Week 1 is a grace period and is never delinquent.
func IsDelinquent(currentWeek int, paidWeeks []int) bool {
	if currentWeek <= 1 {
		return false
	}
	covered := 0
	for _, w := range paidWeeks {
		if w == currentWeek || w == currentWeek-1 {
			covered++
		}
	}
	return covered < 2
}
