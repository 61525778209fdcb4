// Package schedule holds the billing-schedule arithmetic for subscriptions:
// end dates of fixed-term subscriptions, next charge dates across pause and
// resume, and manual proration for schedule-backed subscriptions.
//
// Everything here is pure. "Now" comes from the Calculator's clock so the
// same inputs always produce the same dates in tests.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Period is the calendar unit a subscription bills in.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ValidPeriods lists all valid period values.
var ValidPeriods = []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear}

// ParsePeriod converts a stored or remote interval string into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("schedule: invalid period %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// Add returns t advanced by n units of the period.
//
// Month and year steps clamp to the last day of the target month, so
// Jan 31 + 1 month is Feb 28 (or 29) rather than Mar 3.
func (p Period) Add(t time.Time, n int) time.Time {
	switch p {
	case PeriodDay:
		return t.AddDate(0, 0, n)
	case PeriodWeek:
		return t.AddDate(0, 0, 7*n)
	case PeriodMonth:
		return addMonths(t, n)
	case PeriodYear:
		return addMonths(t, 12*n)
	}
	return t
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Schedule is the subset of a subscription the calculator needs.
type Schedule struct {
	Period        Period
	Frequency     int
	BillingTotal  *int
	BilledCount   int
	StartedAt     time.Time
	NextBillingAt *time.Time
	ResumedAt     *time.Time
}

// interval returns the frequency, treating non-positive values as 1.
func (s Schedule) interval() int {
	if s.Frequency <= 0 {
		return 1
	}
	return s.Frequency
}

// NextBilling is the result of a next-billing calculation.
type NextBilling struct {
	At time.Time

	// ClearResumedAt is set when the calculation consumed the resume marker.
	ClearResumedAt bool
}

// Clock returns the current time.
type Clock func() time.Time

// Calculator computes schedule dates relative to its clock.
type Calculator struct {
	now Clock
}

// NewCalculator creates a Calculator. A nil clock uses time.Now.
func NewCalculator(clock Clock) *Calculator {
	if clock == nil {
		clock = time.Now
	}
	return &Calculator{now: clock}
}

// Now returns the calculator's current time.
func (c *Calculator) Now() time.Time {
	return c.now()
}

// CalculateEndDate returns startedAt + frequency*billingTotal periods.
// The second return value is false for open-ended subscriptions.
func (c *Calculator) CalculateEndDate(s Schedule) (time.Time, bool) {
	if s.BillingTotal == nil {
		return time.Time{}, false
	}
	return s.Period.Add(s.StartedAt, s.interval()*(*s.BillingTotal)), true
}

// CalculateNextBillingDate returns the next charge date.
//
// Before the first charge the cycle is anchored at startedAt. A pending
// resume marker re-anchors the cycle: at the marker when it has been
// reached, at now when the customer resumed before it. Otherwise the cycle
// advances from the current next billing date. The result never precedes
// the previous next billing date.
func (c *Calculator) CalculateNextBillingDate(s Schedule) NextBilling {
	step := s.interval()

	if s.BilledCount == 0 || s.NextBillingAt == nil {
		return NextBilling{At: s.Period.Add(s.StartedAt, step)}
	}

	var next NextBilling
	if s.ResumedAt != nil {
		now := c.now()
		anchor := now
		if !now.Before(*s.ResumedAt) {
			anchor = *s.ResumedAt
		}
		next = NextBilling{At: s.Period.Add(anchor, step), ClearResumedAt: true}
	} else {
		next = NextBilling{At: s.Period.Add(*s.NextBillingAt, step)}
	}

	if next.At.Before(*s.NextBillingAt) {
		next.At = *s.NextBillingAt
	}
	return next
}

// CalculateNextBillingDateFromToday anchors a fresh cycle at now. Used when
// a remote schedule is (re)synchronized and no local anchor can be trusted.
func (c *Calculator) CalculateNextBillingDateFromToday(s Schedule) time.Time {
	return s.Period.Add(c.now(), s.interval())
}

// CalculateProrationAmountManually prorates the recurring amount over the
// unused part of the current cycle. Used for schedule-backed subscriptions,
// which have no upcoming invoice to ask the gateway about.
//
// The fraction is (nextBillingAt - now) / (nextBillingAt - createdAt) and is
// clamped to zero when it is not positive. The result is rounded to cents.
func (c *Calculator) CalculateProrationAmountManually(recurringAmount, lastOrderAmount decimal.Decimal, createdAt, nextBillingAt time.Time) decimal.Decimal {
	if !lastOrderAmount.IsPositive() {
		return decimal.Zero
	}

	now := c.now()
	if !now.Before(nextBillingAt) || !createdAt.Before(nextBillingAt) {
		return decimal.Zero
	}

	remaining := nextBillingAt.Sub(now)
	total := nextBillingAt.Sub(createdAt)
	if remaining <= 0 || total <= 0 {
		return decimal.Zero
	}

	fraction := decimal.NewFromInt(int64(remaining)).Div(decimal.NewFromInt(int64(total)))
	if !fraction.IsPositive() {
		return decimal.Zero
	}
	if fraction.GreaterThan(decimal.NewFromInt(1)) {
		fraction = decimal.NewFromInt(1)
	}

	return recurringAmount.Mul(fraction).Round(2)
}
