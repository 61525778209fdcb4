package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestParsePeriod(t *testing.T) {
	for _, p := range ValidPeriods {
		got, err := ParsePeriod(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePeriod("fortnight")
	assert.Error(t, err)
}

func TestPeriod_Add(t *testing.T) {
	tests := []struct {
		name   string
		period Period
		start  time.Time
		n      int
		want   time.Time
	}{
		{"days", PeriodDay, date(2025, 1, 30), 3, date(2025, 2, 2)},
		{"weeks", PeriodWeek, date(2025, 1, 1), 2, date(2025, 1, 15)},
		{"month", PeriodMonth, date(2025, 1, 1), 1, date(2025, 2, 1)},
		{"month clamps to end of february", PeriodMonth, date(2025, 1, 31), 1, date(2025, 2, 28)},
		{"month clamps in leap year", PeriodMonth, date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"month crosses year", PeriodMonth, date(2025, 11, 15), 3, date(2026, 2, 15)},
		{"year from leap day", PeriodYear, date(2024, 2, 29), 1, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.period.Add(tt.start, tt.n))
		})
	}
}

func TestCalculateEndDate(t *testing.T) {
	c := NewCalculator(fixedClock(date(2025, 1, 1)))

	t.Run("open-ended has no end date", func(t *testing.T) {
		_, ok := c.CalculateEndDate(Schedule{Period: PeriodMonth, Frequency: 1, StartedAt: date(2025, 1, 1)})
		assert.False(t, ok)
	})

	t.Run("three monthly installments", func(t *testing.T) {
		end, ok := c.CalculateEndDate(Schedule{
			Period:       PeriodMonth,
			Frequency:    1,
			BillingTotal: intPtr(3),
			StartedAt:    date(2025, 1, 1),
		})
		require.True(t, ok)
		assert.Equal(t, date(2025, 4, 1), end)
	})

	t.Run("end date is start plus frequency times total periods", func(t *testing.T) {
		for _, p := range ValidPeriods {
			for freq := 1; freq <= 3; freq++ {
				for total := 1; total <= 12; total++ {
					s := Schedule{Period: p, Frequency: freq, BillingTotal: intPtr(total), StartedAt: date(2025, 1, 31)}
					end, ok := c.CalculateEndDate(s)
					require.True(t, ok)
					assert.Equal(t, p.Add(s.StartedAt, freq*total), end, "period=%s freq=%d total=%d", p, freq, total)
				}
			}
		}
	})
}

func TestCalculateNextBillingDate_FirstCycle(t *testing.T) {
	c := NewCalculator(fixedClock(date(2025, 1, 10)))

	next := c.CalculateNextBillingDate(Schedule{
		Period:    PeriodMonth,
		Frequency: 1,
		StartedAt: date(2025, 1, 1),
	})
	assert.Equal(t, date(2025, 2, 1), next.At)
	assert.False(t, next.ClearResumedAt)

	next = c.CalculateNextBillingDate(Schedule{
		Period:      PeriodWeek,
		Frequency:   2,
		BilledCount: 3,
		StartedAt:   date(2025, 1, 1),
	})
	assert.Equal(t, date(2025, 1, 15), next.At, "missing next billing date anchors at start")
}

func TestCalculateNextBillingDate_AdvancesFromPrevious(t *testing.T) {
	c := NewCalculator(fixedClock(date(2025, 2, 1)))

	next := c.CalculateNextBillingDate(Schedule{
		Period:        PeriodMonth,
		Frequency:     1,
		BilledCount:   2,
		StartedAt:     date(2025, 1, 1),
		NextBillingAt: timePtr(date(2025, 2, 1)),
	})
	assert.Equal(t, date(2025, 3, 1), next.At)
}

func TestCalculateNextBillingDate_Monotonic(t *testing.T) {
	c := NewCalculator(fixedClock(date(2025, 1, 1)))

	s := Schedule{Period: PeriodMonth, Frequency: 1, StartedAt: date(2025, 1, 31)}
	var prev time.Time
	for i := 0; i < 24; i++ {
		next := c.CalculateNextBillingDate(s)
		assert.False(t, next.At.Before(prev), "cycle %d went backwards", i)
		prev = next.At
		s.BilledCount++
		s.NextBillingAt = timePtr(next.At)
	}
}

func TestCalculateNextBillingDate_Resume(t *testing.T) {
	resumeAt := date(2025, 3, 15)
	base := Schedule{
		Period:        PeriodMonth,
		Frequency:     1,
		BilledCount:   2,
		StartedAt:     date(2025, 1, 1),
		NextBillingAt: timePtr(date(2025, 3, 1)),
		ResumedAt:     timePtr(resumeAt),
	}

	t.Run("resumed early anchors at now", func(t *testing.T) {
		c := NewCalculator(fixedClock(date(2025, 3, 5)))
		next := c.CalculateNextBillingDate(base)
		assert.Equal(t, date(2025, 4, 5), next.At)
		assert.True(t, next.ClearResumedAt)
	})

	t.Run("resumed on schedule anchors at resume date", func(t *testing.T) {
		c := NewCalculator(fixedClock(date(2025, 3, 20)))
		next := c.CalculateNextBillingDate(base)
		assert.Equal(t, date(2025, 4, 15), next.At)
		assert.True(t, next.ClearResumedAt)
	})

	t.Run("resume exactly at marker anchors at marker", func(t *testing.T) {
		c := NewCalculator(fixedClock(resumeAt))
		next := c.CalculateNextBillingDate(base)
		assert.Equal(t, date(2025, 4, 15), next.At)
	})
}

func TestCalculateNextBillingDateFromToday(t *testing.T) {
	c := NewCalculator(fixedClock(date(2025, 6, 10)))
	got := c.CalculateNextBillingDateFromToday(Schedule{Period: PeriodWeek, Frequency: 1})
	assert.Equal(t, date(2025, 6, 17), got)
}

func TestCalculateProrationAmountManually(t *testing.T) {
	recurring := decimal.RequireFromString("30.00")
	created := date(2025, 1, 1)
	next := date(2025, 1, 31)

	tests := []struct {
		name string
		now  time.Time
		last decimal.Decimal
		want string
	}{
		{"half cycle remaining", date(2025, 1, 16), decimal.RequireFromString("30"), "15"},
		{"nothing charged yet", date(2025, 1, 16), decimal.Zero, "0"},
		{"negative last charge", date(2025, 1, 2), decimal.RequireFromString("-5"), "0"},
		{"cycle over", date(2025, 2, 1), decimal.RequireFromString("30"), "0"},
		{"exactly at next billing", next, decimal.RequireFromString("30"), "0"},
		{"rounded to cents", date(2025, 1, 21), decimal.RequireFromString("30"), "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCalculator(fixedClock(tt.now))
			got := c.CalculateProrationAmountManually(recurring, tt.last, created, next)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}

	t.Run("created after next billing", func(t *testing.T) {
		c := NewCalculator(fixedClock(date(2025, 1, 1)))
		got := c.CalculateProrationAmountManually(recurring, recurring, date(2025, 2, 1), date(2025, 1, 15))
		assert.True(t, got.IsZero())
	})

	t.Run("zero last amount ignores elapsed time", func(t *testing.T) {
		for d := 1; d <= 31; d++ {
			c := NewCalculator(fixedClock(date(2025, 1, d)))
			assert.True(t, c.CalculateProrationAmountManually(recurring, decimal.Zero, created, next).IsZero())
		}
	})
}
