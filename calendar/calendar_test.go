package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meenmo/mcurve/calendar"
)

const testCal calendar.CalendarID = "TEST"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func init() {
	// Friday 2026-07-31 and Monday 2026-08-03.
	calendar.Register(testCal, date(2026, 7, 31), date(2026, 8, 3))
}

func TestAdjust(t *testing.T) {
	t.Parallel()

	// Following would land in August, so Modified Following rolls back.
	assert.Equal(t, date(2026, 7, 30), calendar.Adjust(testCal, date(2026, 7, 31)))
	assert.Equal(t, date(2026, 8, 4), calendar.AdjustFollowing(testCal, date(2026, 7, 31)))
	assert.Equal(t, date(2026, 8, 4), calendar.Adjust(testCal, date(2026, 8, 1)))

	sat := date(2026, 8, 1)
	assert.False(t, calendar.IsBusinessDay(calendar.TARGET, sat))
	assert.True(t, calendar.IsBusinessDay(calendar.NONE, sat))
	assert.Equal(t, sat, calendar.Adjust(calendar.NONE, sat))
}

func TestAddBusinessDays(t *testing.T) {
	t.Parallel()

	thu := date(2026, 7, 30)
	assert.Equal(t, date(2026, 8, 4), calendar.AddBusinessDays(testCal, thu, 1))
	assert.Equal(t, thu, calendar.AddBusinessDays(testCal, date(2026, 8, 4), -1))
	assert.Equal(t, thu, calendar.AddBusinessDays(testCal, thu, 0))

	days := calendar.BusinessDaysBetween(testCal, thu, date(2026, 8, 6))
	assert.Equal(t, []time.Time{thu, date(2026, 8, 4), date(2026, 8, 5)}, days)
}

func TestEndOfMonth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, date(2026, 7, 30), calendar.LastBusinessDayOfMonth(testCal, date(2026, 7, 1)))
	assert.True(t, calendar.IsEndOfMonth(testCal, date(2026, 7, 30)))
	assert.True(t, calendar.IsEndOfMonth(calendar.TARGET, date(2026, 7, 31)))
}
