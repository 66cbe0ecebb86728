package utils_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mcurve/utils"
)

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start, end := utils.Date(2025, 1, 31), utils.Date(2025, 7, 31)
	cases := []struct {
		conv string
		want float64
	}{
		{utils.Act360, 181.0 / 360},
		{utils.Act365F, 181.0 / 365},
		{utils.Thirty360, 180.0 / 360},
		{utils.ThirtyE360, 180.0 / 360},
		{"BUS/252", 181.0 / 365},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, utils.YearFraction(start, end, tc.conv), 1e-12, tc.conv)
	}

	// 30/360 keeps the 31st when the start is not the 30th or 31st.
	assert.InDelta(t, 16.0/360, utils.YearFraction(utils.Date(2025, 1, 15), utils.Date(2025, 1, 31), utils.Thirty360), 1e-12)
	assert.InDelta(t, 15.0/360, utils.YearFraction(utils.Date(2025, 1, 15), utils.Date(2025, 1, 31), utils.ThirtyE360), 1e-12)

	// ACT/ACT splits across the leap year boundary.
	got := utils.YearFraction(utils.Date(2023, 7, 1), utils.Date(2024, 7, 1), utils.ActActISDA)
	assert.InDelta(t, 184.0/365+182.0/366, got, 1e-12)
	assert.InDelta(t, -got, utils.YearFraction(utils.Date(2024, 7, 1), utils.Date(2023, 7, 1), utils.ActActISDA), 1e-12)
}

func TestAddMonth_ClampsToMonthEnd(t *testing.T) {
	t.Parallel()

	assert.Equal(t, utils.Date(2025, 2, 28), utils.AddMonth(utils.Date(2025, 1, 31), 1))
	assert.Equal(t, utils.Date(2024, 2, 29), utils.AddMonth(utils.Date(2024, 1, 31), 1))
	assert.Equal(t, utils.Date(2025, 4, 30), utils.AddMonth(utils.Date(2025, 3, 31), 1))
	assert.Equal(t, utils.Date(2026, 3, 15), utils.AddMonth(utils.Date(2025, 3, 15), 12))
}

func TestAdjacentDates(t *testing.T) {
	t.Parallel()

	dates := []time.Time{utils.Date(2027, 1, 1), utils.Date(2025, 1, 1), utils.Date(2026, 1, 1)}
	utils.SortDates(dates)

	lo, hi := utils.AdjacentDates(utils.Date(2025, 6, 1), dates)
	assert.Equal(t, dates[0], lo)
	assert.Equal(t, dates[1], hi)

	lo, hi = utils.AdjacentDates(utils.Date(2030, 1, 1), dates)
	assert.Equal(t, dates[1], lo)
	assert.Equal(t, dates[2], hi)

	assert.Panics(t, func() { utils.AdjacentDates(dates[0], dates[:1]) })
}

func TestParseDateAndNumbers(t *testing.T) {
	t.Parallel()

	d, err := utils.ParseDate("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, utils.Date(2026, 3, 2), d)

	_, err = utils.ParseDate("02/03/2026")
	assert.ErrorContains(t, err, "02/03/2026")

	assert.Equal(t, 1.2346, utils.RoundTo(1.23456, 4))
	assert.True(t, utils.IsFinite(1))
	assert.False(t, utils.IsFinite(math.NaN()))
	assert.False(t, utils.IsFinite(math.Inf(-1)))
}
