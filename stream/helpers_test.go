package stream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/mcurve/calendar"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/stream"
	"github.com/meenmo/mcurve/utils"
)

var (
	effective = utils.Date(2026, time.January, 15)

	// Indices on the NONE calendar keep schedules unadjusted so expected
	// values can be written down directly.
	estr = market.Index{Name: "ESTR", Currency: "EUR", Tenor: "ON", DayCount: market.Act360, Calendar: calendar.NONE, Compounding: market.CompoundingGeometric}
	eon  = market.Index{Name: "EONIA", Currency: "EUR", Tenor: "ON", DayCount: market.Act360, Calendar: calendar.NONE, Compounding: market.CompoundingArithmetic}
	e6m  = market.Index{Name: "EURIBOR6M", Currency: "EUR", Tenor: "6M", DayCount: market.Act360, Calendar: calendar.NONE}
	e3m  = market.Index{Name: "EURIBOR3M", Currency: "EUR", Tenor: "3M", DayCount: market.Act360, Calendar: calendar.NONE}

	fixedAnnual = market.LegConvention{
		LegType:      market.LegFixed,
		DayCount:     market.Act365F,
		PayFrequency: market.FreqAnnual,
		Calendar:     calendar.NONE,
	}
)

func floatLeg(idx market.Index, freq market.Frequency) market.LegConvention {
	return market.LegConvention{
		LegType:      market.LegFloating,
		Index:        idx,
		DayCount:     idx.DayCount,
		PayFrequency: freq,
		Calendar:     calendar.NONE,
	}
}

func fixedStream(t *testing.T, years int, notional, coupon float64) *stream.Stream {
	t.Helper()
	s, err := stream.FixedStream(effective, effective.AddDate(years, 0, 0), fixedAnnual, notional, coupon, "EUR")
	require.NoError(t, err)
	return s
}

func floatingStream(t *testing.T, idx market.Index, freq market.Frequency, years int, notional, spread float64) *stream.Stream {
	t.Helper()
	s, err := stream.FloatingStream(effective, effective.AddDate(years, 0, 0), floatLeg(idx, freq), notional, spread, "EUR")
	require.NoError(t, err)
	return s
}

func consolidated(t *testing.T, legs ...*stream.Stream) *stream.Consolidated {
	t.Helper()
	c, err := stream.NewConsolidated(legs...)
	require.NoError(t, err)
	return c
}
