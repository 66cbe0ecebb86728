package stream_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/stream"
	"github.com/meenmo/mcurve/utils"
)

func flatContext(rate float64) (*market.Context, *curve.Discount) {
	mc := market.NewContext()
	f := curve.FlatDiscount(market.FundingLabel("EUR"), effective, rate)
	mc.SetFundingCurve(f)
	return mc, f
}

func annuity(s *stream.Stream, f market.FundingCurve) float64 {
	var a float64
	for _, p := range s.Periods() {
		a += p.DCF() * f.DF(p.Pay())
	}
	return a
}

func TestValue_ThreePeriodFixedAgainstFlatCurve(t *testing.T) {
	t.Parallel()

	mc, f := flatContext(0.02)
	receive := fixedStream(t, 3, 100, 0.03)
	pay := fixedStream(t, 3, -100, 0.02)
	require.Equal(t, 3, receive.Len())

	// Annuity factor of three annual periods at 2% continuously compounded.
	var want float64
	for _, p := range receive.Periods() {
		tp := utils.YearFraction(effective, p.Pay(), curve.TimeBasis)
		want += p.DCF() * math.Exp(-0.02*tp)
	}
	assert.InDelta(t, want, annuity(receive, f), 1e-14)

	v, ok := consolidated(t, receive, pay).Value(effective, mc)
	require.True(t, ok)
	assert.InDelta(t, 100*(0.03-0.02)*want, v.DirtyPV, 1e-6)
	assert.Equal(t, v.DirtyPV, v.CleanPV)
	assert.Zero(t, v.Accrued)

	single, ok := receive.Value(effective, mc)
	require.True(t, ok)
	assert.InDelta(t, 100*0.03*want, single.DirtyPV, 1e-9)
	assert.InDelta(t, 100*want, single.Annuity, 1e-9)
	assert.InDelta(t, single.Annuity*1e-4, single.DV01, 1e-15)
	assert.InDelta(t, 100*(1+single.CleanPV/100), single.Price, 1e-12)
	assert.Len(t, single.CashFlows, 3)
}

func TestValue_ParSwapRoundTrip(t *testing.T) {
	t.Parallel()

	mc, f := flatContext(0.025)
	float := floatingStream(t, estr, market.FreqAnnual, 5, 1e6, 0)
	fixedLeg := market.LegConvention{LegType: market.LegFixed, DayCount: market.Act360, PayFrequency: market.FreqAnnual, Calendar: estr.Calendar}
	proto, err := stream.FixedStream(effective, effective.AddDate(5, 0, 0), fixedLeg, -1e6, 0, "EUR")
	require.NoError(t, err)

	par := (f.DF(effective) - f.DF(proto.Maturity())) / annuity(proto, f)
	swap := consolidated(t, float, proto.WithCoupon(par))

	v, ok := swap.Value(effective, mc)
	require.True(t, ok)
	assert.Less(t, math.Abs(v.DirtyPV/1e6), 1e-8)
	for _, cf := range v.CashFlows {
		if cf.Source != stream.SourceFixed {
			assert.Equal(t, stream.SourceTelescoped, cf.Source)
		}
	}
}

func TestValue_AccruedPartition(t *testing.T) {
	t.Parallel()

	mc, _ := flatContext(0.02)
	s := fixedStream(t, 3, 100, 0.05)
	first := s.Period(0)

	for _, val := range []time.Time{
		first.Start(),
		first.Start().AddDate(0, 4, 3),
		first.End(),
		first.End().AddDate(0, 0, 1),
		s.Period(2).Start().AddDate(0, 7, 0),
	} {
		v, ok := s.Value(val, mc)
		require.True(t, ok)
		assert.InDelta(t, v.DirtyPV, v.CleanPV+v.Accrued, 1e-12, "val %s", val.Format(utils.DateLayout))
	}

	atStart, _ := s.Value(first.Start(), mc)
	assert.Zero(t, atStart.Accrued)
	atEnd, _ := s.Value(first.End(), mc)
	assert.Zero(t, atEnd.Accrued)

	mid := first.Start().AddDate(0, 6, 0)
	inside, _ := s.Value(mid, mc)
	frac := utils.YearFraction(first.Start(), mid, utils.Act365F)
	assert.InDelta(t, 100*0.05*frac, inside.Accrued, 1e-12)
}

func TestValue_SkipsPaidPeriods(t *testing.T) {
	t.Parallel()

	mc, _ := flatContext(0.02)
	s := fixedStream(t, 3, 100, 0.05)
	v, ok := s.Value(s.Period(1).Pay().AddDate(0, 0, 1), mc)
	require.True(t, ok)
	assert.Len(t, v.CashFlows, 1)

	after, ok := s.Value(s.Maturity().AddDate(0, 0, 1), mc)
	require.True(t, ok)
	assert.Zero(t, after.DirtyPV)
	assert.Equal(t, 100.0, after.Price)
}

func TestValue_TelescopedMatchesLoadedForward(t *testing.T) {
	t.Parallel()

	for _, idx := range []market.Index{estr, e6m} {
		idx := idx
		t.Run(idx.Name, func(t *testing.T) {
			t.Parallel()

			mc, f := flatContext(0.03)
			s := floatingStream(t, idx, market.FreqSemi, 4, 1e6, 0.001)

			telescoped, ok := s.Value(effective, mc)
			require.True(t, ok)

			loaded := mc.Snapshot()
			require.True(t, loaded.SetForwardCurve(curve.NewImpliedForward(idx, f)))
			withCurve, ok := s.Value(effective, loaded)
			require.True(t, ok)

			assert.InDelta(t, telescoped.CleanPV, withCurve.CleanPV, 1e-7)
			assert.Equal(t, stream.SourceTelescoped, telescoped.CashFlows[0].Source)
			assert.Equal(t, stream.SourceForward, withCurve.CashFlows[0].Source)
		})
	}
}

func TestValue_MissingFundingCurve(t *testing.T) {
	t.Parallel()

	s := fixedStream(t, 2, 100, 0.01)
	v, ok := s.Value(effective, market.NewContext())
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestValue_UnresolvableForward(t *testing.T) {
	t.Parallel()

	// USD funding only: the EUR index can neither be fixed, projected nor replicated.
	mc := market.NewContext()
	mc.SetFundingCurve(curve.FlatDiscount(market.FundingLabel("USD"), effective, 0.04))
	leg := floatLeg(e3m, market.FreqQuarterly)
	s, err := stream.FloatingStream(effective, effective.AddDate(1, 0, 0), leg, 100, 0, "USD")
	require.NoError(t, err)

	_, ok := s.Value(effective, mc)
	assert.False(t, ok)
}

func TestValue_FixingTakesPrecedence(t *testing.T) {
	t.Parallel()

	mc, _ := flatContext(0.02)
	mc.SetForwardCurve(curve.FlatForward(e3m, effective, 0.05))
	s := floatingStream(t, e3m, market.FreqQuarterly, 1, 100, 0.002)
	val := s.Period(0).Start().AddDate(0, 1, 0)

	projected, ok := s.Value(val, mc)
	require.True(t, ok)
	assert.Equal(t, stream.SourceForward, projected.CashFlows[0].Source)
	assert.InDelta(t, 0.052, projected.CashFlows[0].Rate, 1e-15)

	mc.SetFixing(e3m.Name, s.Period(0).Reset(), 0.031)
	fixed, ok := s.Value(val, mc)
	require.True(t, ok)
	assert.Equal(t, stream.SourceFixing, fixed.CashFlows[0].Source)
	assert.InDelta(t, 0.033, fixed.CashFlows[0].Rate, 1e-15)
	assert.Equal(t, stream.SourceForward, fixed.CashFlows[1].Source)
}

func TestValue_FixingFeed(t *testing.T) {
	t.Parallel()

	mc, _ := flatContext(0.02)
	s := floatingStream(t, e3m, market.FreqQuarterly, 1, 100, 0)
	reset := s.Period(0).Reset()
	mc.SetFixingFeed(e3m.Name, market.NewMapFixingFeed(map[string]float64{reset.Format(utils.DateLayout): 0.0275}))

	v, ok := s.Value(reset.AddDate(0, 0, 10), mc)
	require.True(t, ok)
	assert.InDelta(t, 0.0275, v.CashFlows[0].Rate, 1e-15)
}

func TestValue_OvernightCompounding(t *testing.T) {
	t.Parallel()

	start := effective
	end := start.AddDate(0, 0, 4)
	rates := []float64{0.010, 0.012, 0.011, 0.013}

	build := func(idx market.Index) (*stream.Stream, *market.Context) {
		mc, _ := flatContext(0.02)
		for i, r := range rates {
			mc.SetFixing(idx.Name, start.AddDate(0, 0, i), r)
		}
		p, err := stream.NewCouponPeriod(stream.PeriodSpec{
			Start: start, End: end, Pay: end,
			DayCount: market.Act360, Notional: 1e6, Index: idx, PayCurrency: "EUR",
		})
		require.NoError(t, err)
		s, err := stream.NewStream([]stream.CouponPeriod{p})
		require.NoError(t, err)
		return s, mc
	}

	tau := 1.0 / 360.0
	var sum float64
	growth := 1.0
	for _, r := range rates {
		sum += r * tau
		growth *= 1 + r*tau
	}
	total := 4 * tau

	s, mc := build(eon)
	v, ok := s.Value(end, mc)
	require.True(t, ok)
	assert.InDelta(t, sum/total, v.CashFlows[0].Rate, 1e-15)
	assert.Equal(t, stream.SourceFixing, v.CashFlows[0].Source)

	s, mc = build(estr)
	v, ok = s.Value(end, mc)
	require.True(t, ok)
	assert.InDelta(t, (growth-1)/total, v.CashFlows[0].Rate, 1e-15)
	assert.NotEqual(t, sum/total, v.CashFlows[0].Rate)
}

func TestValue_QuantoAndConvexityAreIndependent(t *testing.T) {
	t.Parallel()

	usd := curve.FlatDiscount(market.FundingLabel("USD"), effective, 0.04)
	eurFunding := curve.FlatDiscount(market.FundingLabel("EUR"), effective, 0.02)
	mc := market.NewContext()
	mc.SetFundingCurve(usd)
	mc.SetFundingCurve(eurFunding)

	val := effective.AddDate(0, -6, 0)
	leg := floatLeg(estr, market.FreqAnnual)
	s, err := stream.FloatingStream(effective, effective.AddDate(2, 0, 0), leg, 100, 0, "USD")
	require.NoError(t, err)

	plain, ok := s.Value(val, mc)
	require.True(t, ok)
	assert.Equal(t, 1.0, plain.CashFlows[0].Quanto, "no surfaces, no adjustment")
	assert.Equal(t, 1.0, plain.CashFlows[0].Convexity)

	fxLabel := market.FXLabel("EUR", "USD")
	mc.SetVolatility(market.FundingLabel("EUR"), market.FlatSurface(0.01))
	mc.SetVolatility(fxLabel, market.FlatSurface(0.10))
	mc.SetCorrelation(fxLabel, market.FundingLabel("EUR"), market.FlatSurface(0.5))

	quanto, ok := s.Value(val, mc)
	require.True(t, ok)
	cf := quanto.CashFlows[0]
	assert.InDelta(t, math.Exp(0.01*0.10*0.5*utils.YearFraction(val, cf.Pay, curve.TimeBasis)), cf.Quanto, 1e-12)
	assert.Equal(t, 1.0, cf.Convexity, "forward volatility still missing")

	mc.SetVolatility(market.ForwardLabel(estr), market.FlatSurface(0.02))
	mc.SetCorrelation(market.FundingLabel("EUR"), market.ForwardLabel(estr), market.FlatSurface(0.9))
	both, ok := s.Value(val, mc)
	require.True(t, ok)
	cf2 := both.CashFlows[0]
	assert.InDelta(t, cf.Quanto, cf2.Quanto, 1e-15)
	assert.InDelta(t, math.Exp(0.02*0.01*0.9*utils.YearFraction(val, cf2.Start, curve.TimeBasis)), cf2.Convexity, 1e-12)
	assert.Greater(t, both.DirtyPV, quanto.DirtyPV)
}

func TestValue_Risky(t *testing.T) {
	t.Parallel()

	mc, _ := flatContext(0.02)
	c := curve.FlatCredit("ACME", effective, 0.02, 0.4)
	mc.SetCreditCurve(c)
	s := fixedStream(t, 3, 100, 0.05).WithCreditName("ACME")

	v, ok := s.Value(effective, mc)
	require.True(t, ok)
	require.True(t, v.Risky)
	var want float64
	for _, cf := range v.CashFlows {
		want += cf.PV * c.Survival(cf.Pay)
	}
	assert.InDelta(t, want, v.RiskyDirtyPV, 1e-12)
	assert.Contains(t, v.Measures(), stream.MeasureRiskyDirtyPV)
	assert.Less(t, v.RiskyDirtyPV, v.DirtyPV)
}

func TestNewCouponPeriod_Invalid(t *testing.T) {
	t.Parallel()

	base := stream.PeriodSpec{
		Start: effective, End: effective.AddDate(1, 0, 0), Pay: effective.AddDate(1, 0, 2),
		DayCount: market.Act360, Notional: 100, Coupon: 0.01, PayCurrency: "EUR",
	}
	_, err := stream.NewCouponPeriod(base)
	require.NoError(t, err)

	cases := map[string]func(*stream.PeriodSpec){
		"end before start": func(s *stream.PeriodSpec) { s.End = effective.AddDate(0, 0, -1) },
		"pay before start": func(s *stream.PeriodSpec) { s.Pay = effective.AddDate(0, 0, -1) },
		"nan coupon":       func(s *stream.PeriodSpec) { s.Coupon = math.NaN() },
		"inf notional":     func(s *stream.PeriodSpec) { s.Notional = math.Inf(1) },
		"no currency":      func(s *stream.PeriodSpec) { s.PayCurrency = "" },
		"negative dcf":     func(s *stream.PeriodSpec) { s.DCF = -0.5 },
		"fixed spread":     func(s *stream.PeriodSpec) { s.Spread = 0.001 },
		"index currency":   func(s *stream.PeriodSpec) { s.Index = market.Index{Name: "X", Tenor: "3M"} },
	}
	for name, mutate := range cases {
		spec := base
		mutate(&spec)
		_, err := stream.NewCouponPeriod(spec)
		assert.ErrorIs(t, err, calib.ErrInvalidInput, name)
	}
}

func TestNewStream_Invalid(t *testing.T) {
	t.Parallel()

	mk := func(start, end time.Time, ccy string) stream.CouponPeriod {
		p, err := stream.NewCouponPeriod(stream.PeriodSpec{Start: start, End: end, Pay: end, Notional: 1, PayCurrency: ccy})
		require.NoError(t, err)
		return p
	}
	a := mk(effective, effective.AddDate(1, 0, 0), "EUR")
	gap := mk(effective.AddDate(1, 0, 1), effective.AddDate(2, 0, 0), "EUR")
	usd := mk(effective.AddDate(1, 0, 0), effective.AddDate(2, 0, 0), "USD")

	_, err := stream.NewStream(nil)
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
	_, err = stream.NewStream([]stream.CouponPeriod{a, gap})
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
	_, err = stream.NewStream([]stream.CouponPeriod{a, usd})
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
}

func TestCouponPeriod_TextRoundTrip(t *testing.T) {
	t.Parallel()

	s := floatingStream(t, e6m, market.FreqSemi, 1, 250, 0.0015)
	p := s.Period(1)
	text, err := p.MarshalText()
	require.NoError(t, err)

	var got stream.CouponPeriod
	require.NoError(t, got.UnmarshalText(text))
	assert.Equal(t, p.Spec(), got.Spec())
}
