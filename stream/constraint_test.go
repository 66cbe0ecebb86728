package stream_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/stream"
)

func TestConstraint_FundingRowOfFixedStream(t *testing.T) {
	t.Parallel()

	s := fixedStream(t, 3, 100, 0.03)
	q := stream.Quote{Measure: stream.MeasureRate, Value: 0.04}
	row := s.Constraint(effective, market.NewContext(), market.FundingLabel("EUR"), q)
	require.NotNil(t, row)

	require.Len(t, row.NodeDates(), 3)
	for _, p := range s.Periods() {
		assert.InDelta(t, 100*p.DCF()*0.04, row.Weight(p.Pay()), 1e-12)
		assert.InDelta(t, 100*p.DCF(), row.DWeight(stream.MeasureRate, p.Pay()), 1e-12)
	}
	assert.Zero(t, row.Value())
	assert.Equal(t, 1.0, row.DValue(stream.MeasurePV))
	assert.Empty(t, row.MergeLabels())

	pv := s.Constraint(effective, market.NewContext(), market.FundingLabel("EUR"), stream.Quote{Measure: stream.MeasurePV, Value: 5})
	require.NotNil(t, pv)
	assert.Equal(t, 5.0, pv.Value())
	assert.InDelta(t, 100*s.Period(0).DCF()*0.03, pv.Weight(s.Period(0).Pay()), 1e-12)
	assert.Empty(t, pv.DWeights(stream.MeasureRate))
}

func TestConstraint_WrongCurrencyOrKind(t *testing.T) {
	t.Parallel()

	s := fixedStream(t, 2, 100, 0.03)
	mc := market.NewContext()
	assert.Nil(t, s.Constraint(effective, mc, market.FundingLabel("USD"), stream.Quote{}))
	assert.Nil(t, s.Constraint(effective, mc, market.CreditLabel("ACME"), stream.Quote{}))
	assert.Nil(t, s.Constraint(effective, mc, market.ForwardLabel(e6m), stream.Quote{}), "forward rows need funding")
}

func TestConstraint_JointRowTelescopes(t *testing.T) {
	t.Parallel()

	swap, err := stream.NewSwap(effective, effective.AddDate(3, 0, 0), fixedAnnual, floatLeg(estr, market.FreqAnnual), 100, "EUR")
	require.NoError(t, err)
	q := stream.Quote{Measure: stream.MeasureSwapRate, Value: 0.025}

	row := swap.Constraint(effective, market.NewContext(), market.FundingLabel("EUR"), q)
	require.NotNil(t, row)
	assert.Equal(t, []string{market.ForwardLabel(estr).String()}, row.MergeLabels())

	fixed := swap.Legs()[0]
	last := fixed.Len() - 1
	assert.InDelta(t, -100, row.Weight(effective), 1e-12)
	for i, p := range fixed.Periods() {
		want := 100 * p.DCF() * 0.025
		if i == last {
			want += 100
		}
		assert.InDelta(t, want, row.Weight(p.Pay()), 1e-12, "intermediate floating notionals cancel")
		assert.InDelta(t, 100*p.DCF(), row.DWeight(stream.MeasureSwapRate, p.Pay()), 1e-12)
	}
	assert.Len(t, row.NodeDates(), fixed.Len()+1)

	// The residual against any funding curve is the swap's PV on that curve.
	mc, f := flatContext(0.027)
	quoted := consolidated(t, fixed.WithCoupon(0.025), swap.Legs()[1])
	v, ok := quoted.Value(effective, mc)
	require.True(t, ok)
	assert.InDelta(t, v.DirtyPV, row.Residual(f.DF), 1e-10)
}

func TestConstraint_JointRowOfSeasonedSwap(t *testing.T) {
	t.Parallel()

	swap, err := stream.NewSwap(effective, effective.AddDate(3, 0, 0), fixedAnnual, floatLeg(estr, market.FreqAnnual), 100, "EUR")
	require.NoError(t, err)
	q := stream.Quote{Measure: stream.MeasureSwapRate, Value: 0.025}

	val := effective.AddDate(0, 0, 10)
	mc, f := flatContext(0.027)
	growth := 1.0
	for i := 0; i < 10; i++ {
		r := 0.026 + 0.0001*float64(i)
		mc.SetFixing(estr.Name, effective.AddDate(0, 0, i), r)
		growth *= 1 + r/360
	}

	row := swap.Constraint(val, mc, market.FundingLabel("EUR"), q)
	require.NotNil(t, row)
	assert.Equal(t, []string{market.ForwardLabel(estr).String()}, row.MergeLabels())
	assert.InDelta(t, -100*growth, row.Weight(val), 1e-12, "fixed growth scales the first unfixed reset")
	assert.Zero(t, row.Weight(effective))

	quoted := consolidated(t, swap.Legs()[0].WithCoupon(0.025), swap.Legs()[1])
	v, ok := quoted.Value(val, mc)
	require.True(t, ok)
	assert.InDelta(t, v.DirtyPV, row.Residual(f.DF), 1e-10)
}

func TestConstraint_JointRowRejectsNonFiniteAmounts(t *testing.T) {
	t.Parallel()

	s := floatingStream(t, estr, market.FreqAnnual, 2, 100, 0)
	label := market.FundingLabel("EUR")
	require.NotNil(t, s.Constraint(effective, market.NewContext(), label, stream.Quote{Measure: stream.MeasureSpread, Value: 0.001}))

	q := stream.Quote{Measure: stream.MeasureSpread, Value: math.Inf(1)}
	assert.Nil(t, s.Constraint(effective, market.NewContext(), label, q))
}

func TestConstraint_FundingRowWithResolvedForward(t *testing.T) {
	t.Parallel()

	mc := market.NewContext()
	mc.SetForwardCurve(curve.FlatForward(e3m, effective, 0.03))
	s := floatingStream(t, e3m, market.FreqQuarterly, 1, 100, 0.001)

	row := s.Constraint(effective, mc, market.FundingLabel("EUR"), stream.Quote{})
	require.NotNil(t, row)
	assert.Empty(t, row.MergeLabels())
	for _, p := range s.Periods() {
		assert.InDelta(t, 100*p.DCF()*0.031, row.Weight(p.Pay()), 1e-12)
	}
}

func TestConstraint_ForwardRowOnlyWeighsTargetIndex(t *testing.T) {
	t.Parallel()

	mc, f := flatContext(0.02)
	mc.SetForwardCurve(curve.FlatForward(e3m, effective, 0.03))

	fixed := fixedStream(t, 2, 100, 0)
	six := floatingStream(t, e6m, market.FreqSemi, 2, -100, 0)
	three := floatingStream(t, e3m, market.FreqQuarterly, 2, 100, 0.001)
	legs := consolidated(t, fixed, six, three)

	q := stream.Quote{Measure: stream.MeasureRate, Value: 0.02}
	row := legs.Constraint(effective, mc, market.ForwardLabel(e6m), q)
	require.NotNil(t, row)

	nodes := row.NodeDates()
	require.Len(t, nodes, six.Len())
	for i, p := range six.Periods() {
		assert.Equal(t, p.End(), nodes[i])
		assert.InDelta(t, -100*p.DCF()*f.DF(p.Pay()), row.Weight(p.End()), 1e-12)
	}

	var known, annuity float64
	for _, p := range fixed.Periods() {
		annuity += 100 * p.DCF() * f.DF(p.Pay())
	}
	known += 0.02 * annuity
	for _, p := range three.Periods() {
		known += 100 * p.DCF() * 0.031 * f.DF(p.Pay())
	}
	assert.InDelta(t, -known, row.Value(), 1e-10)
	assert.InDelta(t, -annuity, row.DValue(stream.MeasureRate), 1e-10)
	assert.Equal(t, 1.0, row.DValue(stream.MeasurePV))

	basis, err := curve.ForwardNodeBasis(e6m, effective, nodes)
	require.NoError(t, err)
	jac := calib.System{Rows: []*calib.Constraint{row}}.Jacobian(len(nodes), basis)
	r, c := jac.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, len(nodes), c)
}

func TestConstraint_ForwardRowFoldsFixedPeriod(t *testing.T) {
	t.Parallel()

	mc, f := flatContext(0.02)
	s := floatingStream(t, e6m, market.FreqSemi, 2, 100, 0)
	first := s.Period(0)
	val := first.Start().AddDate(0, 1, 0)
	mc.SetFixing(e6m.Name, first.Reset(), 0.025)

	row := s.Constraint(val, mc, market.ForwardLabel(e6m), stream.Quote{})
	require.NotNil(t, row)
	assert.Zero(t, row.Weight(first.End()))
	assert.Len(t, row.NodeDates(), s.Len()-1)
	assert.InDelta(t, -100*first.DCF()*0.025*f.DF(first.Pay()), row.Value(), 1e-12)
}

func TestConstraint_QuoteGoesToFirstMatchingLeg(t *testing.T) {
	t.Parallel()

	basis, err := stream.NewBasisSwap(effective, effective.AddDate(2, 0, 0), floatLeg(e6m, market.FreqSemi), floatLeg(e3m, market.FreqQuarterly), 100, "EUR")
	require.NoError(t, err)

	row := basis.Constraint(effective, market.NewContext(), market.FundingLabel("EUR"), stream.Quote{Measure: stream.MeasureSpread, Value: 0.0015})
	require.NotNil(t, row)
	assert.Len(t, row.DWeights(stream.MeasureSpread), basis.Legs()[0].Len())
	assert.ElementsMatch(t, []string{market.ForwardLabel(e6m).String(), market.ForwardLabel(e3m).String()}, row.MergeLabels())

	in := stream.Instrument{Tenor: "2Y", Measure: stream.MeasureSpread, Legs: basis}
	assert.Equal(t, basis.Maturity(), in.Maturity())
	again := in.Constraint(effective, market.NewContext(), market.FundingLabel("EUR"), 0.0015)
	require.NotNil(t, again)
	assert.Equal(t, row.Weights(), again.Weights())
}

func TestQuote(t *testing.T) {
	t.Parallel()

	q := stream.Quote{Measure: stream.MeasureSwapRate, Value: 0.03}
	r, ok := q.Rate()
	assert.True(t, ok)
	assert.Equal(t, 0.03, r)
	_, ok = q.Spread()
	assert.False(t, ok)
	assert.InDelta(t, 0.0301, q.Shift(1e-4).Value, 1e-15)
	assert.NoError(t, q.Validate())

	assert.ErrorIs(t, stream.Quote{Measure: "Yield", Value: 1}.Validate(), calib.ErrInvalidInput)
}
