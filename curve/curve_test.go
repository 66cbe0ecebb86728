package curve_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

var (
	epoch = utils.Date(2026, time.January, 15)
	eur   = market.FundingLabel("EUR")
)

func TestFlatDiscount(t *testing.T) {
	t.Parallel()

	c := curve.FlatDiscount(eur, epoch, 0.02)
	for _, years := range []int{1, 5, 30} {
		d := epoch.AddDate(years, 0, 0)
		yf := utils.YearFraction(epoch, d, utils.Act365F)
		assert.InDelta(t, math.Exp(-0.02*yf), c.DF(d), 1e-14)
		assert.InDelta(t, 0.02, c.ZeroRate(d), 1e-12)
	}
	assert.Equal(t, 1.0, c.DF(epoch))
	assert.Equal(t, 1.0, c.DF(epoch.AddDate(0, 0, -10)))
}

func TestDiscount_LogLinear(t *testing.T) {
	t.Parallel()

	d1, d2 := epoch.AddDate(1, 0, 0), epoch.AddDate(2, 0, 0)
	c, err := curve.NewDiscount(eur, epoch, []time.Time{d1, d2}, []float64{0.98, 0.95})
	require.NoError(t, err)

	assert.InDelta(t, 0.98, c.DF(d1), 1e-15)
	assert.InDelta(t, 0.95, c.DF(d2), 1e-15)

	mid := d1.AddDate(0, 6, 0)
	theta := (utils.YearFraction(epoch, mid, utils.Act365F) - utils.YearFraction(epoch, d1, utils.Act365F)) /
		(utils.YearFraction(epoch, d2, utils.Act365F) - utils.YearFraction(epoch, d1, utils.Act365F))
	want := math.Exp((1-theta)*math.Log(0.98) + theta*math.Log(0.95))
	assert.InDelta(t, want, c.DF(mid), 1e-14)

	// Beyond the last node the last segment's forward rate continues.
	far := d2.AddDate(1, 0, 0)
	assert.Less(t, c.DF(far), c.DF(d2))
}

func TestDiscount_Invalid(t *testing.T) {
	t.Parallel()

	d1 := epoch.AddDate(1, 0, 0)
	_, err := curve.NewDiscount(eur, epoch, []time.Time{d1}, []float64{-1})
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
	_, err = curve.NewDiscount(eur, epoch, []time.Time{epoch}, []float64{1})
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
	_, err = curve.NewDiscount(market.CreditLabel("ACME"), epoch, []time.Time{d1}, []float64{0.9})
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
	_, err = curve.NewDiscount(eur, epoch, []time.Time{d1}, nil)
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
}

func TestDiscount_NodeSensitivityMatchesBump(t *testing.T) {
	t.Parallel()

	nodes := []time.Time{epoch.AddDate(1, 0, 0), epoch.AddDate(3, 0, 0), epoch.AddDate(5, 0, 0)}
	dfs := []float64{0.98, 0.93, 0.88}
	c, err := curve.NewDiscount(eur, epoch, nodes, dfs)
	require.NoError(t, err)

	const h = 1e-7
	for _, target := range []time.Time{epoch.AddDate(0, 6, 0), epoch.AddDate(2, 3, 0), epoch.AddDate(7, 0, 0)} {
		analytic := make([]float64, len(nodes))
		for _, s := range c.NodeSensitivity(target) {
			analytic[s.Index] += s.D
		}
		for k := range nodes {
			up := append([]float64(nil), dfs...)
			up[k] += h
			bumped, err := c.WithNodeDFs(up)
			require.NoError(t, err)
			numeric := (bumped.DF(target) - c.DF(target)) / h
			assert.InDelta(t, numeric, analytic[k], 1e-6, "node %d target %s", k, target.Format(utils.DateLayout))
		}
	}
}

func TestDiscount_TweakZero(t *testing.T) {
	t.Parallel()

	c := curve.FlatDiscount(eur, epoch, 0.02)
	up, err := c.TweakZero(func(_ time.Time, z float64) float64 { return z + 0.0001 })
	require.NoError(t, err)
	d := epoch.AddDate(10, 0, 0)
	assert.InDelta(t, 0.0201, up.ZeroRate(d), 1e-12)
	assert.InDelta(t, 0.02, c.ZeroRate(d), 1e-12, "original untouched")
}

func TestDiscount_BinaryRoundTrip(t *testing.T) {
	t.Parallel()

	nodes := []time.Time{epoch.AddDate(1, 0, 0), epoch.AddDate(2, 0, 0)}
	c, err := curve.NewDiscount(eur, epoch, nodes, []float64{0.981234567891, 0.95})
	require.NoError(t, err)
	blob, err := c.MarshalBinary()
	require.NoError(t, err)

	var got curve.Discount
	require.NoError(t, got.UnmarshalBinary(blob))
	assert.Equal(t, eur, got.Label())
	assert.Equal(t, c.Nodes(), got.Nodes())
	assert.Equal(t, c.NodeDFs(), got.NodeDFs())
}

func TestForward_LinearInterpolationAndFlatExtrapolation(t *testing.T) {
	t.Parallel()

	d1, d2 := epoch.AddDate(1, 0, 0), epoch.AddDate(3, 0, 0)
	c, err := curve.NewForward(market.EURIBOR6M, epoch, []time.Time{d1, d2}, []float64{0.02, 0.04})
	require.NoError(t, err)

	assert.InDelta(t, 0.02, c.Forward(epoch, epoch.AddDate(0, 6, 0)), 1e-15)
	assert.InDelta(t, 0.04, c.Forward(d2, d2.AddDate(5, 0, 0)), 1e-15)
	mid := epoch.AddDate(2, 0, 0)
	assert.InDelta(t, 0.03, c.Forward(mid.AddDate(0, -6, 0), mid), 1e-4)
	assert.Equal(t, market.ForwardLabel(market.EURIBOR6M), c.Label())

	blob, err := c.MarshalBinary()
	require.NoError(t, err)
	var got curve.Forward
	require.NoError(t, got.UnmarshalBinary(blob))
	assert.Equal(t, market.EURIBOR6M, got.Index())
	assert.Equal(t, c.NodeRates(), got.NodeRates())
}

func TestImpliedForward(t *testing.T) {
	t.Parallel()

	f := curve.FlatDiscount(eur, epoch, 0.03)
	imp := curve.NewImpliedForward(market.ESTR, f)
	s, e := epoch.AddDate(1, 0, 0), epoch.AddDate(2, 0, 0)
	tau := utils.YearFraction(s, e, utils.Act360)
	assert.InDelta(t, (f.DF(s)/f.DF(e)-1)/tau, imp.Forward(s, e), 1e-15)
	assert.Equal(t, market.ForwardLabel(market.ESTR), imp.Label())
}

func TestCredit_Survival(t *testing.T) {
	t.Parallel()

	d1, d2 := epoch.AddDate(1, 0, 0), epoch.AddDate(3, 0, 0)
	c, err := curve.NewCredit("ACME", epoch, []time.Time{d1, d2}, []float64{0.01, 0.03}, 0.4)
	require.NoError(t, err)

	t1 := utils.YearFraction(epoch, d1, utils.Act365F)
	t2 := utils.YearFraction(d1, d2, utils.Act365F)
	assert.InDelta(t, math.Exp(-0.01*t1), c.Survival(d1), 1e-15)
	assert.InDelta(t, math.Exp(-0.01*t1-0.03*t2), c.Survival(d2), 1e-15)
	assert.Equal(t, 0.03, c.Hazard(d2.AddDate(1, 0, 0)))
	assert.Equal(t, 0.4, c.Recovery(d2))

	_, err = curve.NewCredit("ACME", epoch, []time.Time{d1}, []float64{0.01}, 1.2)
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
}

func TestFX_CoveredParity(t *testing.T) {
	t.Parallel()

	usd := curve.FlatDiscount(market.FundingLabel("USD"), epoch, 0.04)
	e := curve.FlatDiscount(eur, epoch, 0.02)
	fx, err := curve.NewFX(1.1, e, usd)
	require.NoError(t, err)
	d := epoch.AddDate(1, 0, 0)
	assert.InDelta(t, 1.1*e.DF(d)/usd.DF(d), fx.Forward(d), 1e-15)
	assert.Equal(t, market.FXLabel("EUR", "USD"), fx.Label())
}

func TestTenor(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.25, curve.TenorToYears("3M"), 1e-15)
	assert.InDelta(t, 10.0, curve.TenorToYears("10y"), 1e-15)
	assert.InDelta(t, 7.0/365.0, curve.TenorToYears("1W"), 1e-15)

	d, err := curve.AddTenor(utils.Date(2026, time.January, 31), "1M")
	require.NoError(t, err)
	assert.Equal(t, utils.Date(2026, time.February, 28), d)

	_, err = curve.AddTenor(epoch, "5X")
	assert.ErrorIs(t, err, calib.ErrInvalidInput)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	fwd := curve.FlatForward(market.EURIBOR3M, epoch, 0.031)
	data, err := fwd.MarshalBinary()
	require.NoError(t, err)

	got, err := curve.Decode(market.KindForward, data)
	require.NoError(t, err)
	assert.Equal(t, fwd.Label(), got.Label())
	assert.InDelta(t, 0.031, got.(*curve.Forward).Forward(epoch, epoch.AddDate(0, 3, 0)), 1e-15)

	_, err = curve.Decode(market.KindFX, data)
	assert.Error(t, err)
	_, err = curve.Decode(market.KindFunding, data)
	assert.Error(t, err, "forward payload is not a discount curve")
}
