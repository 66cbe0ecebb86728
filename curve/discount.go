package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// TimeBasis is the day count of every curve's time axis. Leg-specific day
// counts are used separately for coupon accrual.
const TimeBasis = utils.Act365F

// Discount is a funding (or govvie) curve with log-linear interpolation of
// discount factors between node dates. The epoch is an implicit node with
// DF = 1. Beyond the last node the last segment's forward rate is extended.
type Discount struct {
	label market.Label
	epoch time.Time
	dates []time.Time // nodes, epoch excluded
	dfs   []float64
}

// NewDiscount builds a curve from node dates (strictly increasing, after the
// epoch) and positive discount factors.
func NewDiscount(label market.Label, epoch time.Time, dates []time.Time, dfs []float64) (*Discount, error) {
	if label.Kind != market.KindFunding && label.Kind != market.KindGovvie {
		return nil, fmt.Errorf("discount curve label %s: %w", label, calib.ErrInvalidInput)
	}
	if err := checkNodes(epoch, dates, len(dfs)); err != nil {
		return nil, err
	}
	for i, df := range dfs {
		if !utils.IsFinite(df) || df <= 0 {
			return nil, fmt.Errorf("discount factor %v at %s: %w", df, dates[i].Format(utils.DateLayout), calib.ErrInvalidInput)
		}
	}
	return &Discount{
		label: label,
		epoch: epoch,
		dates: append([]time.Time(nil), dates...),
		dfs:   append([]float64(nil), dfs...),
	}, nil
}

// FlatDiscount is a curve with a constant continuously compounded zero rate.
func FlatDiscount(label market.Label, epoch time.Time, rate float64) *Discount {
	end := epoch.AddDate(100, 0, 0)
	t := utils.YearFraction(epoch, end, TimeBasis)
	return &Discount{
		label: label,
		epoch: epoch,
		dates: []time.Time{end},
		dfs:   []float64{math.Exp(-rate * t)},
	}
}

func checkNodes(epoch time.Time, dates []time.Time, n int) error {
	if epoch.IsZero() {
		return fmt.Errorf("curve epoch unset: %w", calib.ErrInvalidInput)
	}
	if len(dates) == 0 || len(dates) != n {
		return fmt.Errorf("curve has %d node dates and %d values: %w", len(dates), n, calib.ErrInvalidInput)
	}
	prev := epoch
	for _, d := range dates {
		if !d.After(prev) {
			return fmt.Errorf("node %s not after %s: %w", d.Format(utils.DateLayout), prev.Format(utils.DateLayout), calib.ErrInvalidInput)
		}
		prev = d
	}
	return nil
}

func (c *Discount) Label() market.Label { return c.label }
func (c *Discount) Epoch() time.Time    { return c.epoch }

// Nodes returns the node dates.
func (c *Discount) Nodes() []time.Time {
	return append([]time.Time(nil), c.dates...)
}

// NodeDFs returns the node discount factors.
func (c *Discount) NodeDFs() []float64 {
	return append([]float64(nil), c.dfs...)
}

func (c *Discount) yf(t time.Time) float64 {
	return utils.YearFraction(c.epoch, t, TimeBasis)
}

// segment returns the pillar pair bracketing t as indices into the node list
// with the epoch at -1, plus the interpolation weight θ of the right pillar.
// Outside the node range θ leaves [0, 1] and the segment is extended.
func (c *Discount) segment(t time.Time) (a, b int, theta float64) {
	pillars := make([]time.Time, 0, len(c.dates)+1)
	pillars = append(pillars, c.epoch)
	pillars = append(pillars, c.dates...)
	d1, d2 := utils.AdjacentDates(t, pillars)
	a, b = -1, -1
	for i, d := range c.dates {
		if d.Equal(d1) {
			a = i
		}
		if d.Equal(d2) {
			b = i
		}
	}
	t1, t2 := c.yf(d1), c.yf(d2)
	return a, b, (c.yf(t) - t1) / (t2 - t1)
}

func (c *Discount) node(i int) float64 {
	if i < 0 {
		return 1
	}
	return c.dfs[i]
}

// DF returns the discount factor at t. Dates on or before the epoch discount at 1.
func (c *Discount) DF(t time.Time) float64 {
	if !t.After(c.epoch) {
		return 1
	}
	a, b, theta := c.segment(t)
	return math.Exp((1-theta)*math.Log(c.node(a)) + theta*math.Log(c.node(b)))
}

// ZeroRate returns the continuously compounded zero rate (decimal) to t.
func (c *Discount) ZeroRate(t time.Time) float64 {
	yf := c.yf(t)
	if yf <= 0 {
		return -math.Log(c.dfs[0]) / c.yf(c.dates[0])
	}
	return -math.Log(c.DF(t)) / yf
}

// NodeSensitivity returns ∂DF(t)/∂DF(node k) for the nodes DF(t) depends on.
func (c *Discount) NodeSensitivity(t time.Time) []calib.Sensitivity {
	if !t.After(c.epoch) {
		return nil
	}
	a, b, theta := c.segment(t)
	df := c.DF(t)
	var out []calib.Sensitivity
	if a >= 0 {
		out = append(out, calib.Sensitivity{Index: a, D: (1 - theta) * df / c.dfs[a]})
	}
	if b >= 0 {
		out = append(out, calib.Sensitivity{Index: b, D: theta * df / c.dfs[b]})
	}
	return out
}

// WithNodeDFs returns a copy of the curve with the node values replaced.
func (c *Discount) WithNodeDFs(dfs []float64) (*Discount, error) {
	return NewDiscount(c.label, c.epoch, c.dates, dfs)
}

// WithLabel returns a copy of the curve under another label, e.g. to reuse a
// funding curve as a govvie curve.
func (c *Discount) WithLabel(label market.Label) (*Discount, error) {
	return NewDiscount(label, c.epoch, c.dates, c.dfs)
}

// TweakZero returns a copy whose node zero rates are mapped through f.
func (c *Discount) TweakZero(f func(node time.Time, zero float64) float64) (*Discount, error) {
	dfs := make([]float64, len(c.dfs))
	for i, d := range c.dates {
		t := c.yf(d)
		z := f(d, -math.Log(c.dfs[i])/t)
		dfs[i] = math.Exp(-z * t)
	}
	return c.WithNodeDFs(dfs)
}
