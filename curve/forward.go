package curve

import (
	"fmt"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// Forward is a projection curve of one index. Its node value at date d is the
// simple forward rate of the index period ending on d; rates are interpolated
// linearly in time between nodes and held flat outside them.
type Forward struct {
	label market.Label
	index market.Index
	epoch time.Time
	dates []time.Time
	rates []float64
}

func NewForward(index market.Index, epoch time.Time, dates []time.Time, rates []float64) (*Forward, error) {
	if index.IsZero() {
		return nil, fmt.Errorf("forward curve without index: %w", calib.ErrInvalidInput)
	}
	if err := checkNodes(epoch, dates, len(rates)); err != nil {
		return nil, err
	}
	for i, r := range rates {
		if !utils.IsFinite(r) {
			return nil, fmt.Errorf("forward rate %v at %s: %w", r, dates[i].Format(utils.DateLayout), calib.ErrInvalidInput)
		}
	}
	return &Forward{
		label: market.ForwardLabel(index),
		index: index,
		epoch: epoch,
		dates: append([]time.Time(nil), dates...),
		rates: append([]float64(nil), rates...),
	}, nil
}

// FlatForward projects the same rate for every period.
func FlatForward(index market.Index, epoch time.Time, rate float64) *Forward {
	return &Forward{
		label: market.ForwardLabel(index),
		index: index,
		epoch: epoch,
		dates: []time.Time{epoch.AddDate(100, 0, 0)},
		rates: []float64{rate},
	}
}

func (c *Forward) Label() market.Label { return c.label }
func (c *Forward) Epoch() time.Time    { return c.epoch }
func (c *Forward) Index() market.Index { return c.index }

func (c *Forward) Nodes() []time.Time {
	return append([]time.Time(nil), c.dates...)
}

func (c *Forward) NodeRates() []float64 {
	return append([]float64(nil), c.rates...)
}

// Forward returns the projected rate of the period [start, end].
func (c *Forward) Forward(_, end time.Time) float64 {
	var r float64
	for _, s := range c.NodeSensitivity(end) {
		r += s.D * c.rates[s.Index]
	}
	return r
}

// NodeSensitivity returns ∂f(d)/∂rate(node k).
func (c *Forward) NodeSensitivity(d time.Time) []calib.Sensitivity {
	n := len(c.dates)
	if n == 1 || !d.After(c.dates[0]) {
		return []calib.Sensitivity{{Index: 0, D: 1}}
	}
	if !d.Before(c.dates[n-1]) {
		return []calib.Sensitivity{{Index: n - 1, D: 1}}
	}
	d1, d2 := utils.AdjacentDates(d, c.dates)
	i := indexOf(c.dates, d1)
	t1 := utils.YearFraction(c.epoch, d1, TimeBasis)
	t2 := utils.YearFraction(c.epoch, d2, TimeBasis)
	theta := (utils.YearFraction(c.epoch, d, TimeBasis) - t1) / (t2 - t1)
	return []calib.Sensitivity{{Index: i, D: 1 - theta}, {Index: i + 1, D: theta}}
}

// WithNodeRates returns a copy with the node rates replaced.
func (c *Forward) WithNodeRates(rates []float64) (*Forward, error) {
	return NewForward(c.index, c.epoch, c.dates, rates)
}

// ForwardNodeBasis is the linear basis of a forward curve with the given nodes.
// It does not need node values, which is what lets the forward bootstrap solve
// for them in one linear step.
func ForwardNodeBasis(index market.Index, epoch time.Time, dates []time.Time) (calib.Basis, error) {
	proto, err := NewForward(index, epoch, dates, make([]float64, len(dates)))
	if err != nil {
		return nil, err
	}
	return proto.NodeSensitivity, nil
}

func indexOf(dates []time.Time, d time.Time) int {
	for i, x := range dates {
		if x.Equal(d) {
			return i
		}
	}
	return -1
}
