package stream

import (
	"fmt"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
)

// Consolidated is a set of streams in one currency valued and calibrated as
// a sum, e.g. the legs of a swap. Paid legs carry negative notionals.
type Consolidated struct {
	legs []*Stream
}

func NewConsolidated(legs ...*Stream) (*Consolidated, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("consolidated stream without legs: %w", calib.ErrInvalidInput)
	}
	for i, l := range legs {
		if l == nil {
			return nil, fmt.Errorf("leg %d is nil: %w", i, calib.ErrInvalidInput)
		}
		if l.Currency() != legs[0].Currency() {
			return nil, fmt.Errorf("leg %d pays %s, leg 0 pays %s: %w", i, l.Currency(), legs[0].Currency(), calib.ErrInvalidInput)
		}
	}
	return &Consolidated{legs: append([]*Stream(nil), legs...)}, nil
}

func (c *Consolidated) Legs() []*Stream {
	return append([]*Stream(nil), c.legs...)
}

func (c *Consolidated) Currency() string { return c.legs[0].Currency() }

func (c *Consolidated) Effective() time.Time {
	e := c.legs[0].Effective()
	for _, l := range c.legs[1:] {
		if l.Effective().Before(e) {
			e = l.Effective()
		}
	}
	return e
}

func (c *Consolidated) Maturity() time.Time {
	m := c.legs[0].Maturity()
	for _, l := range c.legs[1:] {
		if l.Maturity().After(m) {
			m = l.Maturity()
		}
	}
	return m
}

// Value sums the legs' valuations. The price is quoted on leg 0's notional.
func (c *Consolidated) Value(val time.Time, mc *market.Context) (*Valuation, bool) {
	total := &Valuation{Date: val, Risky: true}
	for _, l := range c.legs {
		v, ok := l.Value(val, mc)
		if !ok {
			return nil, false
		}
		total.DirtyPV += v.DirtyPV
		total.Accrued += v.Accrued
		total.Annuity += v.Annuity
		total.RiskyDirtyPV += v.RiskyDirtyPV
		total.Risky = total.Risky && v.Risky
		total.CashFlows = append(total.CashFlows, v.CashFlows...)
	}
	if !total.Risky {
		total.RiskyDirtyPV = 0
	}
	total.finish(c.legs[0].NotionalAt(val))
	return total, true
}

// quotedLeg is the first leg the quote's measure applies to, or 0.
func (c *Consolidated) quotedLeg(q Quote) int {
	for i, l := range c.legs {
		if l.accepts(q) {
			return i
		}
	}
	return 0
}

// Constraint absorbs every leg's row for the latent state being calibrated.
// A coupon or spread quote replaces the first fixed or floating leg's terms;
// a PV quote sets the target once. It returns nil when any leg is unresolvable.
func (c *Consolidated) Constraint(val time.Time, mc *market.Context, calibrating market.Label, q Quote) *calib.Constraint {
	row := calib.NewConstraint()
	quoted := c.quotedLeg(q)
	for i, l := range c.legs {
		lq := Quote{}
		if i == quoted {
			lq = q
		}
		r, ok := l.rows(val, mc, calibrating, lq)
		if !ok || !row.Absorb(r) {
			return nil
		}
	}
	finish(row, q)
	return row
}

// Instrument is a calibration instrument: legs plus the tenor label its
// quote and its tenor-bump scenario are keyed by.
type Instrument struct {
	Tenor   string
	Measure string
	Legs    *Consolidated
}

func (in Instrument) Quote(value float64) Quote {
	return Quote{Measure: in.Measure, Value: value}
}

// Constraint is the instrument's calibration row for the quoted value.
func (in Instrument) Constraint(val time.Time, mc *market.Context, calibrating market.Label, value float64) *calib.Constraint {
	return in.Legs.Constraint(val, mc, calibrating, in.Quote(value))
}

func (in Instrument) Maturity() time.Time { return in.Legs.Maturity() }

// NewSwap builds a receive-fixed / pay-floating swap. The fixed coupon is
// left at zero: calibration quotes it through MeasureRate.
func NewSwap(effective, maturity time.Time, fixed, floating market.LegConvention, notional float64, currency string) (*Consolidated, error) {
	fx, err := FixedStream(effective, maturity, fixed, notional, 0, currency)
	if err != nil {
		return nil, err
	}
	fl, err := FloatingStream(effective, maturity, floating, -notional, 0, currency)
	if err != nil {
		return nil, err
	}
	return NewConsolidated(fx, fl)
}

// NewBasisSwap builds a swap receiving index a plus the quoted spread and
// paying index b flat.
func NewBasisSwap(effective, maturity time.Time, a, b market.LegConvention, notional float64, currency string) (*Consolidated, error) {
	ra, err := FloatingStream(effective, maturity, a, notional, 0, currency)
	if err != nil {
		return nil, err
	}
	pb, err := FloatingStream(effective, maturity, b, -notional, 0, currency)
	if err != nil {
		return nil, err
	}
	return NewConsolidated(ra, pb)
}
