package curve

import (
	"time"

	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// ImpliedForward projects an index off a funding curve:
//
//	f(s, e) = (DF(s)/DF(e) − 1) / τ(s, e)
//
// with τ in the index day count. Joint funding/forward calibrations install it
// for every forward state resolved together with the funding curve.
type ImpliedForward struct {
	index   market.Index
	funding market.FundingCurve
}

func NewImpliedForward(index market.Index, funding market.FundingCurve) *ImpliedForward {
	return &ImpliedForward{index: index, funding: funding}
}

func (c *ImpliedForward) Label() market.Label { return market.ForwardLabel(c.index) }
func (c *ImpliedForward) Epoch() time.Time    { return c.funding.Epoch() }

// Funding returns the curve the forwards are implied from.
func (c *ImpliedForward) Funding() market.FundingCurve { return c.funding }

func (c *ImpliedForward) Forward(start, end time.Time) float64 {
	tau := utils.YearFraction(start, end, string(c.index.DayCount))
	if tau <= 0 {
		return 0
	}
	return (c.funding.DF(start)/c.funding.DF(end) - 1) / tau
}
