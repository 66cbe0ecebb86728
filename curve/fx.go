package curve

import (
	"fmt"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// FX projects outright forwards of base/quote (units of quote per base) by
// covered interest parity: F(t) = spot · DF_base(t) / DF_quote(t).
type FX struct {
	base, quote string
	spot        float64
	baseCurve   market.FundingCurve
	quoteCurve  market.FundingCurve
}

func NewFX(spot float64, baseCurve, quoteCurve market.FundingCurve) (*FX, error) {
	if !utils.IsFinite(spot) || spot <= 0 {
		return nil, fmt.Errorf("fx spot %v: %w", spot, calib.ErrInvalidInput)
	}
	if baseCurve == nil || quoteCurve == nil {
		return nil, fmt.Errorf("fx curve needs both funding curves: %w", calib.ErrInvalidInput)
	}
	return &FX{
		base:       baseCurve.Label().ID,
		quote:      quoteCurve.Label().ID,
		spot:       spot,
		baseCurve:  baseCurve,
		quoteCurve: quoteCurve,
	}, nil
}

func (c *FX) Label() market.Label { return market.FXLabel(c.base, c.quote) }
func (c *FX) Epoch() time.Time    { return c.baseCurve.Epoch() }
func (c *FX) Spot() float64       { return c.spot }

func (c *FX) Forward(t time.Time) float64 {
	return c.spot * c.baseCurve.DF(t) / c.quoteCurve.DF(t)
}
