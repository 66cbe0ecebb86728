package stream

import (
	"log/slog"
	"time"

	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// Measure names reported by Valuation.Measures.
const (
	MeasureDirtyPV      = "DirtyPV"
	MeasureCleanPV      = "CleanPV"
	MeasureAccrued      = "Accrued"
	MeasureAnnuity      = "Annuity"
	MeasureDV01         = "DV01"
	MeasurePrice        = "Price"
	MeasureRiskyDirtyPV = "RiskyDirtyPV"
)

// CashFlow is the valuation record of one live period.
type CashFlow struct {
	Start, End, Pay time.Time

	Notional  float64
	DCF       float64
	Rate      float64 // coupon rate including spread, decimal
	Source    RateSource
	Convexity float64
	Quanto    float64
	DF        float64
	Amount    float64 // undiscounted coupon
	PV        float64
	Accrued   float64
}

// Valuation is the result of valuing a stream on one date.
type Valuation struct {
	Date time.Time

	DirtyPV float64
	Accrued float64
	CleanPV float64
	Annuity float64 // Σ notional·dcf·DF·quanto
	DV01    float64 // annuity · 1bp
	Price   float64 // 100·(1 + CleanPV/notional)

	// RiskyDirtyPV weights each flow by survival when the stream names a
	// credit entity the context has a curve for.
	RiskyDirtyPV float64
	Risky        bool

	CashFlows []CashFlow
}

// Measures returns the valuation as a name → value map.
func (v *Valuation) Measures() map[string]float64 {
	m := map[string]float64{
		MeasureDirtyPV: v.DirtyPV,
		MeasureCleanPV: v.CleanPV,
		MeasureAccrued: v.Accrued,
		MeasureAnnuity: v.Annuity,
		MeasureDV01:    v.DV01,
		MeasurePrice:   v.Price,
	}
	if v.Risky {
		m[MeasureRiskyDirtyPV] = v.RiskyDirtyPV
	}
	return m
}

// evaluatePeriod computes the coupon of one live period. allowTelescoped
// controls whether a floating rate may be replicated off the funding curve.
func evaluatePeriod(p CouponPeriod, val time.Time, mc *market.Context, allowTelescoped bool) (CashFlow, bool) {
	cf := CashFlow{
		Start:     p.Start(),
		End:       p.End(),
		Pay:       p.Pay(),
		Notional:  p.Notional(),
		DCF:       p.DCF(),
		Rate:      p.Coupon(),
		Source:    SourceFixed,
		Convexity: 1,
		Quanto:    1,
	}
	if p.IsFloating() {
		ir, ok := resolveIndex(p, val, mc, allowTelescoped)
		if !ok {
			return CashFlow{}, false
		}
		cf.Rate = ir.rate + p.Spread()
		cf.Source = ir.source
		cf.Convexity = ir.convexity
		cf.Quanto = quantoFactor(p, val, mc)
	}
	cf.Amount = cf.Notional * cf.DCF * cf.Rate
	cf.Accrued = cf.Notional * p.AccruedFraction(val) * cf.Rate
	return cf, true
}

// Value prices the stream on val. It returns false when the funding curve of
// the stream's currency or a required floating rate is missing.
func (s *Stream) Value(val time.Time, mc *market.Context) (*Valuation, bool) {
	funding, ok := mc.FundingCurve(s.currency)
	if !ok {
		slog.Debug("no funding curve", "currency", s.currency)
		return nil, false
	}
	var credit market.CreditCurve
	if s.creditName != "" {
		credit, _ = mc.CreditCurve(s.creditName)
	}

	v := &Valuation{Date: val, Risky: credit != nil}
	for _, p := range s.live(val) {
		cf, ok := evaluatePeriod(p, val, mc, true)
		if !ok {
			slog.Debug("period unresolvable", "start", p.Start().Format(utils.DateLayout), "index", p.Index().Name)
			return nil, false
		}
		cf.DF = funding.DF(p.Pay())
		cf.PV = cf.Amount * cf.DF * cf.Quanto
		if cf.Source == SourceTelescoped {
			if ex, ok := telescope(p, val, mc); ok {
				telescoped(&cf, p, ex, funding, val)
			}
		}
		v.DirtyPV += cf.PV
		v.Accrued += cf.Accrued
		v.Annuity += cf.Notional * cf.DCF * cf.DF * cf.Quanto
		if credit != nil {
			v.RiskyDirtyPV += cf.PV * credit.Survival(p.Pay())
		}
		v.CashFlows = append(v.CashFlows, cf)
	}
	v.finish(s.NotionalAt(val))
	return v, true
}

// telescoped revalues a replicated floating coupon as its notional
// exchange, so the pay date only discounts the spread. This is the form the
// joint funding-forward rows calibrate against.
func telescoped(cf *CashFlow, p CouponPeriod, ex exchange, funding market.FundingCurve, val time.Time) {
	dfEnd := funding.DF(p.End())
	spread := cf.Notional * cf.DCF * p.Spread()
	cf.Amount = ex.In*funding.DF(ex.From)/dfEnd - ex.Out + spread
	if cf.Notional*cf.DCF != 0 {
		cf.Rate = cf.Amount / (cf.Notional * cf.DCF)
	}
	cf.Accrued = cf.Notional * p.AccruedFraction(val) * cf.Rate
	cf.PV = ex.In*funding.DF(ex.From) - ex.Out*dfEnd + spread*cf.DF
}

func (v *Valuation) finish(notional float64) {
	v.CleanPV = v.DirtyPV - v.Accrued
	v.DV01 = v.Annuity * 1e-4
	v.Price = 100
	if notional != 0 {
		v.Price = 100 * (1 + v.CleanPV/notional)
	}
}
