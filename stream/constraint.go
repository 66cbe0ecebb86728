package stream

import (
	"log/slog"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
)

// applyQuote replaces the fixed coupon (Rate, SwapRate) or the floating spread
// (Spread) by the quote when the measure fits the stream. It reports the
// measure whose weight sensitivities must be recorded.
func (s *Stream) applyQuote(q Quote) (*Stream, string, bool) {
	if r, ok := q.Rate(); ok && !s.IsFloating() {
		return s.WithCoupon(r), q.Measure, true
	}
	if sp, ok := q.Spread(); ok && s.IsFloating() {
		return s.WithSpread(sp), q.Measure, true
	}
	return s, "", false
}

func (s *Stream) accepts(q Quote) bool {
	_, rate := q.Rate()
	_, spread := q.Spread()
	return (rate && !s.IsFloating()) || (spread && s.IsFloating())
}

// finish writes the quoted PV into the row's target and its unit sensitivity.
func finish(c *calib.Constraint, q Quote) {
	if v, ok := q.PV(); ok {
		c.UpdateValue(v)
	}
	c.UpdateDValueDManifestMeasure(MeasurePV, 1)
}

// FundingConstraint is the row of a stream calibrating its funding curve when
// every coupon is known without it: fixed streams, or floating streams whose
// forward curve is already resolved. Weights sit at pay dates.
func (s *Stream) FundingConstraint(val time.Time, mc *market.Context, q Quote) *calib.Constraint {
	c, ok := s.fundingRows(val, mc, q)
	if !ok {
		return nil
	}
	finish(c, q)
	return c
}

func (s *Stream) fundingRows(val time.Time, mc *market.Context, q Quote) (*calib.Constraint, bool) {
	quoted, measure, replaced := s.applyQuote(q)
	c := calib.NewConstraint()
	for _, p := range quoted.live(val) {
		cf, ok := evaluatePeriod(p, val, mc, false)
		if !ok {
			return nil, false
		}
		if !c.AddPredictorResponseWeight(p.Pay(), cf.Amount*cf.Quanto) {
			return nil, false
		}
		if replaced {
			c.AddDResponseWeightDManifestMeasure(measure, p.Pay(), cf.Notional*cf.DCF*cf.Quanto)
		}
	}
	return c, true
}

// ForwardConstraint is the row of a stream calibrating the forward curve
// named by target while its funding curve is resolved. The unknown of each
// matching period is its forward rate, so the weight notional·dcf·DF(pay) sits
// at the period end. Everything already known (fixed coupons, spreads,
// fixings, periods on another index) folds into the target value and records
// no weight of its own.
func (s *Stream) ForwardConstraint(val time.Time, mc *market.Context, target market.Label, q Quote) *calib.Constraint {
	c, ok := s.forwardRows(val, mc, target, q)
	if !ok {
		return nil
	}
	finish(c, q)
	return c
}

func (s *Stream) forwardRows(val time.Time, mc *market.Context, target market.Label, q Quote) (*calib.Constraint, bool) {
	if target.Kind != market.KindForward {
		return nil, false
	}
	funding, ok := mc.FundingCurve(s.currency)
	if !ok {
		slog.Debug("forward row needs a funding curve", "currency", s.currency, "target", target.String())
		return nil, false
	}
	quoted, measure, replaced := s.applyQuote(q)
	c := calib.NewConstraint()
	var known, dKnown float64
	for _, p := range quoted.live(val) {
		df := funding.DF(p.Pay())
		if unknownForward(p, val, mc, target) {
			quanto := quantoFactor(p, val, mc)
			convexity := 1.0
			if p.Index().Compounding == market.CompoundingGeometric {
				convexity = compoundingConvexity(p.Index(), mc, val, p.Start())
			}
			if !c.AddPredictorResponseWeight(p.End(), p.Notional()*p.DCF()*df*quanto*convexity) {
				return nil, false
			}
			known += p.Notional() * p.DCF() * p.Spread() * df * quanto
			if replaced {
				dKnown += p.Notional() * p.DCF() * df * quanto
			}
			continue
		}
		cf, ok := evaluatePeriod(p, val, mc, true)
		if !ok {
			return nil, false
		}
		known += cf.Amount * df * cf.Quanto
		if replaced {
			dKnown += cf.Notional * cf.DCF * df * cf.Quanto
		}
	}
	if !c.UpdateValue(-known) {
		return nil, false
	}
	if replaced {
		c.UpdateDValueDManifestMeasure(measure, -dKnown)
	}
	return c, true
}

// unknownForward reports whether p's rate is the forward being calibrated:
// same index, not started, and not already fixed.
func unknownForward(p CouponPeriod, val time.Time, mc *market.Context, target market.Label) bool {
	if !p.IsFloating() || p.Index().Name != target.ID || p.Start().Before(val) {
		return false
	}
	if !p.Reset().After(val) && !p.Index().IsOvernight() {
		if _, fixed := mc.Fixing(p.Index().Name, p.Reset()); fixed {
			return false
		}
	}
	return true
}

// FundingForwardConstraint is the row of a floating stream whose forward
// curve is not resolved, calibrated jointly with its own funding curve. The
// floating coupons telescope into +notional at each period start and
// −notional at its end, which for a bullet stream leaves +N at the first live
// start and −N at maturity. A started period telescopes from its first
// unfixed reset, scaled by the growth already fixed. Spreads weigh in at pay
// dates. The row carries the
// forward state as a merge label.
func (s *Stream) FundingForwardConstraint(val time.Time, mc *market.Context, q Quote) *calib.Constraint {
	c, ok := s.telescopedRows(val, mc, q)
	if !ok {
		return nil
	}
	finish(c, q)
	return c
}

func (s *Stream) telescopedRows(val time.Time, mc *market.Context, q Quote) (*calib.Constraint, bool) {
	if !s.IsFloating() || s.index.Currency != s.currency {
		return nil, false
	}
	quoted, measure, replaced := s.applyQuote(q)
	c := calib.NewConstraint()
	for _, p := range quoted.live(val) {
		ex, ok := telescope(p, val, mc)
		if !ok {
			cf, ok := evaluatePeriod(p, val, mc, false)
			if !ok || !c.AddPredictorResponseWeight(p.Pay(), cf.Amount) {
				return nil, false
			}
			if replaced && !c.AddDResponseWeightDManifestMeasure(measure, p.Pay(), cf.Notional*cf.DCF) {
				return nil, false
			}
			continue
		}
		n := p.Notional()
		if !c.AddPredictorResponseWeight(ex.From, ex.In) || !c.AddPredictorResponseWeight(p.End(), -ex.Out) {
			return nil, false
		}
		if p.Spread() != 0 && !c.AddPredictorResponseWeight(p.Pay(), n*p.DCF()*p.Spread()) {
			return nil, false
		}
		if replaced && !c.AddDResponseWeightDManifestMeasure(measure, p.Pay(), n*p.DCF()) {
			return nil, false
		}
	}
	c.AddMergeLabel(market.ForwardLabel(s.index).String())
	return c, true
}

// Constraint picks the assembly mode for the latent state being calibrated:
// funding rows when every coupon is known, telescoped rows when the stream's
// own forward state is unresolved, forward rows when calibrating a forward
// curve. It returns nil when no row can be formed.
func (s *Stream) Constraint(val time.Time, mc *market.Context, calibrating market.Label, q Quote) *calib.Constraint {
	c, ok := s.rows(val, mc, calibrating, q)
	if !ok {
		return nil
	}
	finish(c, q)
	return c
}

func (s *Stream) rows(val time.Time, mc *market.Context, calibrating market.Label, q Quote) (*calib.Constraint, bool) {
	switch calibrating.Kind {
	case market.KindFunding:
		if s.currency != calibrating.ID {
			return nil, false
		}
		if !s.IsFloating() {
			return s.fundingRows(val, mc, q)
		}
		if _, ok := mc.ForwardCurve(s.index); ok {
			return s.fundingRows(val, mc, q)
		}
		return s.telescopedRows(val, mc, q)
	case market.KindForward:
		return s.forwardRows(val, mc, calibrating, q)
	default:
		return nil, false
	}
}
