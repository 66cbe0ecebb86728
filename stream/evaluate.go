package stream

import (
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/integrate"

	"github.com/meenmo/mcurve/calendar"
	"github.com/meenmo/mcurve/config"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// RateSource records where a period's rate came from.
type RateSource int

const (
	SourceFixed RateSource = iota
	SourceFixing
	SourceForward
	SourceTelescoped
)

func (r RateSource) String() string {
	switch r {
	case SourceFixed:
		return "FIXED"
	case SourceFixing:
		return "FIXING"
	case SourceForward:
		return "FORWARD"
	case SourceTelescoped:
		return "TELESCOPED"
	default:
		return "UNKNOWN"
	}
}

// projector estimates the simple rate of an index over [start, end].
type projector func(start, end time.Time) float64

// projection picks the forward curve of idx when the context has one and
// otherwise replicates the rate off the index currency's funding curve.
func projection(idx market.Index, mc *market.Context, allowTelescoped bool) (projector, RateSource, bool) {
	if fc, ok := mc.ForwardCurve(idx); ok {
		return fc.Forward, SourceForward, true
	}
	if !allowTelescoped {
		return nil, 0, false
	}
	fund, ok := mc.FundingCurve(idx.Currency)
	if !ok {
		return nil, 0, false
	}
	dc := string(idx.DayCount)
	return func(start, end time.Time) float64 {
		tau := utils.YearFraction(start, end, dc)
		if tau <= 0 {
			return 0
		}
		return (fund.DF(start)/fund.DF(end) - 1) / tau
	}, SourceTelescoped, true
}

// indexRate is the resolved index part of a floating coupon, before spread.
type indexRate struct {
	rate      float64
	source    RateSource
	convexity float64
}

// resolveIndex resolves the index rate of a floating period: historical
// fixing, then forward curve, then (when allowed) funding-curve replication.
func resolveIndex(p CouponPeriod, val time.Time, mc *market.Context, allowTelescoped bool) (indexRate, bool) {
	idx := p.Index()
	if idx.IsOvernight() && idx.Compounding != market.CompoundingNone {
		return compounded(p, val, mc, allowTelescoped)
	}
	if !p.Reset().After(val) {
		if r, ok := mc.Fixing(idx.Name, p.Reset()); ok {
			return indexRate{rate: r, source: SourceFixing, convexity: 1}, true
		}
		slog.Debug("no fixing for past reset, projecting", "index", idx.Name, "reset", p.Reset().Format(utils.DateLayout))
	}
	proj, src, ok := projection(idx, mc, allowTelescoped)
	if !ok {
		slog.Debug("index rate unresolvable", "index", idx.Name, "start", p.Start().Format(utils.DateLayout))
		return indexRate{}, false
	}
	return indexRate{rate: proj(p.Start(), p.End()), source: src, convexity: 1}, true
}

// compounded resolves an overnight period from daily resets. Resets before val
// use fixings. Under geometric compounding the remaining resets are projected
// as one block carrying its own convexity factor; under arithmetic averaging
// every remaining reset is projected individually.
func compounded(p CouponPeriod, val time.Time, mc *market.Context, allowTelescoped bool) (indexRate, bool) {
	idx := p.Index()
	dc := string(idx.DayCount)
	resets := overnightResets(p)
	next := func(i int) time.Time { return nextReset(p, resets, i) }

	var (
		growth   = 1.0 // geometric
		sum      float64
		total    float64
		source   = SourceFixing
		future   = -1
		proj     projector
		resolved bool
	)
	for i, d := range resets {
		if d.Before(val) {
			r, ok := mc.Fixing(idx.Name, d)
			if ok {
				tau := utils.YearFraction(d, next(i), dc)
				growth *= 1 + r*tau
				sum += r * tau
				total += tau
				continue
			}
			slog.Debug("missing overnight fixing, projecting", "index", idx.Name, "date", d.Format(utils.DateLayout))
		}
		future = i
		break
	}

	convexity := 1.0
	if future >= 0 {
		proj, source, resolved = projection(idx, mc, allowTelescoped)
		if !resolved {
			slog.Debug("overnight rate unresolvable", "index", idx.Name, "start", resets[future].Format(utils.DateLayout))
			return indexRate{}, false
		}
		switch idx.Compounding {
		case market.CompoundingGeometric:
			from := resets[future]
			tau := utils.YearFraction(from, p.End(), dc)
			convexity = compoundingConvexity(idx, mc, val, from)
			r := proj(from, p.End()) * convexity
			growth *= 1 + r*tau
			total += tau
		case market.CompoundingArithmetic:
			for i := future; i < len(resets); i++ {
				tau := utils.YearFraction(resets[i], next(i), dc)
				sum += proj(resets[i], next(i)) * tau
				total += tau
			}
		}
	}
	if total <= 0 {
		return indexRate{}, false
	}

	var rate float64
	switch idx.Compounding {
	case market.CompoundingGeometric:
		rate = (growth - 1) / total
	case market.CompoundingArithmetic:
		rate = sum / total
	}
	return indexRate{rate: rate, source: source, convexity: convexity}, true
}

// overnightResets lists the daily reset dates of p, starting at p.Start.
func overnightResets(p CouponPeriod) []time.Time {
	resets := calendar.BusinessDaysBetween(p.Index().Calendar, p.Start(), p.End())
	if len(resets) == 0 || resets[0].After(p.Start()) {
		resets = append([]time.Time{p.Start()}, resets...)
	}
	return resets
}

func nextReset(p CouponPeriod, resets []time.Time, i int) time.Time {
	if i+1 < len(resets) {
		return resets[i+1]
	}
	return p.End()
}

// exchange is the funding-curve replication of the index part of a floating
// coupon: In·DF(From) − Out·DF(End), the coupon valued as if paid at the
// period end.
type exchange struct {
	From    time.Time
	In, Out float64
}

// telescope returns the exchange of a floating period whose index rate still
// has to be projected off its own funding curve. It reports false when the
// period is quanto, the rate is fully fixed, or a forward curve resolves it.
// A started overnight period keeps its fixed part as growth G and telescopes
// the remainder from the first unfixed reset.
func telescope(p CouponPeriod, val time.Time, mc *market.Context) (exchange, bool) {
	if !p.IsFloating() || p.IsQuanto() {
		return exchange{}, false
	}
	idx := p.Index()
	if _, ok := mc.ForwardCurve(idx); ok {
		return exchange{}, false
	}
	dc := string(idx.DayCount)
	n := p.Notional()

	if !idx.IsOvernight() || idx.Compounding == market.CompoundingNone {
		if !p.Reset().After(val) {
			if _, fixed := mc.Fixing(idx.Name, p.Reset()); fixed {
				return exchange{}, false
			}
		}
		tau := utils.YearFraction(p.Start(), p.End(), dc)
		if tau <= 0 {
			return exchange{}, false
		}
		k := n * p.DCF() / tau
		return exchange{From: p.Start(), In: k, Out: k}, true
	}

	resets := overnightResets(p)
	growth, sum, total := 1.0, 0.0, 0.0
	future := len(resets)
	for i, d := range resets {
		if d.Before(val) {
			if r, ok := mc.Fixing(idx.Name, d); ok {
				tau := utils.YearFraction(d, nextReset(p, resets, i), dc)
				growth *= 1 + r*tau
				sum += r * tau
				total += tau
				continue
			}
		}
		future = i
		break
	}
	if future == len(resets) {
		return exchange{}, false
	}
	from := resets[future]
	total += utils.YearFraction(from, p.End(), dc)
	if total <= 0 {
		return exchange{}, false
	}
	k := n * p.DCF() / total
	if idx.Compounding == market.CompoundingArithmetic {
		// The unfixed remainder is replicated as one compounded block.
		return exchange{From: from, In: k, Out: k * (1 - sum)}, true
	}
	c := compoundingConvexity(idx, mc, val, from)
	return exchange{From: from, In: k * growth * c, Out: k * (1 - growth*(1-c))}, true
}

// covariance returns t ↦ σ_a(t)·σ_b(t)·ρ_ab(t) when all three surfaces exist.
func covariance(mc *market.Context, a, b market.Label) (func(time.Time) float64, bool) {
	va, ok := mc.Volatility(a)
	if !ok {
		return nil, false
	}
	vb, ok := mc.Volatility(b)
	if !ok {
		return nil, false
	}
	rho, ok := mc.Correlation(a, b)
	if !ok {
		return nil, false
	}
	return func(t time.Time) float64 {
		return va.Value(t) * vb.Value(t) * rho.Value(t)
	}, true
}

// integral applies the trapezoid rule to f over [from, to] on the curve time axis.
func integral(f func(time.Time) float64, from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	steps := max(config.GetConfig().IntegrationSteps, 1)
	span := float64(to.Sub(from))
	yf := utils.YearFraction(from, to, curve.TimeBasis)
	xs := make([]float64, steps+1)
	fs := make([]float64, steps+1)
	for i := range xs {
		frac := float64(i) / float64(steps)
		xs[i] = yf * frac
		fs[i] = f(from.Add(time.Duration(span * frac)))
	}
	return integrate.Trapezoidal(xs, fs)
}

// quantoFactor is exp(∫ σ_funding·σ_fx·ρ dt) from val to pay for a period paid
// outside its index currency, or 1 when any surface is missing.
func quantoFactor(p CouponPeriod, val time.Time, mc *market.Context) float64 {
	if !p.IsQuanto() {
		return 1
	}
	cov, ok := covariance(mc, market.FundingLabel(p.Index().Currency), p.Quanto())
	if !ok {
		return 1
	}
	return math.Exp(integral(cov, val, p.Pay()))
}

// compoundingConvexity is exp(∫ σ_fwd·σ_funding·ρ dt) from val to the first
// projected reset of a geometrically compounded period, or 1 when any surface
// is missing. It is independent of the quanto factor.
func compoundingConvexity(idx market.Index, mc *market.Context, val, from time.Time) float64 {
	cov, ok := covariance(mc, market.ForwardLabel(idx), market.FundingLabel(idx.Currency))
	if !ok {
		return 1
	}
	return math.Exp(integral(cov, val, from))
}
