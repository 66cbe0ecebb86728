package stream

import (
	"fmt"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// PeriodSpec carries the inputs of NewCouponPeriod.
type PeriodSpec struct {
	Start, End time.Time // accrual
	Pay        time.Time
	Reset      time.Time // fixing date; defaults to Start for floating periods

	DayCount market.DayCount
	DCF      float64 // 0 means derive from DayCount

	Notional       float64
	NotionalFactor float64 // amortisation factor on Notional; 0 means 1

	Coupon float64      // fixed rate, decimal
	Index  market.Index // zero for fixed periods
	Spread float64      // over the floating index, decimal

	PayCurrency string
	Quanto      market.Label // FX state of a quanto period; derived from currencies when unset
}

// CouponPeriod is one immutable accrual period of a stream.
type CouponPeriod struct {
	start, end, pay, reset time.Time

	dayCount market.DayCount
	dcf      float64

	notional float64
	factor   float64

	coupon float64
	index  market.Index
	spread float64

	payCurrency string
	quanto      market.Label
}

// NewCouponPeriod validates spec and builds the period. No partial object is
// ever returned.
func NewCouponPeriod(spec PeriodSpec) (CouponPeriod, error) {
	invalid := func(format string, args ...any) (CouponPeriod, error) {
		return CouponPeriod{}, fmt.Errorf("coupon period: "+format+": %w", append(args, calib.ErrInvalidInput)...)
	}
	if spec.Start.IsZero() || spec.End.IsZero() || spec.Pay.IsZero() {
		return invalid("start, end and pay dates are required")
	}
	if !spec.End.After(spec.Start) {
		return invalid("end %s not after start %s", spec.End.Format(utils.DateLayout), spec.Start.Format(utils.DateLayout))
	}
	if spec.Pay.Before(spec.Start) {
		return invalid("pay %s before start %s", spec.Pay.Format(utils.DateLayout), spec.Start.Format(utils.DateLayout))
	}
	if spec.PayCurrency == "" {
		return invalid("pay currency is required")
	}
	dcf := spec.DCF
	if dcf == 0 {
		dcf = utils.YearFraction(spec.Start, spec.End, string(spec.DayCount))
	}
	if !utils.IsFinite(dcf) || dcf <= 0 {
		return invalid("day count fraction %v", dcf)
	}
	factor := spec.NotionalFactor
	if factor == 0 {
		factor = 1
	}
	for name, v := range map[string]float64{"notional": spec.Notional, "notional factor": factor, "coupon": spec.Coupon, "spread": spec.Spread} {
		if !utils.IsFinite(v) {
			return invalid("%s %v", name, v)
		}
	}
	reset := spec.Reset
	quanto := spec.Quanto
	if !spec.Index.IsZero() {
		if spec.Index.Currency == "" {
			return invalid("index %s has no currency", spec.Index.Name)
		}
		if reset.IsZero() {
			reset = spec.Start
		}
		if quanto.IsZero() && spec.Index.Currency != spec.PayCurrency {
			quanto = market.FXLabel(spec.Index.Currency, spec.PayCurrency)
		}
	} else if spec.Spread != 0 {
		return invalid("fixed period carries a spread")
	}
	return CouponPeriod{
		start:       spec.Start,
		end:         spec.End,
		pay:         spec.Pay,
		reset:       reset,
		dayCount:    spec.DayCount,
		dcf:         dcf,
		notional:    spec.Notional,
		factor:      factor,
		coupon:      spec.Coupon,
		index:       spec.Index,
		spread:      spec.Spread,
		payCurrency: spec.PayCurrency,
		quanto:      quanto,
	}, nil
}

// Spec returns the inputs that rebuild p.
func (p CouponPeriod) Spec() PeriodSpec {
	return PeriodSpec{
		Start:          p.start,
		End:            p.end,
		Pay:            p.pay,
		Reset:          p.reset,
		DayCount:       p.dayCount,
		DCF:            p.dcf,
		Notional:       p.notional,
		NotionalFactor: p.factor,
		Coupon:         p.coupon,
		Index:          p.index,
		Spread:         p.spread,
		PayCurrency:    p.payCurrency,
		Quanto:         p.quanto,
	}
}

func (p CouponPeriod) Start() time.Time          { return p.start }
func (p CouponPeriod) End() time.Time            { return p.end }
func (p CouponPeriod) Pay() time.Time            { return p.pay }
func (p CouponPeriod) Reset() time.Time          { return p.reset }
func (p CouponPeriod) DayCount() market.DayCount { return p.dayCount }
func (p CouponPeriod) DCF() float64              { return p.dcf }
func (p CouponPeriod) BaseNotional() float64     { return p.notional }
func (p CouponPeriod) NotionalFactor() float64   { return p.factor }
func (p CouponPeriod) Coupon() float64           { return p.coupon }
func (p CouponPeriod) Index() market.Index       { return p.index }
func (p CouponPeriod) Spread() float64           { return p.spread }
func (p CouponPeriod) PayCurrency() string       { return p.payCurrency }
func (p CouponPeriod) Quanto() market.Label      { return p.quanto }

// Notional is the base notional scaled by the notional-schedule factor.
func (p CouponPeriod) Notional() float64 { return p.notional * p.factor }

// IsFloating reports whether the period references an index.
func (p CouponPeriod) IsFloating() bool { return !p.index.IsZero() }

// IsQuanto reports whether a floating period settles outside its index currency.
func (p CouponPeriod) IsQuanto() bool {
	return p.IsFloating() && p.index.Currency != p.payCurrency
}

// Straddles reports whether d falls strictly inside the accrual interval.
func (p CouponPeriod) Straddles(d time.Time) bool {
	return p.start.Before(d) && d.Before(p.end)
}

// AccruedFraction is the day-count fraction from start to d, clamped to the period.
func (p CouponPeriod) AccruedFraction(d time.Time) float64 {
	if !p.Straddles(d) {
		return 0
	}
	full := utils.YearFraction(p.start, p.end, string(p.dayCount))
	if full <= 0 {
		return 0
	}
	return p.dcf * utils.YearFraction(p.start, d, string(p.dayCount)) / full
}

// WithCoupon returns a copy paying a different fixed coupon.
func (p CouponPeriod) WithCoupon(c float64) CouponPeriod {
	p.coupon = c
	return p
}

// WithSpread returns a copy with a different floating spread.
func (p CouponPeriod) WithSpread(s float64) CouponPeriod {
	p.spread = s
	return p
}
