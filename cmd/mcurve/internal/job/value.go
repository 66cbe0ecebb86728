package job

import (
	"fmt"
	"strings"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/config"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/scenario"
	"github.com/meenmo/mcurve/stream"
)

// Result is the value of one portfolio trade under one curve variant.
type Result struct {
	Trade   string  `json:"trade"`
	Variant string  `json:"variant"`
	PV      float64 `json:"pv"`
	Delta   float64 `json:"delta"`
}

// Value prices the portfolio under every variant of set. Delta is the change
// from the base PV. Credit runs value each trade as a risky fixed-coupon strip
// on the curve's reference entity; rates runs value fixed-vs-float swaps.
func (j *Job) Value(set scenario.Set) ([]Result, error) {
	trades, err := j.portfolio()
	if err != nil {
		return nil, err
	}
	base := make(map[string]float64, len(trades))
	var out []Result
	for _, e := range set.Entries() {
		mc := j.Context.Snapshot()
		if err := install(mc, e.Curve); err != nil {
			return nil, fmt.Errorf("variant %s: %w", e.Key, err)
		}
		for _, t := range trades {
			pv, err := t.value(j, mc)
			if err != nil {
				return nil, fmt.Errorf("trade %s under %s: %w", t.name, e.Key, err)
			}
			if e.Key == scenario.Bump(0).String() {
				base[t.name] = pv
			}
			out = append(out, Result{Trade: t.name, Variant: e.Key, PV: pv, Delta: pv - base[t.name]})
		}
	}
	return out, nil
}

type trade struct {
	name string
	legs []*stream.Stream
}

func (t trade) value(j *Job, mc *market.Context) (float64, error) {
	var pv float64
	for _, leg := range t.legs {
		v, ok := leg.Value(j.AsOf, mc)
		if !ok {
			return 0, calib.ErrUnresolvable
		}
		if v.Risky {
			pv += v.RiskyDirtyPV
		} else {
			pv += v.DirtyPV
		}
	}
	return pv, nil
}

func (j *Job) portfolio() ([]trade, error) {
	c := j.Run.Curve
	var fixed, float market.LegConvention
	if c.Kind == config.CurveCredit {
		fixed = legConvention(market.LegFixed, c.FixedLeg, market.Index{})
	} else {
		var err error
		if fixed, float, err = swapLegs(c); err != nil {
			return nil, err
		}
	}
	out := make([]trade, 0, len(j.Run.Portfolio))
	for _, ts := range j.Run.Portfolio {
		mat, err := curve.AddTenor(j.AsOf, ts.Tenor)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", ts.Name, err)
		}
		notional := ts.Notional
		if strings.EqualFold(ts.Direction, "PAY") {
			notional = -notional
		}

		if c.Kind == config.CurveCredit {
			s, err := stream.FixedStream(j.AsOf, mat, fixed, notional, ts.FixedRate, c.Currency)
			if err != nil {
				return nil, fmt.Errorf("trade %s: %w", ts.Name, err)
			}
			out = append(out, trade{name: ts.Name, legs: []*stream.Stream{s.WithCreditName(c.Name)}})
			continue
		}

		swap, err := stream.NewSwap(j.AsOf, mat, fixed, float, notional, c.Currency)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", ts.Name, err)
		}
		legs := swap.Legs()
		out = append(out, trade{name: ts.Name, legs: []*stream.Stream{legs[0].WithCoupon(ts.FixedRate), legs[1]}})
	}
	return out, nil
}

// install puts a cooked curve into mc under its own label.
func install(mc *market.Context, c market.Curve) error {
	switch c.Label().Kind {
	case market.KindFunding:
		if fc, ok := c.(market.FundingCurve); ok {
			mc.SetFundingCurve(fc)
			return nil
		}
	case market.KindForward:
		if fc, ok := c.(market.ForwardCurve); ok {
			mc.SetForwardCurve(fc)
			return nil
		}
	case market.KindCredit:
		if cc, ok := c.(market.CreditCurve); ok {
			mc.SetCreditCurve(cc)
			return nil
		}
	}
	return fmt.Errorf("cannot install %s curve %T: %w", c.Label(), c, calib.ErrInvalidInput)
}
