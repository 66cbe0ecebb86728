// Package job turns a run file into a calibration: the market context, the
// curve generator with its quotes, and the scenario container to cook.
package job

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meenmo/mcurve/bootstrap"
	"github.com/meenmo/mcurve/calendar"
	"github.com/meenmo/mcurve/config"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/scenario"
	"github.com/meenmo/mcurve/stream"
	"github.com/meenmo/mcurve/utils"
)

// Job is a built run, ready to cook.
type Job struct {
	Run     *config.Run
	AsOf    time.Time
	Label   market.Label
	Context *market.Context
	Quotes  []float64
	Mask    scenario.Bump
	Customs []scenario.Custom

	rates  *scenario.Rates
	credit *scenario.Credit
}

// Build resolves every name in r. r should already be validated.
func Build(r *config.Run) (*Job, error) {
	asOf, err := utils.ParseDate(r.AsOf)
	if err != nil {
		return nil, err
	}
	mask, err := scenario.ParseBump(r.Scenario.Mask)
	if err != nil {
		return nil, err
	}
	customs, err := customScenarios(r.Scenario.Custom)
	if err != nil {
		return nil, err
	}
	mc, err := upstreamContext(asOf, r.Upstream)
	if err != nil {
		return nil, err
	}

	j := &Job{Run: r, AsOf: asOf, Context: mc, Mask: mask, Customs: customs}
	c := r.Curve
	for _, q := range c.Quotes {
		j.Quotes = append(j.Quotes, q.Value)
	}
	opts := []scenario.Option{scenario.WithParallelism(r.Solver.Parallelism)}

	switch c.Kind {
	case config.CurveFunding, config.CurveForward:
		fixed, float, err := swapLegs(c)
		if err != nil {
			return nil, err
		}
		instruments, err := swaps(asOf, c, fixed, float)
		if err != nil {
			return nil, err
		}
		if c.Kind == config.CurveFunding {
			gen, err := bootstrap.NewFunding(c.Currency, asOf, instruments)
			if err != nil {
				return nil, err
			}
			j.Label, j.rates = gen.Label(), scenario.NewRates(gen, opts...)
		} else {
			gen, err := bootstrap.NewForward(float.Index, asOf, instruments)
			if err != nil {
				return nil, err
			}
			j.Label, j.rates = gen.Label(), scenario.NewRates(gen, opts...)
		}
	case config.CurveCredit:
		leg := legConvention(market.LegFixed, c.FixedLeg, market.Index{})
		contracts := make([]bootstrap.CDS, len(c.Quotes))
		for i, q := range c.Quotes {
			if contracts[i], err = bootstrap.NewCDS(c.Name, q.Tenor, asOf, leg, c.Currency); err != nil {
				return nil, err
			}
		}
		gen, err := bootstrap.NewCredit(c.Name, c.Currency, asOf, contracts)
		if err != nil {
			return nil, err
		}
		j.Label, j.credit = gen.Label(), scenario.NewCredit(gen, opts...)
	default:
		return nil, fmt.Errorf("unknown curve kind %q", c.Kind)
	}
	return j, nil
}

// Cook runs the base and bump calibrations, then every custom scenario. It
// fails only when the base curve cannot be built; bump and custom failures
// are returned alongside the cooked set.
func (j *Job) Cook() (scenario.Set, error) {
	var err error
	s := j.Run.Scenario
	if j.credit != nil {
		err = j.credit.Cook(j.Context, j.Quotes, j.Mask, s.Bump, s.RecoveryBump)
	} else {
		err = j.rates.Cook(j.Context, j.Quotes, j.Mask, s.Bump)
	}
	if errors.Is(err, scenario.ErrBaseCalibrationFailed) {
		return scenario.Set{}, err
	}
	errs := []error{err}
	for _, cs := range j.Customs {
		if j.credit != nil {
			errs = append(errs, j.credit.CookCustom(j.Context, j.Quotes, cs))
		} else {
			errs = append(errs, j.rates.CookCustom(j.Context, j.Quotes, cs))
		}
	}
	if j.credit != nil {
		return j.credit.Set(), errors.Join(errs...)
	}
	return j.rates.Set(), errors.Join(errs...)
}

// swapLegs returns the fixed and floating legs of the quoted swaps, from the
// named preset when there is one.
func swapLegs(c config.CurveSpec) (fixed, float market.LegConvention, err error) {
	if c.Convention != "" {
		sc, ok := market.LookupSwapConvention(c.Convention)
		if !ok {
			return fixed, float, fmt.Errorf("unknown swap convention %q", c.Convention)
		}
		return sc.Fixed, sc.Float, nil
	}
	idx, ok := market.LookupIndex(c.FloatLeg.Index)
	if !ok {
		return fixed, float, fmt.Errorf("unknown index %q", c.FloatLeg.Index)
	}
	return legConvention(market.LegFixed, c.FixedLeg, market.Index{}), legConvention(market.LegFloating, c.FloatLeg, idx), nil
}

func legConvention(t market.LegType, l config.LegSpec, idx market.Index) market.LegConvention {
	return market.LegConvention{
		LegType:      t,
		Index:        idx,
		DayCount:     market.DayCount(l.DayCount),
		PayFrequency: market.Frequency(l.FrequencyMonths),
		Calendar:     calendar.CalendarID(l.Calendar),
	}
}

func swaps(asOf time.Time, c config.CurveSpec, fixed, float market.LegConvention) ([]stream.Instrument, error) {
	out := make([]stream.Instrument, len(c.Quotes))
	for i, q := range c.Quotes {
		mat, err := curve.AddTenor(asOf, q.Tenor)
		if err != nil {
			return nil, err
		}
		legs, err := stream.NewSwap(asOf, mat, fixed, float, c.Notional, c.Currency)
		if err != nil {
			return nil, fmt.Errorf("swap %s: %w", q.Tenor, err)
		}
		out[i] = stream.Instrument{Tenor: q.Tenor, Measure: stream.MeasureRate, Legs: legs}
	}
	return out, nil
}

func upstreamContext(asOf time.Time, u config.Upstream) (*market.Context, error) {
	mc := market.NewContext()
	for _, ccy := range sortedKeys(u.Funding) {
		mc.SetFundingCurve(curve.FlatDiscount(market.FundingLabel(ccy), asOf, u.Funding[ccy]))
	}
	for _, ccy := range sortedKeys(u.Govvie) {
		mc.SetGovvieCurve(curve.FlatDiscount(market.GovvieLabel(ccy), asOf, u.Govvie[ccy]))
	}
	for _, name := range sortedKeys(u.Forward) {
		idx, ok := market.LookupIndex(name)
		if !ok {
			return nil, fmt.Errorf("upstream forward: unknown index %q", name)
		}
		mc.SetForwardCurve(curve.FlatForward(idx, asOf, u.Forward[name]))
	}
	for _, name := range sortedKeys(u.Recovery) {
		mc.SetSurface(market.RecoveryLabel(name), market.FlatSurface(u.Recovery[name]))
	}
	return mc, nil
}

func customScenarios(specs []config.CustomSpec) ([]scenario.Custom, error) {
	out := make([]scenario.Custom, 0, len(specs))
	for _, cs := range specs {
		c := scenario.Custom{Name: cs.Name}
		for _, ts := range cs.Tweaks {
			target, err := scenario.ParseTarget(ts.Target)
			if err != nil {
				return nil, fmt.Errorf("custom %s: %w", cs.Name, err)
			}
			kind, err := scenario.ParseTweakKind(ts.Kind)
			if err != nil {
				return nil, fmt.Errorf("custom %s: %w", cs.Name, err)
			}
			c.Tweaks = append(c.Tweaks, scenario.Tweak{
				Target:   target,
				Currency: strings.ToUpper(ts.Currency),
				Kind:     kind,
				Amount:   ts.Amount,
				Only:     ts.Only,
			})
		}
		out = append(out, c)
	}
	return out, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
