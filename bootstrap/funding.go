// Package bootstrap calibrates latent-state curves from instrument quotes.
//
// Each generator turns a quote vector into one curve: Funding solves
// discount factors by damped Newton iterations over all nodes at once,
// Forward solves node forward rates in a single linear step, and Credit
// strips piecewise-flat hazard rates tenor by tenor.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/config"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/stream"
	"github.com/meenmo/mcurve/utils"
)

// ErrNotConverged is returned when a solve exhausts its iteration budget.
var ErrNotConverged = errors.New("bootstrap did not converge")

// Funding calibrates the discount curve of one currency. Every instrument's
// maturity is a node; floating legs whose forward curve is missing from the
// context are replicated off the curve being solved and their forward state
// is resolved jointly.
type Funding struct {
	label       market.Label
	epoch       time.Time
	instruments []stream.Instrument
	nodes       []time.Time
}

// NewFunding checks that the instruments pay currency and mature on distinct
// dates after epoch.
func NewFunding(currency string, epoch time.Time, instruments []stream.Instrument) (*Funding, error) {
	nodes, err := maturities(epoch, instruments)
	if err != nil {
		return nil, err
	}
	for _, in := range instruments {
		if in.Legs.Currency() != currency {
			return nil, fmt.Errorf("instrument %s pays %s, curve is %s: %w", in.Tenor, in.Legs.Currency(), currency, calib.ErrInvalidInput)
		}
	}
	return &Funding{
		label:       market.FundingLabel(currency),
		epoch:       epoch,
		instruments: append([]stream.Instrument(nil), instruments...),
		nodes:       nodes,
	}, nil
}

func (f *Funding) Label() market.Label { return f.label }

// Tenors lists the instruments' tenor labels in quote order.
func (f *Funding) Tenors() []string { return tenors(f.instruments) }

// Calibrate solves the curve for quotes, one per instrument in Tenors order.
func (f *Funding) Calibrate(mc *market.Context, quotes []float64) (market.Curve, error) {
	d, err := f.Solve(mc, quotes)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Solve runs the Newton iterations. The first guess is the context's current
// curve for the currency when it has one, otherwise DF = 1 everywhere.
func (f *Funding) Solve(mc *market.Context, quotes []float64) (*curve.Discount, error) {
	rows, err := instrumentRows(f.instruments, f.epoch, mc, f.label, quotes)
	if err != nil {
		return nil, err
	}
	cfg := config.GetConfig()

	guess := make([]float64, len(f.nodes))
	prev, warm := mc.FundingCurve(f.label.ID)
	for i, n := range f.nodes {
		guess[i] = 1
		if warm {
			guess[i] = prev.DF(n)
		}
	}
	d, err := curve.NewDiscount(f.label, f.epoch, f.nodes, guess)
	if err != nil {
		return nil, err
	}

	sys := calib.System{Rows: rows}
	scale := rowScales(rows)
	for iter := 0; iter < cfg.MaxBootstrapIterations; iter++ {
		res := sys.Residuals(d.DF)
		if converged(res.RawVector().Data, scale, cfg.ConvergenceTolerance) {
			slog.Debug("funding curve solved", "label", f.label.String(), "iterations", iter)
			return d, nil
		}
		step, err := calib.NewtonStep(sys.Jacobian(len(f.nodes), d.NodeSensitivity), res)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.label, err)
		}

		next := d.NodeDFs()
		for k := range next {
			delta := step[k]
			if limit := cfg.DampingFactor * next[k]; math.Abs(delta) > limit {
				delta = math.Copysign(limit, delta)
			}
			next[k] = math.Max(next[k]+delta, cfg.MinDiscountFactor)
		}
		if d, err = d.WithNodeDFs(next); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s after %d iterations: %w", f.label, cfg.MaxBootstrapIterations, ErrNotConverged)
}

// Implied returns the funding-implied forward curves of the indices whose
// forward state the calibration rows resolved jointly with the funding curve.
func (f *Funding) Implied(mc *market.Context, funding market.FundingCurve, quotes []float64) ([]*curve.ImpliedForward, error) {
	rows, err := instrumentRows(f.instruments, f.epoch, mc, f.label, quotes)
	if err != nil {
		return nil, err
	}
	indices := make(map[string]market.Index)
	for _, in := range f.instruments {
		for _, leg := range in.Legs.Legs() {
			if leg.IsFloating() {
				indices[market.ForwardLabel(leg.Index()).String()] = leg.Index()
			}
		}
	}

	var out []*curve.ImpliedForward
	for _, sys := range calib.Partition(rows) {
		for _, l := range sys.MergeLabels() {
			idx, ok := indices[l]
			if !ok {
				continue
			}
			out = append(out, curve.NewImpliedForward(idx, funding))
		}
	}
	return out, nil
}

func instrumentRows(instruments []stream.Instrument, val time.Time, mc *market.Context, label market.Label, quotes []float64) ([]*calib.Constraint, error) {
	if len(quotes) != len(instruments) {
		return nil, fmt.Errorf("%d quotes for %d instruments: %w", len(quotes), len(instruments), calib.ErrInvalidInput)
	}
	rows := make([]*calib.Constraint, len(instruments))
	for i, in := range instruments {
		if !utils.IsFinite(quotes[i]) {
			return nil, fmt.Errorf("quote %s = %v: %w", in.Tenor, quotes[i], calib.ErrInvalidInput)
		}
		rows[i] = in.Constraint(val, mc, label, quotes[i])
		if rows[i] == nil {
			return nil, fmt.Errorf("instrument %s against %s: %w", in.Tenor, label, calib.ErrUnresolvable)
		}
	}
	return rows, nil
}

func maturities(epoch time.Time, instruments []stream.Instrument) ([]time.Time, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("no calibration instruments: %w", calib.ErrInvalidInput)
	}
	nodes := make([]time.Time, len(instruments))
	for i, in := range instruments {
		if in.Legs == nil {
			return nil, fmt.Errorf("instrument %s has no legs: %w", in.Tenor, calib.ErrInvalidInput)
		}
		nodes[i] = in.Maturity()
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Before(nodes[j]) })
	prev := epoch
	for _, n := range nodes {
		if !n.After(prev) {
			return nil, fmt.Errorf("maturity %s not after %s: %w", n.Format(utils.DateLayout), prev.Format(utils.DateLayout), calib.ErrInvalidInput)
		}
		prev = n
	}
	return nodes, nil
}

func tenors(instruments []stream.Instrument) []string {
	out := make([]string, len(instruments))
	for i, in := range instruments {
		out[i] = in.Tenor
	}
	return out
}

// rowScales normalises residuals by each row's gross weight so the tolerance
// does not depend on notional.
func rowScales(rows []*calib.Constraint) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		s := math.Abs(r.Value())
		for _, w := range r.Weights() {
			s += math.Abs(w)
		}
		out[i] = math.Max(s, 1)
	}
	return out
}

func converged(res, scale []float64, tol float64) bool {
	for i, r := range res {
		if math.IsNaN(r) || math.Abs(r) > tol*scale[i] {
			return false
		}
	}
	return true
}
