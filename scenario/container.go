// Package scenario cooks the curve variants of one latent state: the base
// curve, parallel quote bumps, one tenor bump per calibration instrument and
// named custom scenarios.
package scenario

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/config"
	"github.com/meenmo/mcurve/market"
)

var (
	// ErrBaseCalibrationFailed aborts a cook; the container is left empty.
	ErrBaseCalibrationFailed = errors.New("base calibration failed")

	// ErrBumpCalibrationFailed is isolated to one variant; every other
	// variant stays cooked.
	ErrBumpCalibrationFailed = errors.New("bump calibration failed")
)

// Generator turns a quote vector into a curve. Quotes are ordered as Tenors.
// Calibrate must be safe for concurrent use with distinct contexts.
type Generator interface {
	Tenors() []string
	Calibrate(mc *market.Context, quotes []float64) (market.Curve, error)
}

type options struct {
	parallelism int
}

type Option func(*options)

// WithParallelism bounds the tenor-bump calibrations running at once.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{parallelism: config.GetConfig().Parallelism}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism < 1 {
		o.parallelism = 1
	}
	return o
}

// container is the cooking state shared by Rates and Credit.
type container struct {
	gen  Generator
	opts options
	set  Set
}

// recalibrate produces a recovery variant; sign is +1 or -1.
type recalibrate func(mc *market.Context, quotes []float64, sign float64) (market.Curve, error)

func (c *container) cook(mc *market.Context, quotes []float64, mask, allowed Bump, bump float64, recovery recalibrate) error {
	c.set = Set{}
	if extra := mask &^ allowed; extra != 0 {
		return fmt.Errorf("variants %s not supported here: %w", extra, calib.ErrInvalidInput)
	}
	base, err := c.gen.Calibrate(mc, quotes)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBaseCalibrationFailed, err)
	}

	set := Set{Base: base}
	var errs []error
	for _, v := range mask.Variants() {
		var err error
		switch v {
		case FlatUp:
			set.Up, err = c.gen.Calibrate(mc, shifted(quotes, bump))
		case FlatDn:
			set.Dn, err = c.gen.Calibrate(mc, shifted(quotes, -bump))
		case TenorUp:
			set.TenorUp, err = c.tenorBumps(mc, quotes, bump)
		case TenorDn:
			set.TenorDn, err = c.tenorBumps(mc, quotes, -bump)
		case RecoveryFlatUp:
			set.RecoveryUp, err = recovery(mc, quotes, 1)
		case RecoveryFlatDn:
			set.RecoveryDn, err = recovery(mc, quotes, -1)
		default:
			err = fmt.Errorf("unknown variant %s: %w", v, calib.ErrInvalidInput)
		}
		if err != nil {
			slog.Debug("scenario variant failed", "variant", v.String(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w: %w", v, ErrBumpCalibrationFailed, err))
		}
	}
	c.set = set
	return errors.Join(errs...)
}

// tenorBumps recalibrates once per instrument with only that quote moved.
// Each worker gets its own context snapshot. Successful tenors are kept even
// when others fail.
func (c *container) tenorBumps(mc *market.Context, quotes []float64, bump float64) (map[string]market.Curve, error) {
	tenors := c.gen.Tenors()
	if len(tenors) != len(quotes) {
		return nil, fmt.Errorf("%d tenors for %d quotes: %w", len(tenors), len(quotes), calib.ErrInvalidInput)
	}
	curves := make([]market.Curve, len(tenors))
	errs := make([]error, len(tenors))

	var g errgroup.Group
	g.SetLimit(c.opts.parallelism)
	for i := range tenors {
		g.Go(func() error {
			q := append([]float64(nil), quotes...)
			q[i] += bump
			curves[i], errs[i] = c.gen.Calibrate(mc.Snapshot(), q)
			return nil
		})
	}
	_ = g.Wait()

	var out map[string]market.Curve
	for i, tenor := range tenors {
		if errs[i] != nil {
			errs[i] = fmt.Errorf("tenor %s: %w", tenor, errs[i])
			continue
		}
		if out == nil {
			out = make(map[string]market.Curve, len(tenors))
		}
		out[tenor] = curves[i]
	}
	return out, errors.Join(errs...)
}

func shifted(quotes []float64, bump float64) []float64 {
	out := make([]float64, len(quotes))
	for i, q := range quotes {
		out[i] = q + bump
	}
	return out
}

func (c *container) Base() (market.Curve, bool)   { return present(c.set.Base) }
func (c *container) BumpUp() (market.Curve, bool) { return present(c.set.Up) }
func (c *container) BumpDn() (market.Curve, bool) { return present(c.set.Dn) }

func (c *container) TenorUp(tenor string) (market.Curve, bool) {
	crv, ok := c.set.TenorUp[tenor]
	return crv, ok
}

func (c *container) TenorDn(tenor string) (market.Curve, bool) {
	crv, ok := c.set.TenorDn[tenor]
	return crv, ok
}

func (c *container) Custom(name string) (market.Curve, bool) {
	crv, ok := c.set.Custom[name]
	return crv, ok
}

// Set returns a copy of the cooked variants.
func (c *container) Set() Set { return c.set.clone() }

func present(c market.Curve) (market.Curve, bool) {
	return c, c != nil
}

// Rates is the scenario container of a funding or forward curve.
type Rates struct {
	container
}

func NewRates(gen Generator, opts ...Option) *Rates {
	return &Rates{container{gen: gen, opts: newOptions(opts)}}
}

// Cook rebuilds the container: the base curve from quotes, then one variant
// per bit of mask, shifting quotes by bump in quote units.
func (r *Rates) Cook(mc *market.Context, quotes []float64, mask Bump, bump float64) error {
	return r.cook(mc, quotes, mask, RateBumps, bump, nil)
}

// CreditGenerator is a Generator for a credit curve whose recovery is read
// from the context's recovery surface for the name.
type CreditGenerator interface {
	Generator
	Name() string
	Recovery(mc *market.Context) float64
}

// Credit is the scenario container of a credit curve. It adds recovery bumps.
type Credit struct {
	container
	gen CreditGenerator
}

func NewCredit(gen CreditGenerator, opts ...Option) *Credit {
	return &Credit{container: container{gen: gen, opts: newOptions(opts)}, gen: gen}
}

// Cook is Rates.Cook plus RecoveryFlatUp/Dn, which recalibrate the unbumped
// quotes with the recovery rate moved by recoveryBump.
func (c *Credit) Cook(mc *market.Context, quotes []float64, mask Bump, bump, recoveryBump float64) error {
	return c.cook(mc, quotes, mask, CreditBumps, bump, func(mc *market.Context, quotes []float64, sign float64) (market.Curve, error) {
		snap := mc.Snapshot()
		rr := c.gen.Recovery(mc) + sign*recoveryBump
		if rr < 0 || rr >= 1 {
			return nil, fmt.Errorf("bumped recovery %v outside [0, 1): %w", rr, calib.ErrInvalidInput)
		}
		snap.SetSurface(market.RecoveryLabel(c.gen.Name()), market.FlatSurface(rr))
		return c.gen.Calibrate(snap, quotes)
	})
}

func (c *Credit) RecoveryUp() (market.Curve, bool) { return present(c.set.RecoveryUp) }
func (c *Credit) RecoveryDn() (market.Curve, bool) { return present(c.set.RecoveryDn) }
