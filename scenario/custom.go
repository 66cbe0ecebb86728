package scenario

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// Target selects what a Tweak perturbs.
type Target int

const (
	// TargetFunding moves the node zero rates of the context's funding curve.
	TargetFunding Target = iota + 1
	// TargetGovvie moves the node zero rates of the context's govvie curve.
	TargetGovvie
	// TargetQuotes moves the calibration quotes.
	TargetQuotes
)

var targetNames = map[Target]string{
	TargetFunding: "FUNDING",
	TargetGovvie:  "GOVVIE",
	TargetQuotes:  "QUOTES",
}

func (t Target) String() string {
	if s, ok := targetNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TARGET(%d)", int(t))
}

func ParseTarget(s string) (Target, error) {
	for t, name := range targetNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("tweak target %q: %w", s, calib.ErrInvalidInput)
}

type TweakKind int

const (
	// Additive adds Amount.
	Additive TweakKind = iota
	// Multiplicative scales by 1 + Amount.
	Multiplicative
)

func (k TweakKind) String() string {
	if k == Multiplicative {
		return "MUL"
	}
	return "ADD"
}

func ParseTweakKind(s string) (TweakKind, error) {
	switch strings.ToUpper(s) {
	case "", "ADD", "ADDITIVE":
		return Additive, nil
	case "MUL", "MULTIPLICATIVE":
		return Multiplicative, nil
	}
	return 0, fmt.Errorf("tweak kind %q: %w", s, calib.ErrInvalidInput)
}

// Tweak is one perturbation of a custom scenario.
//
// Only restricts the tweak: for quotes it lists tenor labels, for curves it
// lists node dates (YYYY-MM-DD) or tenors from the curve epoch. Empty means
// every quote or node.
type Tweak struct {
	Target   Target
	Currency string
	Kind     TweakKind
	Amount   float64
	Only     []string
}

func (t Tweak) apply(x float64) float64 {
	if t.Kind == Multiplicative {
		return x * (1 + t.Amount)
	}
	return x + t.Amount
}

func (t Tweak) selectsTenor(tenor string) bool {
	return len(t.Only) == 0 || slices.Contains(t.Only, tenor)
}

func (t Tweak) selectsNode(epoch, node time.Time) bool {
	if len(t.Only) == 0 {
		return true
	}
	for _, s := range t.Only {
		if d, err := utils.ParseDate(s); err == nil && d.Equal(node) {
			return true
		}
		if d, err := curve.AddTenor(epoch, s); err == nil && d.Equal(node) {
			return true
		}
	}
	return false
}

// Custom is a named list of tweaks. Context tweaks are applied before quote
// tweaks, each group in the order given.
type Custom struct {
	Name   string
	Tweaks []Tweak
}

// CookCustom recalibrates the generator under s and stores the result under
// s.Name. The base must already be cooked; the context is not modified.
func (c *container) CookCustom(mc *market.Context, quotes []float64, s Custom) error {
	if s.Name == "" {
		return fmt.Errorf("custom scenario needs a name: %w", calib.ErrInvalidInput)
	}
	if c.set.Base == nil {
		return fmt.Errorf("custom %s: no base curve: %w", s.Name, ErrBaseCalibrationFailed)
	}
	snap := mc.Snapshot()
	q := append([]float64(nil), quotes...)
	tenors := c.gen.Tenors()

	ordered := slices.Clone(s.Tweaks)
	slices.SortStableFunc(ordered, func(a, b Tweak) int { return int(a.Target) - int(b.Target) })
	for _, t := range ordered {
		var err error
		switch t.Target {
		case TargetFunding:
			err = tweakDiscount(t, snap.FundingCurve, func(d *curve.Discount) { snap.SetFundingCurve(d) })
		case TargetGovvie:
			err = tweakDiscount(t, snap.GovvieCurve, func(d *curve.Discount) { snap.SetGovvieCurve(d) })
		case TargetQuotes:
			if len(tenors) != len(q) {
				err = fmt.Errorf("%d tenors for %d quotes: %w", len(tenors), len(q), calib.ErrInvalidInput)
				break
			}
			for i, tenor := range tenors {
				if t.selectsTenor(tenor) {
					q[i] = t.apply(q[i])
				}
			}
		default:
			err = fmt.Errorf("tweak target %s: %w", t.Target, calib.ErrInvalidInput)
		}
		if err != nil {
			return fmt.Errorf("custom %s: %w", s.Name, err)
		}
	}

	crv, err := c.gen.Calibrate(snap, q)
	if err != nil {
		return fmt.Errorf("custom %s: %w: %w", s.Name, ErrBumpCalibrationFailed, err)
	}
	if c.set.Custom == nil {
		c.set.Custom = make(map[string]market.Curve)
	}
	c.set.Custom[s.Name] = crv
	return nil
}

func tweakDiscount(t Tweak, lookup func(string) (market.FundingCurve, bool), store func(*curve.Discount)) error {
	fc, ok := lookup(t.Currency)
	if !ok {
		return fmt.Errorf("%s curve %s: %w", t.Target, t.Currency, calib.ErrUnresolvable)
	}
	d, ok := fc.(*curve.Discount)
	if !ok {
		return fmt.Errorf("%s curve %s is %T, not node based: %w", t.Target, t.Currency, fc, calib.ErrInvalidInput)
	}
	tweaked, err := d.TweakZero(func(node time.Time, zero float64) float64 {
		if t.selectsNode(d.Epoch(), node) {
			return t.apply(zero)
		}
		return zero
	})
	if err != nil {
		return err
	}
	store(tweaked)
	return nil
}
