package stream

import (
	"fmt"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/utils"
)

// Manifest measures a calibration quote can be expressed in.
const (
	MeasurePV       = calib.MeasurePV
	MeasureRate     = "Rate"
	MeasureSwapRate = "SwapRate"
	MeasureSpread   = "Spread"
)

// Quote is a calibration quote on one manifest measure. The zero Quote
// carries no measure and leaves the instrument untouched.
type Quote struct {
	Measure string
	Value   float64
}

// PV reports a quoted present value.
func (q Quote) PV() (float64, bool) {
	return q.Value, q.Measure == MeasurePV
}

// Rate reports a quoted fixed rate, which replaces the fixed coupon.
func (q Quote) Rate() (float64, bool) {
	return q.Value, q.Measure == MeasureRate || q.Measure == MeasureSwapRate
}

// Spread reports a quoted floating spread, which replaces the spread.
func (q Quote) Spread() (float64, bool) {
	return q.Value, q.Measure == MeasureSpread
}

// Shift returns the quote moved by d in its own units.
func (q Quote) Shift(d float64) Quote {
	q.Value += d
	return q
}

// Validate rejects unknown measures and non-finite values.
func (q Quote) Validate() error {
	switch q.Measure {
	case "", MeasurePV, MeasureRate, MeasureSwapRate, MeasureSpread:
	default:
		return fmt.Errorf("quote measure %q: %w", q.Measure, calib.ErrInvalidInput)
	}
	if !utils.IsFinite(q.Value) {
		return fmt.Errorf("quote value %v: %w", q.Value, calib.ErrInvalidInput)
	}
	return nil
}
