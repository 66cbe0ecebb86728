package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// Credit is a survival curve with piecewise-flat hazard rates: hazard i holds
// on (node i-1, node i] and the last hazard is extended beyond the last node.
type Credit struct {
	label    market.Label
	epoch    time.Time
	dates    []time.Time
	hazards  []float64
	recovery float64
}

func NewCredit(name string, epoch time.Time, dates []time.Time, hazards []float64, recovery float64) (*Credit, error) {
	if name == "" {
		return nil, fmt.Errorf("credit curve without reference entity: %w", calib.ErrInvalidInput)
	}
	if err := checkNodes(epoch, dates, len(hazards)); err != nil {
		return nil, err
	}
	for i, h := range hazards {
		if !utils.IsFinite(h) || h < 0 {
			return nil, fmt.Errorf("hazard %v at %s: %w", h, dates[i].Format(utils.DateLayout), calib.ErrInvalidInput)
		}
	}
	if !utils.IsFinite(recovery) || recovery < 0 || recovery >= 1 {
		return nil, fmt.Errorf("recovery %v outside [0, 1): %w", recovery, calib.ErrInvalidInput)
	}
	return &Credit{
		label:    market.CreditLabel(name),
		epoch:    epoch,
		dates:    append([]time.Time(nil), dates...),
		hazards:  append([]float64(nil), hazards...),
		recovery: recovery,
	}, nil
}

// FlatCredit is a credit curve with one hazard rate.
func FlatCredit(name string, epoch time.Time, hazard, recovery float64) *Credit {
	return &Credit{
		label:    market.CreditLabel(name),
		epoch:    epoch,
		dates:    []time.Time{epoch.AddDate(100, 0, 0)},
		hazards:  []float64{hazard},
		recovery: recovery,
	}
}

func (c *Credit) Label() market.Label { return c.label }
func (c *Credit) Epoch() time.Time    { return c.epoch }

// Name is the reference entity.
func (c *Credit) Name() string { return c.label.ID }

func (c *Credit) Nodes() []time.Time {
	return append([]time.Time(nil), c.dates...)
}

func (c *Credit) NodeHazards() []float64 {
	return append([]float64(nil), c.hazards...)
}

func (c *Credit) Hazard(t time.Time) float64 {
	for i, d := range c.dates {
		if !t.After(d) {
			return c.hazards[i]
		}
	}
	return c.hazards[len(c.hazards)-1]
}

func (c *Credit) Survival(t time.Time) float64 {
	if !t.After(c.epoch) {
		return 1
	}
	integral := 0.0
	prev := c.epoch
	for i, d := range c.dates {
		end := d
		if i == len(c.dates)-1 || t.Before(d) {
			end = t
		}
		integral += c.hazards[i] * utils.YearFraction(prev, end, TimeBasis)
		if !t.After(d) || i == len(c.dates)-1 {
			break
		}
		prev = d
	}
	return math.Exp(-integral)
}

func (c *Credit) Recovery(time.Time) float64 { return c.recovery }

// WithHazards returns a copy with the node hazards replaced.
func (c *Credit) WithHazards(hazards []float64) (*Credit, error) {
	return NewCredit(c.Name(), c.epoch, c.dates, hazards, c.recovery)
}
