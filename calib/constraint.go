package calib

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrInvalidInput marks construction-time validation failures of value objects.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnresolvable is what callers report when an operation yields no result
	// (missing curve, unresolvable forward rate, malformed absorb).
	ErrUnresolvable = errors.New("unresolvable")
)

// MeasurePV is the manifest measure name for a quoted present value.
const MeasurePV = "PV"

// Constraint is one row of a bootstrapping linear system: the response of a
// calibration instrument expressed as weights on curve node dates,
//
//	Σ weight(d) · node(d) = value
//
// together with the sensitivities of those weights and of the value to the
// instrument's manifest measures (quotes), and the set of latent states that
// must be resolved jointly with this row.
//
// Weights at the same date accumulate; nothing is ever overwritten.
type Constraint struct {
	weights     map[time.Time]float64
	value       float64
	dWeight     map[string]map[time.Time]float64
	dValue      map[string]float64
	mergeLabels map[string]struct{}
}

// NewConstraint returns an empty row.
func NewConstraint() *Constraint {
	return &Constraint{
		weights:     make(map[time.Time]float64),
		dWeight:     make(map[string]map[time.Time]float64),
		dValue:      make(map[string]float64),
		mergeLabels: make(map[string]struct{}),
	}
}

// NewConstraintFromWeights builds a row from a complete weight map and target.
// It fails with ErrInvalidInput on zero dates or non-finite numbers.
func NewConstraintFromWeights(weights map[time.Time]float64, value float64) (*Constraint, error) {
	if !finite(value) {
		return nil, fmt.Errorf("constraint value %v: %w", value, ErrInvalidInput)
	}
	c := NewConstraint()
	for d, w := range weights {
		if !c.AddPredictorResponseWeight(d, w) {
			return nil, fmt.Errorf("constraint weight %v at %s: %w", w, d.Format("2006-01-02"), ErrInvalidInput)
		}
	}
	c.value = value
	return c, nil
}

// AddPredictorResponseWeight accumulates w at node date d.
func (c *Constraint) AddPredictorResponseWeight(d time.Time, w float64) bool {
	if d.IsZero() || !finite(w) {
		return false
	}
	c.weights[d] += w
	return true
}

// AddDResponseWeightDManifestMeasure accumulates d(weight at d)/d(measure).
func (c *Constraint) AddDResponseWeightDManifestMeasure(measure string, d time.Time, w float64) bool {
	if measure == "" || d.IsZero() || !finite(w) {
		return false
	}
	m, ok := c.dWeight[measure]
	if !ok {
		m = make(map[time.Time]float64)
		c.dWeight[measure] = m
	}
	m[d] += w
	return true
}

// UpdateValue accumulates v into the row's target value.
func (c *Constraint) UpdateValue(v float64) bool {
	if !finite(v) {
		return false
	}
	c.value += v
	return true
}

// UpdateDValueDManifestMeasure accumulates d(value)/d(measure).
func (c *Constraint) UpdateDValueDManifestMeasure(measure string, dv float64) bool {
	if measure == "" || !finite(dv) {
		return false
	}
	c.dValue[measure] += dv
	return true
}

// AddMergeLabel flags that this row spans the named latent state and must be
// solved together with every other row carrying the same label.
func (c *Constraint) AddMergeLabel(label string) bool {
	if label == "" {
		return false
	}
	c.mergeLabels[label] = struct{}{}
	return true
}

// Absorb merges other into c: weights, derivatives and values are summed
// date-wise and merge labels are unioned. It returns false and leaves c
// untouched when other is nil or malformed.
func (c *Constraint) Absorb(other *Constraint) bool {
	if other == nil || other.Validate() != nil {
		return false
	}
	for d, w := range other.weights {
		c.weights[d] += w
	}
	for m, ws := range other.dWeight {
		dst, ok := c.dWeight[m]
		if !ok {
			dst = make(map[time.Time]float64, len(ws))
			c.dWeight[m] = dst
		}
		for d, w := range ws {
			dst[d] += w
		}
	}
	c.value += other.value
	for m, dv := range other.dValue {
		c.dValue[m] += dv
	}
	for l := range other.mergeLabels {
		c.mergeLabels[l] = struct{}{}
	}
	return true
}

// Validate reports whether the row is internally consistent.
func (c *Constraint) Validate() error {
	if c.weights == nil || c.dWeight == nil || c.dValue == nil || c.mergeLabels == nil {
		return fmt.Errorf("constraint not initialised: %w", ErrInvalidInput)
	}
	if !finite(c.value) {
		return fmt.Errorf("constraint value %v: %w", c.value, ErrInvalidInput)
	}
	for d, w := range c.weights {
		if d.IsZero() || !finite(w) {
			return fmt.Errorf("constraint weight %v at %s: %w", w, d.Format("2006-01-02"), ErrInvalidInput)
		}
	}
	for m, ws := range c.dWeight {
		if m == "" {
			return fmt.Errorf("empty manifest measure: %w", ErrInvalidInput)
		}
		for d, w := range ws {
			if d.IsZero() || !finite(w) {
				return fmt.Errorf("d%s weight %v at %s: %w", m, w, d.Format("2006-01-02"), ErrInvalidInput)
			}
		}
	}
	for m, dv := range c.dValue {
		if m == "" || !finite(dv) {
			return fmt.Errorf("d%s value %v: %w", m, dv, ErrInvalidInput)
		}
	}
	return nil
}

// NodeDates returns the row's node dates in ascending order.
func (c *Constraint) NodeDates() []time.Time {
	return sortedDates(c.weights)
}

// Weight returns the accumulated weight at d.
func (c *Constraint) Weight(d time.Time) float64 {
	return c.weights[d]
}

// Weights returns a copy of the node-date weights.
func (c *Constraint) Weights() map[time.Time]float64 {
	out := make(map[time.Time]float64, len(c.weights))
	for d, w := range c.weights {
		out[d] = w
	}
	return out
}

// Value returns the row's target value.
func (c *Constraint) Value() float64 {
	return c.value
}

// Measures returns the manifest measures the row carries sensitivities for, sorted.
func (c *Constraint) Measures() []string {
	seen := make(map[string]struct{}, len(c.dWeight)+len(c.dValue))
	for m := range c.dWeight {
		seen[m] = struct{}{}
	}
	for m := range c.dValue {
		seen[m] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// DWeight returns d(weight at d)/d(measure).
func (c *Constraint) DWeight(measure string, d time.Time) float64 {
	return c.dWeight[measure][d]
}

// DWeights returns a copy of d(weight)/d(measure) keyed by node date.
func (c *Constraint) DWeights(measure string) map[time.Time]float64 {
	src := c.dWeight[measure]
	out := make(map[time.Time]float64, len(src))
	for d, w := range src {
		out[d] = w
	}
	return out
}

// DValue returns d(value)/d(measure).
func (c *Constraint) DValue(measure string) float64 {
	return c.dValue[measure]
}

// MergeLabels returns the row's merge labels, sorted.
func (c *Constraint) MergeLabels() []string {
	out := make([]string, 0, len(c.mergeLabels))
	for l := range c.mergeLabels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// HasMergeLabel reports whether the row carries label.
func (c *Constraint) HasMergeLabel(label string) bool {
	_, ok := c.mergeLabels[label]
	return ok
}

// Len is the number of distinct node dates in the row.
func (c *Constraint) Len() int {
	return len(c.weights)
}

// Residual evaluates Σ weight(d)·node(d) − value for the supplied node function.
func (c *Constraint) Residual(node func(time.Time) float64) float64 {
	r := -c.value
	for _, d := range c.NodeDates() {
		r += c.weights[d] * node(d)
	}
	return r
}

func sortedDates(m map[time.Time]float64) []time.Time {
	out := make([]time.Time, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
