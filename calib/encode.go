package calib

import (
	"fmt"

	"github.com/meenmo/mcurve/serde"
)

const constraintVersion = 0

var constraintDelims = serde.Delims{Field: '|', Collection: ';', KeyValue: '=', MultiLevelKey: '^'}

// MarshalText writes the row as a delimited record: weights, value,
// d(weight)/d(measure), d(value)/d(measure), merge labels.
func (c *Constraint) MarshalText() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return serde.NewEncoder(constraintVersion, constraintDelims).
		DateFloats(c.weights).
		Float(c.value).
		NestedDateFloats(c.dWeight).
		StringFloats(c.dValue).
		Strings(c.MergeLabels()).
		Bytes()
}

// UnmarshalText replaces c with the decoded row.
func (c *Constraint) UnmarshalText(text []byte) error {
	r, err := serde.NewDecoder(text, constraintVersion, constraintDelims)
	if err != nil {
		return err
	}
	decoded := NewConstraint()
	decoded.weights = r.DateFloats()
	decoded.value = r.Float()
	decoded.dWeight = r.NestedDateFloats()
	decoded.dValue = r.StringFloats()
	for _, l := range r.Strings() {
		decoded.AddMergeLabel(l)
	}
	if err := r.Err(); err != nil {
		return err
	}
	if err := decoded.Validate(); err != nil {
		return fmt.Errorf("decode constraint: %w", err)
	}
	*c = *decoded
	return nil
}
