package scenario

import (
	"fmt"
	"strings"

	"github.com/meenmo/mcurve/calib"
)

// Bump is a set of scenario variants requested at cook time. The base curve
// is always built and has no bit of its own.
type Bump uint8

const (
	FlatUp Bump = 1 << iota
	FlatDn
	TenorUp
	TenorDn
	RecoveryFlatUp
	RecoveryFlatDn

	// RateBumps are the variants a rates container can cook.
	RateBumps = FlatUp | FlatDn | TenorUp | TenorDn
	// CreditBumps add the recovery variants.
	CreditBumps = RateBumps | RecoveryFlatUp | RecoveryFlatDn
)

var bumpNames = []struct {
	bit  Bump
	name string
}{
	{FlatUp, "FLAT_UP"},
	{FlatDn, "FLAT_DN"},
	{TenorUp, "TENOR_UP"},
	{TenorDn, "TENOR_DN"},
	{RecoveryFlatUp, "RR_FLAT_UP"},
	{RecoveryFlatDn, "RR_FLAT_DN"},
}

// Has reports whether every bit of v is set.
func (b Bump) Has(v Bump) bool { return b&v == v }

// Variants lists the set bits in declaration order.
func (b Bump) Variants() []Bump {
	var out []Bump
	for _, n := range bumpNames {
		if b.Has(n.bit) {
			out = append(out, n.bit)
		}
	}
	return out
}

func (b Bump) String() string {
	if b == 0 {
		return "BASE"
	}
	var parts []string
	for _, n := range bumpNames {
		if b.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if rest := b &^ CreditBumps; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseBump reads a mask written as names joined by '|' or ',', e.g.
// "FLAT_UP|TENOR_DN". The empty string and "BASE" are the empty mask.
func ParseBump(s string) (Bump, error) {
	var b Bump
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" || part == "BASE" {
			continue
		}
		found := false
		for _, n := range bumpNames {
			if n.name == part {
				b |= n.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("scenario bump %q: %w", part, calib.ErrInvalidInput)
		}
	}
	return b, nil
}
