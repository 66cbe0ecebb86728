package scenario

import (
	"encoding"
	"fmt"
	"sort"
	"strings"

	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/serde"
)

// Set holds the cooked variants of one container. Nil curves and absent map
// keys are variants that were not requested or failed to calibrate.
type Set struct {
	Base       market.Curve
	Up         market.Curve
	Dn         market.Curve
	TenorUp    map[string]market.Curve
	TenorDn    map[string]market.Curve
	RecoveryUp market.Curve
	RecoveryDn market.Curve
	Custom     map[string]market.Curve
}

// Entry is one curve of a Set with its variant key: BASE, FLAT_UP, FLAT_DN,
// RR_FLAT_UP, RR_FLAT_DN, TENOR_UP/<tenor>, TENOR_DN/<tenor> or CUSTOM/<name>.
type Entry struct {
	Key   string
	Curve market.Curve
}

const customKey = "CUSTOM"

func (s Set) clone() Set {
	out := s
	out.TenorUp = cloneMap(s.TenorUp)
	out.TenorDn = cloneMap(s.TenorDn)
	out.Custom = cloneMap(s.Custom)
	return out
}

func cloneMap(m map[string]market.Curve) map[string]market.Curve {
	if m == nil {
		return nil
	}
	out := make(map[string]market.Curve, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Entries flattens the set in a fixed order: base, flat bumps, recovery
// bumps, then tenor and custom curves sorted by key.
func (s Set) Entries() []Entry {
	var out []Entry
	add := func(key string, c market.Curve) {
		if c != nil {
			out = append(out, Entry{Key: key, Curve: c})
		}
	}
	add(Bump(0).String(), s.Base)
	add(FlatUp.String(), s.Up)
	add(FlatDn.String(), s.Dn)
	add(RecoveryFlatUp.String(), s.RecoveryUp)
	add(RecoveryFlatDn.String(), s.RecoveryDn)
	for _, group := range []struct {
		prefix string
		m      map[string]market.Curve
	}{
		{TenorUp.String(), s.TenorUp},
		{TenorDn.String(), s.TenorDn},
		{customKey, s.Custom},
	} {
		keys := make([]string, 0, len(group.m))
		for k := range group.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(group.prefix+"/"+k, group.m[k])
		}
	}
	return out
}

// SetFromEntries is the inverse of Entries.
func SetFromEntries(entries []Entry) (Set, error) {
	var s Set
	for _, e := range entries {
		prefix, sub, nested := strings.Cut(e.Key, "/")
		if e.Curve == nil {
			return Set{}, fmt.Errorf("entry %s has no curve: %w", e.Key, serde.ErrMalformed)
		}
		put := func(m *map[string]market.Curve) {
			if *m == nil {
				*m = make(map[string]market.Curve)
			}
			(*m)[sub] = e.Curve
		}
		switch {
		case nested && prefix == TenorUp.String():
			put(&s.TenorUp)
		case nested && prefix == TenorDn.String():
			put(&s.TenorDn)
		case nested && prefix == customKey:
			put(&s.Custom)
		case e.Key == Bump(0).String():
			s.Base = e.Curve
		case e.Key == FlatUp.String():
			s.Up = e.Curve
		case e.Key == FlatDn.String():
			s.Dn = e.Curve
		case e.Key == RecoveryFlatUp.String():
			s.RecoveryUp = e.Curve
		case e.Key == RecoveryFlatDn.String():
			s.RecoveryDn = e.Curve
		default:
			return Set{}, fmt.Errorf("unknown variant key %q: %w", e.Key, serde.ErrMalformed)
		}
	}
	return s, nil
}

const setVersion = 0

var setDelims = serde.Delims{Field: '|', Collection: ';', KeyValue: '=', MultiLevelKey: '^'}

// MarshalText writes every entry as key, curve label and the curve's binary
// form. Only curves with a binary form can be written.
func (s Set) MarshalText() ([]byte, error) {
	entries := s.Entries()
	e := serde.NewEncoder(setVersion, setDelims).Int(len(entries))
	for _, entry := range entries {
		m, ok := entry.Curve.(encoding.BinaryMarshaler)
		if !ok {
			return nil, fmt.Errorf("variant %s: %T has no binary form: %w", entry.Key, entry.Curve, serde.ErrMalformed)
		}
		b, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", entry.Key, err)
		}
		e.Text(entry.Key).Text(entry.Curve.Label().String()).Block(b)
	}
	return e.Bytes()
}

func (s *Set) UnmarshalText(data []byte) error {
	r, err := serde.NewDecoder(data, setVersion, setDelims)
	if err != nil {
		return err
	}
	n := r.Int()
	if err := r.Err(); err != nil {
		return err
	}
	if n < 0 || r.Remaining() != 3*n {
		return fmt.Errorf("set of %d entries has %d fields: %w", n, r.Remaining(), serde.ErrMalformed)
	}
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		key, labelText, block := r.Text(), r.Text(), r.Block()
		if err := r.Err(); err != nil {
			return err
		}
		label, err := market.ParseLabel(labelText)
		if err != nil {
			return fmt.Errorf("variant %s: %v: %w", key, err, serde.ErrMalformed)
		}
		c, err := curve.Decode(label.Kind, block)
		if err != nil {
			return fmt.Errorf("variant %s: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Curve: c})
	}
	decoded, err := SetFromEntries(entries)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
