// Package serde implements the flat delimited text record used to persist
// constraints, coupon periods and curves.
//
// A record is a list of fields joined by a per-type field delimiter. Field 0
// is the format version. Absent values are written as Null. Collections use
// their own delimiters: Collection between elements, KeyValue between a key
// and its value, MultiLevelKey between the levels of a nested map. Nested
// objects that are already serialised travel as opaque blocks.
package serde

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/mcurve/utils"
)

// Null marks an absent value.
const Null = "<<null>>"

var (
	// ErrVersion is returned when a record's version field does not match.
	ErrVersion = errors.New("serde: version mismatch")

	// ErrMalformed is returned for records that cannot be decoded.
	ErrMalformed = errors.New("serde: malformed record")
)

// Delims declares the delimiter characters of one serialisable type.
type Delims struct {
	Field         byte
	Collection    byte
	KeyValue      byte
	MultiLevelKey byte
}

func (d Delims) all() string {
	return string([]byte{d.Field, d.Collection, d.KeyValue, d.MultiLevelKey})
}

func (d Delims) validate() error {
	set := d.all()
	for i := 0; i < len(set); i++ {
		if set[i] == 0 || strings.IndexByte(set[i+1:], set[i]) >= 0 {
			return fmt.Errorf("delimiters %q must be distinct and non-zero: %w", set, ErrMalformed)
		}
	}
	return nil
}

// Encoder builds one record. Errors are sticky and reported by Bytes.
type Encoder struct {
	d      Delims
	fields []string
	err    error
}

// NewEncoder starts a record carrying version in field 0.
func NewEncoder(version int, d Delims) *Encoder {
	e := &Encoder{d: d}
	e.err = d.validate()
	e.fields = append(e.fields, strconv.Itoa(version))
	return e
}

func (e *Encoder) atom(s string) string {
	if e.err == nil && (s == Null || strings.ContainsAny(s, e.d.all())) {
		e.err = fmt.Errorf("value %q collides with a delimiter or the null token: %w", s, ErrMalformed)
	}
	return s
}

func (e *Encoder) Text(s string) *Encoder {
	e.fields = append(e.fields, e.atom(s))
	return e
}

func (e *Encoder) Float(v float64) *Encoder {
	e.fields = append(e.fields, formatFloat(v))
	return e
}

func (e *Encoder) Int(v int) *Encoder {
	e.fields = append(e.fields, strconv.Itoa(v))
	return e
}

// Date writes a YYYY-MM-DD date; the zero time is written as Null.
func (e *Encoder) Date(t time.Time) *Encoder {
	e.fields = append(e.fields, formatDate(t))
	return e
}

func (e *Encoder) Null() *Encoder {
	e.fields = append(e.fields, Null)
	return e
}

// Strings writes a collection; an empty slice is written as Null.
func (e *Encoder) Strings(ss []string) *Encoder {
	if len(ss) == 0 {
		return e.Null()
	}
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = e.atom(s)
	}
	e.fields = append(e.fields, strings.Join(parts, string(e.d.Collection)))
	return e
}

// DateFloats writes a date-keyed map in ascending date order.
func (e *Encoder) DateFloats(m map[time.Time]float64) *Encoder {
	if len(m) == 0 {
		return e.Null()
	}
	e.fields = append(e.fields, e.dateFloats(m))
	return e
}

func (e *Encoder) dateFloats(m map[time.Time]float64) string {
	dates := make([]time.Time, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	utils.SortDates(dates)
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = formatDate(d) + string(e.d.KeyValue) + formatFloat(m[d])
	}
	return strings.Join(parts, string(e.d.Collection))
}

// StringFloats writes a string-keyed map in key order.
func (e *Encoder) StringFloats(m map[string]float64) *Encoder {
	if len(m) == 0 {
		return e.Null()
	}
	keys := sortedKeys(m)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = e.atom(k) + string(e.d.KeyValue) + formatFloat(m[k])
	}
	e.fields = append(e.fields, strings.Join(parts, string(e.d.Collection)))
	return e
}

// NestedDateFloats writes a two-level map key → date → value. The outer key
// and each inner entry are separated by MultiLevelKey.
func (e *Encoder) NestedDateFloats(m map[string]map[time.Time]float64) *Encoder {
	if len(m) == 0 {
		return e.Null()
	}
	keys := sortedKeys(m)
	var parts []string
	for _, k := range keys {
		inner := m[k]
		dates := make([]time.Time, 0, len(inner))
		for d := range inner {
			dates = append(dates, d)
		}
		utils.SortDates(dates)
		for _, d := range dates {
			parts = append(parts, e.atom(k)+string(e.d.MultiLevelKey)+formatDate(d)+string(e.d.KeyValue)+formatFloat(inner[d]))
		}
	}
	e.fields = append(e.fields, strings.Join(parts, string(e.d.Collection)))
	return e
}

// Block writes an opaque, already serialised payload. Its contents are never
// inspected; they are base64url-encoded so no delimiter can leak through.
func (e *Encoder) Block(b []byte) *Encoder {
	if b == nil {
		return e.Null()
	}
	e.fields = append(e.fields, base64.RawURLEncoding.EncodeToString(b))
	return e
}

// Bytes returns the record or the first error met while building it.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte(strings.Join(e.fields, string(e.d.Field))), nil
}

// Decoder reads the fields of one record in order. Errors are sticky; check Err
// once after reading.
type Decoder struct {
	d      Delims
	fields []string
	pos    int
	err    error
}

// NewDecoder splits data and checks field 0 against version.
func NewDecoder(data []byte, version int, d Delims) (*Decoder, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	fields := strings.Split(string(data), string(d.Field))
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("version field %q: %w", fields[0], ErrMalformed)
	}
	if v != version {
		return nil, fmt.Errorf("got version %d, want %d: %w", v, version, ErrVersion)
	}
	return &Decoder{d: d, fields: fields, pos: 1}, nil
}

func (r *Decoder) next() (string, bool) {
	if r.err != nil {
		return "", false
	}
	if r.pos >= len(r.fields) {
		r.err = fmt.Errorf("record has %d fields, wanted more: %w", len(r.fields), ErrMalformed)
		return "", false
	}
	s := r.fields[r.pos]
	r.pos++
	return s, true
}

func (r *Decoder) fail(what, s string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("field %d %s %q: %v: %w", r.pos-1, what, s, err, ErrMalformed)
	}
}

func (r *Decoder) Text() string {
	s, ok := r.next()
	if !ok || s == Null {
		return ""
	}
	return s
}

func (r *Decoder) Float() float64 {
	s, ok := r.next()
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail("float", s, err)
	}
	return v
}

func (r *Decoder) Int() int {
	s, ok := r.next()
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.fail("int", s, err)
	}
	return v
}

func (r *Decoder) Date() time.Time {
	s, ok := r.next()
	if !ok || s == Null {
		return time.Time{}
	}
	return r.parseDate(s)
}

func (r *Decoder) parseDate(s string) time.Time {
	t, err := utils.ParseDate(s)
	if err != nil {
		r.fail("date", s, err)
	}
	return t
}

func (r *Decoder) Strings() []string {
	s, ok := r.next()
	if !ok || s == Null {
		return nil
	}
	return strings.Split(s, string(r.d.Collection))
}

func (r *Decoder) DateFloats() map[time.Time]float64 {
	out := make(map[time.Time]float64)
	s, ok := r.next()
	if !ok || s == Null {
		return out
	}
	for _, kv := range strings.Split(s, string(r.d.Collection)) {
		k, v := r.pair(kv)
		out[r.parseDate(k)] += r.parseFloat(v)
	}
	return out
}

func (r *Decoder) StringFloats() map[string]float64 {
	out := make(map[string]float64)
	s, ok := r.next()
	if !ok || s == Null {
		return out
	}
	for _, kv := range strings.Split(s, string(r.d.Collection)) {
		k, v := r.pair(kv)
		out[k] += r.parseFloat(v)
	}
	return out
}

func (r *Decoder) NestedDateFloats() map[string]map[time.Time]float64 {
	out := make(map[string]map[time.Time]float64)
	s, ok := r.next()
	if !ok || s == Null {
		return out
	}
	for _, entry := range strings.Split(s, string(r.d.Collection)) {
		outer, rest, found := strings.Cut(entry, string(r.d.MultiLevelKey))
		if !found {
			r.fail("nested entry", entry, errors.New("missing multi-level key"))
			return out
		}
		k, v := r.pair(rest)
		inner, ok := out[outer]
		if !ok {
			inner = make(map[time.Time]float64)
			out[outer] = inner
		}
		inner[r.parseDate(k)] += r.parseFloat(v)
	}
	return out
}

// Block returns an opaque payload written by Encoder.Block, nil for Null.
func (r *Decoder) Block() []byte {
	s, ok := r.next()
	if !ok || s == Null {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		r.fail("block", s, err)
	}
	return b
}

// Remaining is the number of unread fields.
func (r *Decoder) Remaining() int {
	return len(r.fields) - r.pos
}

// Err returns the first decoding error.
func (r *Decoder) Err() error {
	return r.err
}

func (r *Decoder) pair(kv string) (string, string) {
	k, v, found := strings.Cut(kv, string(r.d.KeyValue))
	if !found {
		r.fail("key/value", kv, errors.New("missing key/value delimiter"))
	}
	return k, v
}

func (r *Decoder) parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail("float", s, err)
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return Null
	}
	return t.Format(utils.DateLayout)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
