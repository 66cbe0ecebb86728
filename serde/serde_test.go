package serde_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/mcurve/serde"
	"github.com/meenmo/mcurve/utils"
)

var delims = serde.Delims{Field: '|', Collection: ';', KeyValue: '=', MultiLevelKey: '^'}

func TestRecord(t *testing.T) {
	t.Parallel()

	d1 := utils.Date(2026, time.March, 20)
	d2 := utils.Date(2027, time.March, 22)
	data, err := serde.NewEncoder(3, delims).
		Text("FUNDING::EUR").
		Float(0.0125).
		Int(-7).
		Date(time.Time{}).
		Strings([]string{"a", "b"}).
		DateFloats(map[time.Time]float64{d2: -1, d1: 2.5}).
		StringFloats(map[string]float64{"Rate": 1e-4}).
		NestedDateFloats(map[string]map[time.Time]float64{"Rate": {d1: 0.5}}).
		Block([]byte("inner|record")).
		Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(data), "2026-03-20=2.5;2027-03-22=-1")

	r, err := serde.NewDecoder(data, 3, delims)
	require.NoError(t, err)
	assert.Equal(t, "FUNDING::EUR", r.Text())
	assert.Equal(t, 0.0125, r.Float())
	assert.Equal(t, -7, r.Int())
	assert.True(t, r.Date().IsZero())
	assert.Equal(t, []string{"a", "b"}, r.Strings())
	assert.Equal(t, map[time.Time]float64{d1: 2.5, d2: -1}, r.DateFloats())
	assert.Equal(t, map[string]float64{"Rate": 1e-4}, r.StringFloats())
	assert.Equal(t, map[string]map[time.Time]float64{"Rate": {d1: 0.5}}, r.NestedDateFloats())
	assert.Equal(t, []byte("inner|record"), r.Block())
	assert.Zero(t, r.Remaining())
	require.NoError(t, r.Err())

	r.Text()
	assert.ErrorIs(t, r.Err(), serde.ErrMalformed)
}

func TestRecord_Errors(t *testing.T) {
	t.Parallel()

	_, err := serde.NewEncoder(0, delims).Text("a|b").Bytes()
	assert.ErrorIs(t, err, serde.ErrMalformed)

	_, err = serde.NewEncoder(0, delims).Text(serde.Null).Bytes()
	assert.ErrorIs(t, err, serde.ErrMalformed)

	_, err = serde.NewEncoder(0, serde.Delims{Field: '|', Collection: '|', KeyValue: '=', MultiLevelKey: '^'}).Bytes()
	assert.ErrorIs(t, err, serde.ErrMalformed)

	_, err = serde.NewDecoder([]byte("1|x"), 0, delims)
	assert.ErrorIs(t, err, serde.ErrVersion)

	_, err = serde.NewDecoder([]byte("v1|x"), 0, delims)
	assert.ErrorIs(t, err, serde.ErrMalformed)

	r, err := serde.NewDecoder([]byte("0|notafloat|2026-13-40"), 0, delims)
	require.NoError(t, err)
	r.Float()
	r.Date()
	assert.ErrorIs(t, r.Err(), serde.ErrMalformed)
}
