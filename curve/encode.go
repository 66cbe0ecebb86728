package curve

import (
	"fmt"
	"time"

	"github.com/meenmo/mcurve/calendar"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/serde"
	"github.com/meenmo/mcurve/utils"
)

const encodingVersion = 0

var curveDelims = serde.Delims{Field: '|', Collection: ';', KeyValue: '=', MultiLevelKey: '^'}

func nodeMap(dates []time.Time, values []float64) map[time.Time]float64 {
	m := make(map[time.Time]float64, len(dates))
	for i, d := range dates {
		m[d] = values[i]
	}
	return m
}

func splitNodes(m map[time.Time]float64) ([]time.Time, []float64) {
	dates := make([]time.Time, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	utils.SortDates(dates)
	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = m[d]
	}
	return dates, values
}

func (c *Discount) MarshalBinary() ([]byte, error) {
	return serde.NewEncoder(encodingVersion, curveDelims).
		Text(c.label.String()).
		Date(c.epoch).
		DateFloats(nodeMap(c.dates, c.dfs)).
		Bytes()
}

func (c *Discount) UnmarshalBinary(data []byte) error {
	r, err := serde.NewDecoder(data, encodingVersion, curveDelims)
	if err != nil {
		return err
	}
	labelText := r.Text()
	epoch := r.Date()
	dates, dfs := splitNodes(r.DateFloats())
	if err := r.Err(); err != nil {
		return err
	}
	label, err := market.ParseLabel(labelText)
	if err != nil {
		return err
	}
	decoded, err := NewDiscount(label, epoch, dates, dfs)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

func (c *Forward) MarshalBinary() ([]byte, error) {
	return serde.NewEncoder(encodingVersion, curveDelims).
		Text(c.index.Name).
		Text(c.index.Currency).
		Text(c.index.Tenor).
		Text(string(c.index.DayCount)).
		Text(string(c.index.Calendar)).
		Int(int(c.index.Compounding)).
		Date(c.epoch).
		DateFloats(nodeMap(c.dates, c.rates)).
		Bytes()
}

func (c *Forward) UnmarshalBinary(data []byte) error {
	r, err := serde.NewDecoder(data, encodingVersion, curveDelims)
	if err != nil {
		return err
	}
	idx := market.Index{
		Name:        r.Text(),
		Currency:    r.Text(),
		Tenor:       r.Text(),
		DayCount:    market.DayCount(r.Text()),
		Calendar:    calendar.CalendarID(r.Text()),
		Compounding: market.Compounding(r.Int()),
	}
	epoch := r.Date()
	dates, rates := splitNodes(r.DateFloats())
	if err := r.Err(); err != nil {
		return err
	}
	decoded, err := NewForward(idx, epoch, dates, rates)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

func (c *Credit) MarshalBinary() ([]byte, error) {
	return serde.NewEncoder(encodingVersion, curveDelims).
		Text(c.Name()).
		Date(c.epoch).
		Float(c.recovery).
		DateFloats(nodeMap(c.dates, c.hazards)).
		Bytes()
}

func (c *Credit) UnmarshalBinary(data []byte) error {
	r, err := serde.NewDecoder(data, encodingVersion, curveDelims)
	if err != nil {
		return err
	}
	name := r.Text()
	epoch := r.Date()
	recovery := r.Float()
	dates, hazards := splitNodes(r.DateFloats())
	if err := r.Err(); err != nil {
		return err
	}
	decoded, err := NewCredit(name, epoch, dates, hazards, recovery)
	if err != nil {
		return fmt.Errorf("decode credit curve: %w", err)
	}
	*c = *decoded
	return nil
}

// Decode rebuilds a curve written by MarshalBinary; kind selects its type.
func Decode(kind market.Kind, data []byte) (market.Curve, error) {
	switch kind {
	case market.KindFunding, market.KindGovvie:
		c := new(Discount)
		if err := c.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return c, nil
	case market.KindForward:
		c := new(Forward)
		if err := c.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return c, nil
	case market.KindCredit:
		c := new(Credit)
		if err := c.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("no binary form for %s curves: %w", kind, serde.ErrMalformed)
	}
}
