package stream

import (
	"github.com/meenmo/mcurve/calendar"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/serde"
)

const periodVersion = 0

var periodDelims = serde.Delims{Field: ',', Collection: ';', KeyValue: '=', MultiLevelKey: '^'}

func (p CouponPeriod) MarshalText() ([]byte, error) {
	e := serde.NewEncoder(periodVersion, periodDelims).
		Date(p.start).
		Date(p.end).
		Date(p.pay).
		Date(p.reset).
		Text(string(p.dayCount)).
		Float(p.dcf).
		Float(p.notional).
		Float(p.factor).
		Float(p.coupon).
		Text(p.index.Name).
		Text(p.index.Currency).
		Text(p.index.Tenor).
		Text(string(p.index.DayCount)).
		Text(string(p.index.Calendar)).
		Int(int(p.index.Compounding)).
		Float(p.spread).
		Text(p.payCurrency)
	if p.quanto.IsZero() {
		e.Null()
	} else {
		e.Text(p.quanto.String())
	}
	return e.Bytes()
}

func (p *CouponPeriod) UnmarshalText(text []byte) error {
	r, err := serde.NewDecoder(text, periodVersion, periodDelims)
	if err != nil {
		return err
	}
	spec := PeriodSpec{
		Start:          r.Date(),
		End:            r.Date(),
		Pay:            r.Date(),
		Reset:          r.Date(),
		DayCount:       market.DayCount(r.Text()),
		DCF:            r.Float(),
		Notional:       r.Float(),
		NotionalFactor: r.Float(),
		Coupon:         r.Float(),
		Index: market.Index{
			Name:        r.Text(),
			Currency:    r.Text(),
			Tenor:       r.Text(),
			DayCount:    market.DayCount(r.Text()),
			Calendar:    calendar.CalendarID(r.Text()),
			Compounding: market.Compounding(r.Int()),
		},
		Spread:      r.Float(),
		PayCurrency: r.Text(),
	}
	quanto := r.Text()
	if err := r.Err(); err != nil {
		return err
	}
	if quanto != "" {
		if spec.Quanto, err = market.ParseLabel(quanto); err != nil {
			return err
		}
	}
	decoded, err := NewCouponPeriod(spec)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
