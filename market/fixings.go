package market

import (
	"time"

	"github.com/meenmo/mcurve/utils"
)

// FixingFeed supplies historical fixings of one index (e.g. CD91, ESTR).
type FixingFeed interface {
	RateOn(date time.Time) (float64, bool)
}

// MapFixingFeed is a static map-backed feed keyed by YYYY-MM-DD, rates in decimal.
type MapFixingFeed struct {
	rates map[string]float64
}

func NewMapFixingFeed(rates map[string]float64) *MapFixingFeed {
	cp := make(map[string]float64, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &MapFixingFeed{rates: cp}
}

func (m *MapFixingFeed) RateOn(date time.Time) (float64, bool) {
	val, ok := m.rates[date.Format(utils.DateLayout)]
	return val, ok
}
