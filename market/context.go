package market

import (
	"sort"
	"time"

	"github.com/meenmo/mcurve/utils"
)

// Context is the market curve/surface set consulted by valuation and filled in
// by calibration. It owns its maps; getters hand out the stored curve or
// surface, never the map. Nothing is removed except by re-setting a label.
//
// Context does no locking. Concurrent readers are fine once population is
// complete; workers that insert curves should each use their own Snapshot.
type Context struct {
	funding  map[Label]FundingCurve
	forward  map[Label]ForwardCurve
	credit   map[Label]CreditCurve
	fx       map[Label]FXCurve
	govvie   map[Label]FundingCurve
	surfaces map[Label]Surface
	vols     map[Label]Surface
	corrs    map[PairKey]Surface
	fixings  map[string]map[string]float64
	feeds    map[string]FixingFeed
}

func NewContext() *Context {
	return &Context{
		funding:  make(map[Label]FundingCurve),
		forward:  make(map[Label]ForwardCurve),
		credit:   make(map[Label]CreditCurve),
		fx:       make(map[Label]FXCurve),
		govvie:   make(map[Label]FundingCurve),
		surfaces: make(map[Label]Surface),
		vols:     make(map[Label]Surface),
		corrs:    make(map[PairKey]Surface),
		fixings:  make(map[string]map[string]float64),
		feeds:    make(map[string]FixingFeed),
	}
}

// SetFundingCurve stores c under its own label. The label must be a funding label.
func (m *Context) SetFundingCurve(c FundingCurve) bool {
	if c == nil || c.Label().Kind != KindFunding {
		return false
	}
	m.funding[c.Label()] = c
	return true
}

// FundingCurve returns the discount curve of a currency.
func (m *Context) FundingCurve(currency string) (FundingCurve, bool) {
	c, ok := m.funding[FundingLabel(currency)]
	return c, ok
}

func (m *Context) SetForwardCurve(c ForwardCurve) bool {
	if c == nil || c.Label().Kind != KindForward {
		return false
	}
	m.forward[c.Label()] = c
	return true
}

// ForwardCurve returns the projection curve of an index.
func (m *Context) ForwardCurve(idx Index) (ForwardCurve, bool) {
	c, ok := m.forward[ForwardLabel(idx)]
	return c, ok
}

func (m *Context) SetCreditCurve(c CreditCurve) bool {
	if c == nil || c.Label().Kind != KindCredit {
		return false
	}
	m.credit[c.Label()] = c
	return true
}

func (m *Context) CreditCurve(name string) (CreditCurve, bool) {
	c, ok := m.credit[CreditLabel(name)]
	return c, ok
}

func (m *Context) SetFXCurve(c FXCurve) bool {
	if c == nil || c.Label().Kind != KindFX {
		return false
	}
	m.fx[c.Label()] = c
	return true
}

func (m *Context) FXCurve(base, quote string) (FXCurve, bool) {
	c, ok := m.fx[FXLabel(base, quote)]
	return c, ok
}

// SetGovvieCurve stores a treasury discount curve. Its label must be a govvie label.
func (m *Context) SetGovvieCurve(c FundingCurve) bool {
	if c == nil || c.Label().Kind != KindGovvie {
		return false
	}
	m.govvie[c.Label()] = c
	return true
}

func (m *Context) GovvieCurve(currency string) (FundingCurve, bool) {
	c, ok := m.govvie[GovvieLabel(currency)]
	return c, ok
}

// SetSurface stores a deterministic surface for a recovery or custom-metric label.
func (m *Context) SetSurface(l Label, s Surface) bool {
	if s == nil || (l.Kind != KindRecovery && l.Kind != KindCustomMetric) {
		return false
	}
	m.surfaces[l] = s
	return true
}

func (m *Context) Surface(l Label) (Surface, bool) {
	s, ok := m.surfaces[l]
	return s, ok
}

// SetVolatility stores the volatility surface of a latent state.
func (m *Context) SetVolatility(l Label, s Surface) bool {
	if s == nil || l.IsZero() {
		return false
	}
	m.vols[l] = s
	return true
}

func (m *Context) Volatility(l Label) (Surface, bool) {
	s, ok := m.vols[l]
	return s, ok
}

// SetCorrelation stores the correlation between two latent states. Either
// argument order answers a later Correlation query.
func (m *Context) SetCorrelation(a, b Label, s Surface) bool {
	if s == nil || a.IsZero() || b.IsZero() {
		return false
	}
	m.corrs[PairKeyOf(a, b)] = s
	return true
}

func (m *Context) Correlation(a, b Label) (Surface, bool) {
	s, ok := m.corrs[PairKeyOf(a, b)]
	return s, ok
}

// SetFixing records a historical fixing (decimal) of index on date d.
func (m *Context) SetFixing(index string, d time.Time, rate float64) bool {
	if index == "" || d.IsZero() || !utils.IsFinite(rate) {
		return false
	}
	byDate, ok := m.fixings[index]
	if !ok {
		byDate = make(map[string]float64)
		m.fixings[index] = byDate
	}
	byDate[d.Format(utils.DateLayout)] = rate
	return true
}

// SetFixingFeed attaches a feed consulted when no explicit fixing was set.
func (m *Context) SetFixingFeed(index string, feed FixingFeed) bool {
	if index == "" || feed == nil {
		return false
	}
	m.feeds[index] = feed
	return true
}

// Fixing returns the historical fixing of index on d.
func (m *Context) Fixing(index string, d time.Time) (float64, bool) {
	if r, ok := m.fixings[index][d.Format(utils.DateLayout)]; ok {
		return r, true
	}
	if feed, ok := m.feeds[index]; ok {
		return feed.RateOn(d)
	}
	return 0, false
}

// Labels returns every label holding a curve or surface, sorted by String.
func (m *Context) Labels() []Label {
	var out []Label
	for l := range m.funding {
		out = append(out, l)
	}
	for l := range m.forward {
		out = append(out, l)
	}
	for l := range m.credit {
		out = append(out, l)
	}
	for l := range m.fx {
		out = append(out, l)
	}
	for l := range m.govvie {
		out = append(out, l)
	}
	for l := range m.surfaces {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Snapshot returns an independent copy. Curves and surfaces are shared since
// they are immutable; the maps are not.
func (m *Context) Snapshot() *Context {
	cp := NewContext()
	for k, v := range m.funding {
		cp.funding[k] = v
	}
	for k, v := range m.forward {
		cp.forward[k] = v
	}
	for k, v := range m.credit {
		cp.credit[k] = v
	}
	for k, v := range m.fx {
		cp.fx[k] = v
	}
	for k, v := range m.govvie {
		cp.govvie[k] = v
	}
	for k, v := range m.surfaces {
		cp.surfaces[k] = v
	}
	for k, v := range m.vols {
		cp.vols[k] = v
	}
	for k, v := range m.corrs {
		cp.corrs[k] = v
	}
	for idx, byDate := range m.fixings {
		dst := make(map[string]float64, len(byDate))
		for d, r := range byDate {
			dst[d] = r
		}
		cp.fixings[idx] = dst
	}
	for k, v := range m.feeds {
		cp.feeds[k] = v
	}
	return cp
}
