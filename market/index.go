package market

import "github.com/meenmo/mcurve/calendar"

// Compounding is how an overnight index accrues over a coupon period.
type Compounding int

const (
	// CompoundingNone marks a term index (IBOR-style) fixed once per period.
	CompoundingNone Compounding = iota
	// CompoundingArithmetic averages the daily fixings.
	CompoundingArithmetic
	// CompoundingGeometric compounds the daily fixings.
	CompoundingGeometric
)

func (c Compounding) String() string {
	switch c {
	case CompoundingNone:
		return "NONE"
	case CompoundingArithmetic:
		return "ARITHMETIC"
	case CompoundingGeometric:
		return "GEOMETRIC"
	default:
		return "UNKNOWN"
	}
}

// Index describes a floating-rate benchmark.
type Index struct {
	Name        string
	Currency    string
	Tenor       string // "ON" for overnight, otherwise e.g. "3M"
	DayCount    DayCount
	Calendar    calendar.CalendarID
	Compounding Compounding
}

// IsOvernight reports whether the index is an overnight rate used in OIS discounting/projection.
func (i Index) IsOvernight() bool {
	return i.Tenor == "ON"
}

// IsZero reports whether the index is unset (fixed-rate periods).
func (i Index) IsZero() bool {
	return i.Name == ""
}

// Preset benchmarks.
var (
	ESTR = Index{Name: "ESTR", Currency: "EUR", Tenor: "ON", DayCount: Act360, Calendar: calendar.TARGET, Compounding: CompoundingGeometric}
	SOFR = Index{Name: "SOFR", Currency: "USD", Tenor: "ON", DayCount: Act360, Calendar: calendar.USD, Compounding: CompoundingGeometric}
	// FEDFUNDS swaps average the daily fixings arithmetically.
	FEDFUNDS  = Index{Name: "FEDFUNDS", Currency: "USD", Tenor: "ON", DayCount: Act360, Calendar: calendar.USD, Compounding: CompoundingArithmetic}
	TONAR     = Index{Name: "TONAR", Currency: "JPY", Tenor: "ON", DayCount: Act365F, Calendar: calendar.JPN, Compounding: CompoundingGeometric}
	EURIBOR3M = Index{Name: "EURIBOR3M", Currency: "EUR", Tenor: "3M", DayCount: Act360, Calendar: calendar.TARGET}
	EURIBOR6M = Index{Name: "EURIBOR6M", Currency: "EUR", Tenor: "6M", DayCount: Act360, Calendar: calendar.TARGET}
	TIBOR3M   = Index{Name: "TIBOR3M", Currency: "JPY", Tenor: "3M", DayCount: Act365F, Calendar: calendar.JPN}
	TIBOR6M   = Index{Name: "TIBOR6M", Currency: "JPY", Tenor: "6M", DayCount: Act365F, Calendar: calendar.JPN}
	CD91D     = Index{Name: "CD91D", Currency: "KRW", Tenor: "3M", DayCount: Act365F, Calendar: calendar.KRW}
)

var presets = map[string]Index{
	ESTR.Name:      ESTR,
	SOFR.Name:      SOFR,
	FEDFUNDS.Name:  FEDFUNDS,
	TONAR.Name:     TONAR,
	EURIBOR3M.Name: EURIBOR3M,
	EURIBOR6M.Name: EURIBOR6M,
	TIBOR3M.Name:   TIBOR3M,
	TIBOR6M.Name:   TIBOR6M,
	CD91D.Name:     CD91D,
}

// LookupIndex returns a preset benchmark by name.
func LookupIndex(name string) (Index, bool) {
	idx, ok := presets[name]
	return idx, ok
}
