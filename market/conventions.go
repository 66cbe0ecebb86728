package market

import (
	"sort"
	"strings"

	"github.com/meenmo/mcurve/calendar"
)

// SwapConvention pairs the fixed and floating legs of a quoted par swap.
type SwapConvention struct {
	Name  string
	Fixed LegConvention
	Float LegConvention
}

// Preset floating legs.
var (
	// ESTR OIS float leg: annual, compounded in arrears, pay delay 1.
	ESTRFloat = LegConvention{
		LegType:        LegFloating,
		Index:          ESTR,
		DayCount:       Act360,
		PayFrequency:   FreqAnnual,
		PayDelayDays:   1,
		RollConvention: BackwardEOM,
		Calendar:       calendar.TARGET,
		ResetPosition:  ResetInArrears,
	}
	SOFRFloat = LegConvention{
		LegType:        LegFloating,
		Index:          SOFR,
		DayCount:       Act360,
		PayFrequency:   FreqAnnual,
		PayDelayDays:   2,
		RollConvention: BackwardEOM,
		Calendar:       calendar.USD,
		ResetPosition:  ResetInArrears,
	}
	TONARFloat = LegConvention{
		LegType:        LegFloating,
		Index:          TONAR,
		DayCount:       Act365F,
		PayFrequency:   FreqAnnual,
		PayDelayDays:   2,
		RollConvention: BackwardEOM,
		Calendar:       calendar.JPN,
		ResetPosition:  ResetInArrears,
	}
	EURIBOR3MFloat = LegConvention{
		LegType:           LegFloating,
		Index:             EURIBOR3M,
		DayCount:          Act360,
		PayFrequency:      FreqQuarterly,
		FixingLagDays:     2,
		RollConvention:    BackwardEOM,
		Calendar:          calendar.TARGET,
		ResetPosition:     ResetInAdvance,
		ScheduleDirection: ScheduleBackward,
	}
	EURIBOR6MFloat = LegConvention{
		LegType:           LegFloating,
		Index:             EURIBOR6M,
		DayCount:          Act360,
		PayFrequency:      FreqSemi,
		FixingLagDays:     2,
		RollConvention:    BackwardEOM,
		Calendar:          calendar.TARGET,
		ResetPosition:     ResetInAdvance,
		ScheduleDirection: ScheduleBackward,
	}
	TIBOR3MFloat = LegConvention{
		LegType:        LegFloating,
		Index:          TIBOR3M,
		DayCount:       Act365F,
		PayFrequency:   FreqQuarterly,
		FixingLagDays:  2,
		RollConvention: BackwardEOM,
		Calendar:       calendar.JPN,
		ResetPosition:  ResetInAdvance,
	}
	TIBOR6MFloat = LegConvention{
		LegType:        LegFloating,
		Index:          TIBOR6M,
		DayCount:       Act365F,
		PayFrequency:   FreqSemi,
		FixingLagDays:  2,
		RollConvention: BackwardEOM,
		Calendar:       calendar.JPN,
		ResetPosition:  ResetInAdvance,
	}
)

// Preset fixed legs.
var (
	EURFixedAnnual = LegConvention{
		LegType:        LegFixed,
		DayCount:       Act360,
		PayFrequency:   FreqAnnual,
		PayDelayDays:   1,
		RollConvention: BackwardEOM,
		Calendar:       calendar.TARGET,
	}
	// EURIBOR swaps pay the fixed leg on 30/360.
	EURIBORFixed = LegConvention{
		LegType:           LegFixed,
		DayCount:          Dc30360,
		PayFrequency:      FreqAnnual,
		RollConvention:    BackwardEOM,
		Calendar:          calendar.TARGET,
		ScheduleDirection: ScheduleBackward,
	}
	USDFixedAnnual = LegConvention{
		LegType:        LegFixed,
		DayCount:       Act360,
		PayFrequency:   FreqAnnual,
		PayDelayDays:   2,
		RollConvention: BackwardEOM,
		Calendar:       calendar.USD,
	}
	JPYFixedAnnual = LegConvention{
		LegType:        LegFixed,
		DayCount:       Act365F,
		PayFrequency:   FreqAnnual,
		PayDelayDays:   2,
		RollConvention: BackwardEOM,
		Calendar:       calendar.JPN,
	}
	JPYFixedSemi = LegConvention{
		LegType:        LegFixed,
		DayCount:       Act365F,
		PayFrequency:   FreqSemi,
		RollConvention: BackwardEOM,
		Calendar:       calendar.JPN,
	}
)

var swapConventions = map[string]SwapConvention{}

func init() {
	for _, c := range []SwapConvention{
		{Name: "ESTR_OIS", Fixed: EURFixedAnnual, Float: ESTRFloat},
		{Name: "SOFR_OIS", Fixed: USDFixedAnnual, Float: SOFRFloat},
		{Name: "TONAR_OIS", Fixed: JPYFixedAnnual, Float: TONARFloat},
		{Name: "EURIBOR3M_IRS", Fixed: EURIBORFixed, Float: EURIBOR3MFloat},
		{Name: "EURIBOR6M_IRS", Fixed: EURIBORFixed, Float: EURIBOR6MFloat},
		{Name: "TIBOR3M_IRS", Fixed: JPYFixedSemi, Float: TIBOR3MFloat},
		{Name: "TIBOR6M_IRS", Fixed: JPYFixedSemi, Float: TIBOR6MFloat},
	} {
		swapConventions[c.Name] = c
	}
}

// LookupSwapConvention returns a preset par swap by name, case-insensitively.
func LookupSwapConvention(name string) (SwapConvention, bool) {
	c, ok := swapConventions[strings.ToUpper(name)]
	return c, ok
}

// SwapConventionNames lists the presets in name order.
func SwapConventionNames() []string {
	out := make([]string, 0, len(swapConventions))
	for name := range swapConventions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
