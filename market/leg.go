package market

import "github.com/meenmo/mcurve/calendar"

// LegType distinguishes floating vs fixed.
type LegType string

const (
	LegFloating LegType = "FLOATING"
	LegFixed    LegType = "FIXED"
)

// Frequency enumerates payment/reset frequencies in months.
type Frequency int

const (
	FreqAnnual    Frequency = 12
	FreqSemi      Frequency = 6
	FreqQuarterly Frequency = 3
	FreqMonthly   Frequency = 1
)

// RollConvention for month-end handling.
type RollConvention string

const (
	NoRoll      RollConvention = ""
	BackwardEOM RollConvention = "BACKWARD_EOM"
)

// ResetPosition indicates fixing timing.
type ResetPosition string

const (
	ResetInAdvance ResetPosition = "IN_ADVANCE"
	ResetInArrears ResetPosition = "IN_ARREARS"
)

// ScheduleDirection selects which end of the trade periods are rolled from.
type ScheduleDirection string

const (
	ScheduleForward  ScheduleDirection = "FORWARD"
	ScheduleBackward ScheduleDirection = "BACKWARD"
)

// DayCount enum.
type DayCount string

const (
	Act360   DayCount = "ACT/360"
	Act365F  DayCount = "ACT/365F"
	ActAct   DayCount = "ACT/ACT"
	Dc30360  DayCount = "30/360"
	Dc30E360 DayCount = "30E/360"
)

// LegConvention captures standard swap leg settings used to generate coupon periods.
type LegConvention struct {
	LegType           LegType
	Index             Index
	DayCount          DayCount
	PayFrequency      Frequency
	FixingLagDays     int
	PayDelayDays      int
	RollConvention    RollConvention
	Calendar          calendar.CalendarID
	ResetPosition     ResetPosition
	ScheduleDirection ScheduleDirection
}
