package stream

import (
	"fmt"
	"time"

	"github.com/meenmo/mcurve/calendar"
	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// SchedulePeriod holds the business-day adjusted dates of one period.
type SchedulePeriod struct {
	StartDate time.Time
	EndDate   time.Time
	PayDate   time.Time
	ResetDate time.Time
}

// GenerateSchedule builds the payment schedule for a leg.
//
// Periods roll forward from effective by default. With ScheduleBackward they
// roll back from maturity so that intermediate dates align with it and the
// first period becomes a front stub if needed. Adjusted period ends chain into
// the next period's start, so the schedule is always contiguous.
func GenerateSchedule(effective, maturity time.Time, leg market.LegConvention) ([]SchedulePeriod, error) {
	if !maturity.After(effective) {
		return nil, fmt.Errorf("maturity %s not after effective %s: %w",
			maturity.Format(utils.DateLayout), effective.Format(utils.DateLayout), calib.ErrInvalidInput)
	}
	if leg.PayFrequency <= 0 {
		return nil, fmt.Errorf("unsupported pay frequency %d: %w", leg.PayFrequency, calib.ErrInvalidInput)
	}

	var unadjusted []time.Time
	if leg.ScheduleDirection == market.ScheduleBackward {
		unadjusted = rollBackward(effective, maturity, leg)
	} else {
		unadjusted = rollForward(effective, maturity, leg)
	}

	periods := make([]SchedulePeriod, 0, len(unadjusted)-1)
	start := calendar.Adjust(leg.Calendar, unadjusted[0])
	for i := 1; i < len(unadjusted); i++ {
		end := calendar.Adjust(leg.Calendar, unadjusted[i])
		if !end.After(start) {
			continue
		}
		pay := calendar.AddBusinessDays(leg.Calendar, end, leg.PayDelayDays)

		reset := calendar.AddBusinessDays(leg.Calendar, start, -leg.FixingLagDays)
		if leg.ResetPosition == market.ResetInArrears {
			reset = calendar.AddBusinessDays(leg.Calendar, end, -leg.FixingLagDays)
		}

		periods = append(periods, SchedulePeriod{
			StartDate: start,
			EndDate:   end,
			PayDate:   pay,
			ResetDate: reset,
		})
		start = end
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("empty schedule %s to %s: %w",
			effective.Format(utils.DateLayout), maturity.Format(utils.DateLayout), calib.ErrInvalidInput)
	}
	return periods, nil
}

func roll(d time.Time, months int, leg market.LegConvention) time.Time {
	if leg.RollConvention == market.BackwardEOM {
		return utils.AddMonth(d, months)
	}
	return d.AddDate(0, months, 0)
}

// rollForward steps from effective, always from the unadjusted date to avoid
// drift, and closes with a back stub when maturity is off-cycle.
func rollForward(effective, maturity time.Time, leg market.LegConvention) []time.Time {
	months := int(leg.PayFrequency)
	dates := []time.Time{effective}
	for i := 1; ; i++ {
		next := roll(effective, months*i, leg)
		if !next.Before(maturity) {
			break
		}
		dates = append(dates, next)
	}
	return append(dates, maturity)
}

// rollBackward steps back from maturity. A first rolled date within a week of
// effective is dropped so the front stub is long rather than tiny.
func rollBackward(effective, maturity time.Time, leg market.LegConvention) []time.Time {
	months := int(leg.PayFrequency)
	var dates []time.Time
	for i := 0; ; i++ {
		current := roll(maturity, -months*i, leg)
		if !current.After(effective) {
			break
		}
		dates = append([]time.Time{current}, dates...)
	}
	if len(dates) > 1 {
		if gap := int(utils.Days(effective, dates[0])); gap > 0 && gap <= 7 {
			dates = dates[1:]
		}
	}
	return append([]time.Time{effective}, dates...)
}

func buildStream(effective, maturity time.Time, leg market.LegConvention, spec PeriodSpec) (*Stream, error) {
	sched, err := GenerateSchedule(effective, maturity, leg)
	if err != nil {
		return nil, err
	}
	periods := make([]CouponPeriod, 0, len(sched))
	for _, sp := range sched {
		spec.Start, spec.End, spec.Pay = sp.StartDate, sp.EndDate, sp.PayDate
		spec.Reset = time.Time{}
		if !spec.Index.IsZero() {
			spec.Reset = sp.ResetDate
		}
		p, err := NewCouponPeriod(spec)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return NewStream(periods)
}

// FixedStream generates a fixed-rate stream from a leg convention.
func FixedStream(effective, maturity time.Time, leg market.LegConvention, notional, coupon float64, currency string) (*Stream, error) {
	return buildStream(effective, maturity, leg, PeriodSpec{
		DayCount:    leg.DayCount,
		Notional:    notional,
		Coupon:      coupon,
		PayCurrency: currency,
	})
}

// FloatingStream generates a stream on leg.Index paying spread over it.
func FloatingStream(effective, maturity time.Time, leg market.LegConvention, notional, spread float64, currency string) (*Stream, error) {
	if leg.Index.IsZero() {
		return nil, fmt.Errorf("floating leg without index: %w", calib.ErrInvalidInput)
	}
	return buildStream(effective, maturity, leg, PeriodSpec{
		DayCount:    leg.DayCount,
		Notional:    notional,
		Index:       leg.Index,
		Spread:      spread,
		PayCurrency: currency,
	})
}
