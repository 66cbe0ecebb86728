package utils

import (
	"time"
)

// Day count conventions understood by YearFraction.
const (
	Act360     = "ACT/360"
	Act365F    = "ACT/365F"
	ActActISDA = "ACT/ACT"
	Thirty360  = "30/360"
	ThirtyE360 = "30E/360"
)

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, ACT/ACT (ISDA), 30E/360, 30/360.
// Unknown conventions fall back to ACT/365F.
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Act365F:
		return Days(start, end) / 365.0
	case ActActISDA:
		return actActISDA(start, end)
	case ThirtyE360:
		// D1 and D2 are capped at 30
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		return thirty360(start, end, d1, d2)
	case Thirty360:
		// Bond basis: D2 is capped only when D1 was.
		d1 := min(start.Day(), 30)
		d2 := end.Day()
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2)
	default:
		return Days(start, end) / 365.0
	}
}

func thirty360(start, end time.Time, d1, d2 int) float64 {
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
}

func actActISDA(start, end time.Time) float64 {
	if end.Before(start) {
		return -actActISDA(end, start)
	}
	if start.Year() == end.Year() {
		return Days(start, end) / daysInYear(start.Year())
	}
	firstYearEnd := time.Date(start.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
	lastYearStart := time.Date(end.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	yf := Days(start, firstYearEnd) / daysInYear(start.Year())
	yf += float64(end.Year() - start.Year() - 1)
	yf += Days(lastYearStart, end) / daysInYear(end.Year())
	return yf
}

func daysInYear(year int) float64 {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}
