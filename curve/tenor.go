package curve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/utils"
)

// TenorToYears converts tenor strings like "1W", "3M", "10Y" to year fractions.
func TenorToYears(tenor string) float64 {
	n, unit, err := parseTenor(tenor)
	if err != nil {
		return 0
	}
	switch unit {
	case 'D':
		return float64(n) / 365.0
	case 'W':
		return float64(n) * 7.0 / 365.0
	case 'M':
		return float64(n) / 12.0
	default:
		return float64(n)
	}
}

// AddTenor rolls d forward by a tenor. Month and year tenors follow EDATE.
func AddTenor(d time.Time, tenor string) (time.Time, error) {
	n, unit, err := parseTenor(tenor)
	if err != nil {
		return time.Time{}, err
	}
	switch unit {
	case 'D':
		return d.AddDate(0, 0, n), nil
	case 'W':
		return d.AddDate(0, 0, 7*n), nil
	case 'M':
		return utils.AddMonth(d, n), nil
	default:
		return utils.AddMonth(d, 12*n), nil
	}
}

func parseTenor(tenor string) (int, byte, error) {
	tenor = strings.TrimSpace(strings.ToUpper(tenor))
	if len(tenor) < 2 {
		return 0, 0, fmt.Errorf("tenor %q: %w", tenor, calib.ErrInvalidInput)
	}
	unit := tenor[len(tenor)-1]
	if strings.IndexByte("DWMY", unit) < 0 {
		return 0, 0, fmt.Errorf("tenor %q: unknown unit: %w", tenor, calib.ErrInvalidInput)
	}
	n, err := strconv.Atoi(tenor[:len(tenor)-1])
	if err != nil || n < 0 {
		return 0, 0, fmt.Errorf("tenor %q: %w", tenor, calib.ErrInvalidInput)
	}
	return n, unit, nil
}
