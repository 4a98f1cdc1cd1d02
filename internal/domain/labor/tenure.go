package labor

import (
	"math"
	"time"
)

const daysPerYear = 365.25

// ReferenceDate is December 31 of year, the date tenure is measured against.
func ReferenceDate(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// YearsOfService returns floor(days between hire and ref / 365.25). It is
// negative when hire falls after ref.
func YearsOfService(hire, ref time.Time) int {
	days := civilDays(ref) - civilDays(hire)
	return int(math.Floor(float64(days) / daysPerYear))
}

// Skip reports whether an employee with this tenure must be left out of a
// bulk run.
func Skip(years int) bool {
	return years < 0
}

// civilDays counts calendar days since the epoch, ignoring time of day and
// zone offsets.
func civilDays(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
