package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	dayHours      = decimal.NewFromInt(StandardDayHours)
	minutesInHour = decimal.NewFromInt(60)
)

// DeriveHours splits a clocked shift into regular and overtime hours. Worked
// time is the shift minus the break; the first 8 hours are regular.
func DeriveHours(clockIn, clockOut time.Time, breakStart, breakEnd *time.Time) (Hours, error) {
	if !clockOut.After(clockIn) {
		return Hours{}, fmt.Errorf("%w: clock out must be after clock in", ErrInvalidTimeEntry)
	}
	worked := clockOut.Sub(clockIn)

	if (breakStart == nil) != (breakEnd == nil) {
		return Hours{}, fmt.Errorf("%w: break needs both start and end", ErrInvalidTimeEntry)
	}
	if breakStart != nil {
		if breakEnd.Before(*breakStart) {
			return Hours{}, fmt.Errorf("%w: break ends before it starts", ErrInvalidTimeEntry)
		}
		if breakStart.Before(clockIn) || breakEnd.After(clockOut) {
			return Hours{}, fmt.Errorf("%w: break outside the shift", ErrInvalidTimeEntry)
		}
		worked -= breakEnd.Sub(*breakStart)
	}

	hours := decimal.NewFromInt(int64(worked / time.Minute)).Div(minutesInHour).Round(2)
	regular := decimal.Min(hours, dayHours)
	overtime := decimal.Max(decimal.Zero, hours.Sub(dayHours))
	return Hours{Regular: regular, Overtime: overtime}, nil
}

// Aggregate sums the hours of one employee's records dated within
// [start, end], both ends inclusive by calendar day. No matching records
// yields zero hours.
func Aggregate(records []TimeRecord, employeeID string, start, end time.Time) Hours {
	from, to := civilDate(start), civilDate(end)
	total := Hours{Regular: decimal.Zero, Overtime: decimal.Zero}
	for _, rec := range records {
		if rec.EmployeeID != employeeID {
			continue
		}
		day := civilDate(rec.Date)
		if day.Before(from) || day.After(to) {
			continue
		}
		total.Regular = total.Regular.Add(rec.RegularHours)
		total.Overtime = total.Overtime.Add(rec.OvertimeHours)
	}
	return total
}

// ValidateHours enforces the per-record bounds: regular in [0, 8] and
// overtime not negative.
func ValidateHours(h Hours) error {
	if h.Regular.IsNegative() || h.Regular.GreaterThan(dayHours) {
		return fmt.Errorf("%w: regular hours must be between 0 and %d", ErrInvalidTimeEntry, StandardDayHours)
	}
	if h.Overtime.IsNegative() {
		return fmt.Errorf("%w: overtime hours must not be negative", ErrInvalidTimeEntry)
	}
	return nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
