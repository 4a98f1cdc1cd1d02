package payroll

var periodOrder = map[string]int{
	PeriodStatusDraft:      0,
	PeriodStatusProcessing: 1,
	PeriodStatusProcessed:  2,
	PeriodStatusPaid:       3,
}

func ValidPeriodStatus(status string) bool {
	_, ok := periodOrder[status]
	return ok
}

func ValidPeriodType(periodType string) bool {
	switch periodType {
	case PeriodTypeWeekly, PeriodTypeBiweekly, PeriodTypeMonthly:
		return true
	}
	return false
}

// CanAdvance reports whether a period may move from one status to the next.
// Only single forward steps are allowed.
func CanAdvance(from, to string) bool {
	f, okFrom := periodOrder[from]
	t, okTo := periodOrder[to]
	return okFrom && okTo && t == f+1
}

// Locked reports whether entries of a period in this status may no longer be
// recalculated.
func Locked(status string) bool {
	return periodOrder[status] >= periodOrder[PeriodStatusProcessed]
}

// EntryStatusFor returns the entry status that follows a period moving into
// status, or "" when entries keep their current status.
func EntryStatusFor(status string) string {
	switch status {
	case PeriodStatusProcessed:
		return EntryStatusApproved
	case PeriodStatusPaid:
		return EntryStatusPaid
	}
	return ""
}
