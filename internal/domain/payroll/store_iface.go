package payroll

import "context"

type EmployeeSource interface {
	ListActivePayrollEmployees(ctx context.Context, tenantID string) ([]Employee, error)
}

type PeriodStore interface {
	CreatePeriod(ctx context.Context, tenantID string, period NewPeriod) (Period, error)
	// GetPeriod returns ErrPeriodNotFound for unknown ids.
	GetPeriod(ctx context.Context, tenantID, periodID string) (Period, error)
	ListPeriods(ctx context.Context, tenantID string) ([]Period, error)
	// AdvancePeriodStatus moves a period from one status to another and, when
	// entryStatus is set, moves its entries along in the same step. It returns
	// ErrInvalidTransition when the period is no longer in status from.
	AdvancePeriodStatus(ctx context.Context, tenantID, periodID, from, to, entryStatus string) (Period, error)
}

type TimeStore interface {
	// CreateTimeRecord returns ErrEmployeeNotFound for unknown employees.
	CreateTimeRecord(ctx context.Context, tenantID string, rec TimeRecord) (TimeRecord, error)
	ListTimeRecords(ctx context.Context, tenantID string, filter TimeFilter) ([]TimeRecord, error)
}

// EntryStore persists entries keyed by (employee, period). An upsert replaces
// the whole entry and must be atomic per key. Writes return ErrPeriodLocked
// once the period is PROCESSED or PAID, checked atomically with the write.
type EntryStore interface {
	UpsertEntry(ctx context.Context, tenantID string, entry Entry) (Entry, error)
	DeleteEntriesExcept(ctx context.Context, tenantID, periodID string, keep []string) (int, error)
	ListEntries(ctx context.Context, tenantID, periodID string) ([]Entry, error)
}

type StoreAPI interface {
	EmployeeSource
	PeriodStore
	TimeStore
	EntryStore
}
