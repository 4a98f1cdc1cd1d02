package labor

import "context"

// EmployeeDirectory is the read-only view of employee records. GetEmployee
// returns ErrEmployeeNotFound for unknown ids.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error)
	ListActiveEmployeeIDs(ctx context.Context, tenantID string) ([]string, error)
}

// CalculationStore persists calculations keyed by (employee, year). An upsert
// replaces the whole record and must be atomic per key.
type CalculationStore interface {
	UpsertCalculation(ctx context.Context, tenantID string, calc Calculation) (Calculation, error)
	ListCalculations(ctx context.Context, tenantID string, filter Filter) ([]Calculation, error)
}

type StoreAPI interface {
	EmployeeDirectory
	CalculationStore
}
