package labor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomina/internal/domain/audit"
	"nomina/internal/domain/bulk"
	"nomina/internal/domain/labor"
	"nomina/internal/platform/db"
	"nomina/internal/store/memory"
)

const tenant = "tenant-1"

type fakeAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeAuditor) Record(_ context.Context, _ string, e audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func newService(t *testing.T, opts ...labor.Option) (*labor.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := labor.NewService(store, store, bulk.Options{Workers: 3, Timeout: time.Second}, nil, opts...)
	return svc, store
}

func hired(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeScenario(t *testing.T) {
	auditor := &fakeAuditor{}
	svc, store := newService(t, labor.WithAuditor(auditor))
	id := store.AddEmployee(tenant, memory.Employee("Ana", hired(2019, time.June, 1), "1200"))

	calc, err := svc.Compute(context.Background(), tenant, id, 2024)
	require.NoError(t, err)

	assert.Equal(t, id, calc.EmployeeID)
	assert.Equal(t, 2024, calc.Year)
	assert.Equal(t, 5, calc.YearsOfService)
	assert.Equal(t, 14, calc.VacationDays)
	assert.Equal(t, "16800", calc.VacationAmount.String())
	assert.Equal(t, "4200", calc.VacationBonus.String())
	assert.Equal(t, "18000", calc.AguinaldoAmount.String())
	assert.Equal(t, "3600", calc.SavingsFundAmount.String())
	assert.Equal(t, "900", calc.IMSSEmployee.String())
	assert.Equal(t, "3780", calc.IMSSEmployer.String())
	assert.Equal(t, "1800", calc.Infonavit.String())
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, labor.AuditActionCompute, auditor.entries[0].Action)
}

func TestComputeTwiceReplacesRecord(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	id := store.AddEmployee(tenant, memory.Employee("Ana", hired(2019, time.June, 1), "1200"))

	first, err := svc.Compute(ctx, tenant, id, 2024)
	require.NoError(t, err)
	second, err := svc.Compute(ctx, tenant, id, 2024)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Amounts, second.Amounts)

	stored, err := svc.List(ctx, tenant, labor.Filter{EmployeeID: id, Year: 2024})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, first.Amounts, stored[0].Amounts)
}

func TestComputeUsesMonthlySalaryWhenPresent(t *testing.T) {
	svc, store := newService(t)
	emp := memory.Employee("Luis", hired(2020, time.January, 10), "500")
	emp.MonthlySalary = decimal.NewNullDecimal(decimal.NewFromInt(20000))
	id := store.AddEmployee(tenant, emp)

	calc, err := svc.Compute(context.Background(), tenant, id, 2024)
	require.NoError(t, err)
	assert.Equal(t, "2000", calc.SavingsFundAmount.String())
	assert.Equal(t, "500", calc.IMSSEmployee.String())
}

func TestComputeRejectsZeroSalaryWithoutStoring(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	id := store.AddEmployee(tenant, memory.Employee("Zero", hired(2020, time.May, 1), "0"))

	_, err := svc.Compute(ctx, tenant, id, 2024)
	require.ErrorIs(t, err, labor.ErrInvalidSalary)
	assert.Equal(t, "invalid_salary", labor.ErrorCode(err))

	stored, err := svc.List(ctx, tenant, labor.Filter{EmployeeID: id})
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Zero(t, store.Upserts())
}

func TestComputeErrors(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.Compute(ctx, tenant, "missing", 2024)
	assert.ErrorIs(t, err, labor.ErrEmployeeNotFound)

	future := store.AddEmployee(tenant, memory.Employee("Future", hired(2026, time.March, 1), "800"))
	_, err = svc.Compute(ctx, tenant, future, 2024)
	assert.ErrorIs(t, err, labor.ErrInvalidTenure)

	_, err = svc.Compute(ctx, tenant, future, 0)
	assert.ErrorIs(t, err, labor.ErrInvalidYear)
}

func TestComputeBulkIsolatesFailures(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	var ids []string
	for i, daily := range []string{"1200", "800", "0", "650.50", "999.99"} {
		ids = append(ids, store.AddEmployee(tenant, memory.Employee(fmt.Sprintf("emp-%d", i), hired(2015+i, time.February, 1), daily)))
	}

	report, err := svc.ComputeBulk(ctx, tenant, labor.BulkRequest{Year: 2024, EmployeeIDs: ids})
	require.NoError(t, err)

	assert.Equal(t, 4, report.SuccessCount)
	assert.Equal(t, 1, report.FailureCount)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, ids[2], report.Failures[0].EmployeeID)
	assert.Equal(t, "invalid_salary", report.Failures[0].Code)

	stored, err := svc.List(ctx, tenant, labor.Filter{Year: 2024})
	require.NoError(t, err)
	assert.Len(t, stored, 4)
	assert.Equal(t, 4, store.Upserts())
}

func TestComputeBulkDefaultsToActiveEmployeesAndSkipsFutureHires(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	store.AddEmployee(tenant, memory.Employee("Ana", hired(2019, time.June, 1), "1200"))
	future := store.AddEmployee(tenant, memory.Employee("New", hired(2025, time.February, 1), "700"))
	inactive := memory.Employee("Gone", hired(2010, time.June, 1), "900")
	inactive.Active = false
	store.AddEmployee(tenant, inactive)

	report, err := svc.ComputeBulk(ctx, tenant, labor.BulkRequest{Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Zero(t, report.FailureCount)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, future, report.Skipped[0].EmployeeID)
}

func TestComputeBulkRecordsMissingEmployee(t *testing.T) {
	svc, store := newService(t)
	id := store.AddEmployee(tenant, memory.Employee("Ana", hired(2019, time.June, 1), "1200"))

	report, err := svc.ComputeBulk(context.Background(), tenant, labor.BulkRequest{Year: 2024, EmployeeIDs: []string{id, "ghost", id}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "employee_not_found", report.Failures[0].Code)
}

func TestComputeBulkTreatsPerKeyPersistenceFailureAsEmployeeFailure(t *testing.T) {
	svc, store := newService(t)
	a := store.AddEmployee(tenant, memory.Employee("A", hired(2019, time.June, 1), "1200"))
	b := store.AddEmployee(tenant, memory.Employee("B", hired(2018, time.June, 1), "1100"))
	store.InjectFault(func(op, key string) error {
		if op == "UpsertCalculation" && key == b {
			return fmt.Errorf("%w: check constraint", db.ErrPersistence)
		}
		return nil
	})

	report, err := svc.ComputeBulk(context.Background(), tenant, labor.BulkRequest{Year: 2024, EmployeeIDs: []string{a, b}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "persistence_failure", report.Failures[0].Code)
}

func TestComputeBulkFailsFastWhenStoreIsDown(t *testing.T) {
	store := memory.New()
	svc := labor.NewService(store, store, bulk.Options{Workers: 1, Timeout: time.Second}, nil)
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, store.AddEmployee(tenant, memory.Employee(fmt.Sprintf("e%d", i), hired(2018, time.June, 1+i), "1000")))
	}
	store.InjectFault(func(op, key string) error {
		if op == "UpsertCalculation" && key == ids[1] {
			return fmt.Errorf("%w: connection refused", db.ErrUnavailable)
		}
		return nil
	})

	report, err := svc.ComputeBulk(context.Background(), tenant, labor.BulkRequest{Year: 2024, EmployeeIDs: ids})
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrUnavailable))
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, "store_unavailable", report.Failures[0].Code)
	assert.Equal(t, ids[2:], report.Pending)
}

type slowDirectory struct {
	*memory.Store
	slow string
}

func (d slowDirectory) GetEmployee(ctx context.Context, tenantID, employeeID string) (labor.Employee, error) {
	if employeeID == d.slow {
		<-ctx.Done()
		return labor.Employee{}, db.Classify(fmt.Errorf("load employee: %w", ctx.Err()))
	}
	return d.Store.GetEmployee(ctx, tenantID, employeeID)
}

func TestComputeBulkTimeoutFailsOnlyThatEmployee(t *testing.T) {
	store := memory.New()
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, store.AddEmployee(tenant, memory.Employee(fmt.Sprintf("e%d", i), hired(2018, time.June, 1+i), "1000")))
	}
	dir := slowDirectory{Store: store, slow: ids[1]}
	svc := labor.NewService(dir, store, bulk.Options{Workers: 2, Timeout: 50 * time.Millisecond}, nil)

	report, err := svc.ComputeBulk(context.Background(), tenant, labor.BulkRequest{Year: 2024, EmployeeIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, 4, report.SuccessCount)
	assert.Empty(t, report.Pending)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, ids[1], report.Failures[0].EmployeeID)
	assert.Equal(t, "timeout", report.Failures[0].Code)
}
