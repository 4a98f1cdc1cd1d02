package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomina/internal/domain/labor"
	"nomina/internal/domain/payroll"
)

func hired(y int) time.Time {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func TestConcurrentUpsertsKeepOneRecordPerKey(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := s.AddEmployee("t1", Employee("Ana", hired(2019), "1200"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpsertCalculation(ctx, "t1", labor.Calculation{
				EmployeeID: id,
				Year:       2024,
				Amounts:    labor.Amounts{AguinaldoAmount: decimal.NewFromInt(int64(i))},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	calcs, err := s.ListCalculations(ctx, "t1", labor.Filter{EmployeeID: id})
	require.NoError(t, err)
	assert.Len(t, calcs, 1)
	assert.Equal(t, 20, s.Upserts())
}

func TestTenantsAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := s.AddEmployee("t1", Employee("Ana", hired(2019), "1200"))

	_, err := s.GetEmployee(ctx, "t2", id)
	assert.ErrorIs(t, err, labor.ErrEmployeeNotFound)

	ids, err := s.ListActiveEmployeeIDs(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, ids)

	p, err := s.CreatePeriod(ctx, "t1", payroll.NewPeriod{Name: "Jan", StartDate: hired(2024), EndDate: hired(2024).AddDate(0, 0, 14), PayDate: hired(2024).AddDate(0, 0, 15), Type: payroll.PeriodTypeBiweekly})
	require.NoError(t, err)
	_, err = s.GetPeriod(ctx, "t2", p.ID)
	assert.ErrorIs(t, err, payroll.ErrPeriodNotFound)
}

func TestActiveEmployeesOrderedAndFiltered(t *testing.T) {
	s := New()
	ctx := context.Background()
	late := s.AddEmployee("t1", Employee("Late", hired(2022), "500"))
	early := s.AddEmployee("t1", Employee("Early", hired(2010), "500"))
	inactive := Employee("Gone", hired(2005), "500")
	inactive.Active = false
	s.AddEmployee("t1", inactive)

	ids, err := s.ListActiveEmployeeIDs(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{early, late}, ids)

	emps, err := s.ListActivePayrollEmployees(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, emps, 2)
	assert.Equal(t, "500", emps[0].DailySalary.String())
}

func TestAdvancePeriodStatusIsCompareAndSet(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, err := s.CreatePeriod(ctx, "t1", payroll.NewPeriod{Name: "Jan", StartDate: hired(2024), EndDate: hired(2024), PayDate: hired(2024), Type: payroll.PeriodTypeWeekly})
	require.NoError(t, err)
	_, err = s.UpsertEntry(ctx, "t1", payroll.Entry{EmployeeID: "e1", PeriodID: p.ID, Status: payroll.EntryStatusCalculated})
	require.NoError(t, err)

	_, err = s.AdvancePeriodStatus(ctx, "t1", p.ID, payroll.PeriodStatusProcessing, payroll.PeriodStatusProcessed, payroll.EntryStatusApproved)
	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)

	updated, err := s.AdvancePeriodStatus(ctx, "t1", p.ID, payroll.PeriodStatusDraft, payroll.PeriodStatusProcessing, payroll.EntryStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodStatusProcessing, updated.Status)

	entries, err := s.ListEntries(ctx, "t1", p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, payroll.EntryStatusApproved, entries[0].Status)
}

func TestInjectedFaultFailsOnlyMatchingKey(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")
	s.InjectFault(func(op, key string) error {
		if op == "UpsertCalculation" && key == "bad" {
			return boom
		}
		return nil
	})

	_, err := s.UpsertCalculation(ctx, "t1", labor.Calculation{EmployeeID: "bad", Year: 2024})
	assert.ErrorIs(t, err, boom)
	_, err = s.UpsertCalculation(ctx, "t1", labor.Calculation{EmployeeID: "good", Year: 2024})
	assert.NoError(t, err)
	assert.Equal(t, 1, s.Upserts())
}

func TestTimeRecordsRequireKnownEmployee(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.CreateTimeRecord(ctx, "t1", payroll.TimeRecord{EmployeeID: "ghost", Date: hired(2024)})
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)

	id := s.AddEmployee("t1", Employee("Ana", hired(2019), "1200"))
	for d := 1; d <= 3; d++ {
		_, err := s.CreateTimeRecord(ctx, "t1", payroll.TimeRecord{EmployeeID: id, Date: hired(2024).AddDate(0, 0, d)})
		require.NoError(t, err)
	}
	recs, err := s.ListTimeRecords(ctx, "t1", payroll.TimeFilter{From: hired(2024).AddDate(0, 0, 2)})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestEntryWritesRejectLockedPeriod(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, err := s.CreatePeriod(ctx, "t1", payroll.NewPeriod{Name: "Jan", StartDate: hired(2024), EndDate: hired(2024), PayDate: hired(2024), Type: payroll.PeriodTypeWeekly})
	require.NoError(t, err)
	_, err = s.UpsertEntry(ctx, "t1", payroll.Entry{EmployeeID: "e1", PeriodID: p.ID, Status: payroll.EntryStatusCalculated})
	require.NoError(t, err)
	_, err = s.UpsertEntry(ctx, "t1", payroll.Entry{EmployeeID: "e2", PeriodID: p.ID, Status: payroll.EntryStatusCalculated})
	require.NoError(t, err)

	removed, err := s.DeleteEntriesExcept(ctx, "t1", p.ID, []string{"e1"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.AdvancePeriodStatus(ctx, "t1", p.ID, payroll.PeriodStatusDraft, payroll.PeriodStatusProcessing, "")
	require.NoError(t, err)
	_, err = s.AdvancePeriodStatus(ctx, "t1", p.ID, payroll.PeriodStatusProcessing, payroll.PeriodStatusProcessed, payroll.EntryStatusApproved)
	require.NoError(t, err)

	_, err = s.UpsertEntry(ctx, "t1", payroll.Entry{EmployeeID: "e1", PeriodID: p.ID, Status: payroll.EntryStatusCalculated})
	assert.ErrorIs(t, err, payroll.ErrPeriodLocked)
	_, err = s.DeleteEntriesExcept(ctx, "t1", p.ID, nil)
	assert.ErrorIs(t, err, payroll.ErrPeriodLocked)
	_, err = s.UpsertEntry(ctx, "t1", payroll.Entry{EmployeeID: "e1", PeriodID: "missing", Status: payroll.EntryStatusCalculated})
	assert.ErrorIs(t, err, payroll.ErrPeriodNotFound)

	entries, err := s.ListEntries(ctx, "t1", p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, payroll.EntryStatusApproved, entries[0].Status)
}
