// Package memory implements the labor and payroll store contracts in
// process memory, for tests and database-less development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nomina/internal/domain/labor"
	"nomina/internal/domain/payroll"
)

// Fault lets tests fail a store operation. op is the method name and key the
// employee or period id it touches; a nil return lets the call through.
type Fault func(op, key string) error

type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	employees    map[string]map[string]labor.Employee
	calculations map[calcKey]labor.Calculation
	periods      map[string]map[string]payroll.Period
	timeRecords  map[string][]payroll.TimeRecord
	entries      map[entryKey]payroll.Entry
	fault        Fault
	upserts      int
}

type calcKey struct {
	TenantID   string
	EmployeeID string
	Year       int
}

type entryKey struct {
	TenantID   string
	EmployeeID string
	PeriodID   string
}

var (
	_ labor.StoreAPI   = (*Store)(nil)
	_ payroll.StoreAPI = (*Store)(nil)
)

func New() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		employees:    make(map[string]map[string]labor.Employee),
		calculations: make(map[calcKey]labor.Calculation),
		periods:      make(map[string]map[string]payroll.Period),
		timeRecords:  make(map[string][]payroll.TimeRecord),
		entries:      make(map[entryKey]payroll.Entry),
	}
}

func (s *Store) InjectFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *Store) check(op, key string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, key)
}

// AddEmployee registers an employee and returns its id, generating one when
// emp.ID is empty.
func (s *Store) AddEmployee(tenantID string, emp labor.Employee) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if s.employees[tenantID] == nil {
		s.employees[tenantID] = make(map[string]labor.Employee)
	}
	s.employees[tenantID][emp.ID] = emp
	return emp.ID
}

// Upserts counts successful calculation and entry writes.
func (s *Store) Upserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upserts
}

func (s *Store) GetEmployee(_ context.Context, tenantID, employeeID string) (labor.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("GetEmployee", employeeID); err != nil {
		return labor.Employee{}, err
	}
	emp, ok := s.employees[tenantID][employeeID]
	if !ok {
		return labor.Employee{}, labor.ErrEmployeeNotFound
	}
	return emp, nil
}

func (s *Store) ListActiveEmployeeIDs(_ context.Context, tenantID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("ListActiveEmployeeIDs", tenantID); err != nil {
		return nil, err
	}
	var ids []string
	for _, emp := range s.activeLocked(tenantID) {
		ids = append(ids, emp.ID)
	}
	return ids, nil
}

func (s *Store) ListActivePayrollEmployees(_ context.Context, tenantID string) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("ListActivePayrollEmployees", tenantID); err != nil {
		return nil, err
	}
	var out []payroll.Employee
	for _, emp := range s.activeLocked(tenantID) {
		out = append(out, payroll.Employee{ID: emp.ID, Name: emp.Name, DailySalary: emp.DailySalary})
	}
	return out, nil
}

// activeLocked returns active employees ordered by hire date, then id.
func (s *Store) activeLocked(tenantID string) []labor.Employee {
	var out []labor.Employee
	for _, emp := range s.employees[tenantID] {
		if emp.Active {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].HireDate.Equal(out[j].HireDate) {
			return out[i].HireDate.Before(out[j].HireDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) UpsertCalculation(_ context.Context, tenantID string, calc labor.Calculation) (labor.Calculation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("UpsertCalculation", calc.EmployeeID); err != nil {
		return labor.Calculation{}, err
	}
	key := calcKey{TenantID: tenantID, EmployeeID: calc.EmployeeID, Year: calc.Year}
	now := s.now()
	if prev, ok := s.calculations[key]; ok {
		calc.ID = prev.ID
		calc.CreatedAt = prev.CreatedAt
	} else {
		calc.ID = uuid.NewString()
		calc.CreatedAt = now
	}
	calc.UpdatedAt = now
	s.calculations[key] = calc
	s.upserts++
	return calc, nil
}

func (s *Store) ListCalculations(_ context.Context, tenantID string, filter labor.Filter) ([]labor.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []labor.Calculation
	for key, calc := range s.calculations {
		if key.TenantID != tenantID {
			continue
		}
		if filter.EmployeeID != "" && key.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Year != 0 && key.Year != filter.Year {
			continue
		}
		out = append(out, calc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

func (s *Store) CreatePeriod(_ context.Context, tenantID string, in payroll.NewPeriod) (payroll.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	p := payroll.Period{
		ID:        uuid.NewString(),
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		PayDate:   in.PayDate,
		Status:    payroll.PeriodStatusDraft,
		Type:      in.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.periods[tenantID] == nil {
		s.periods[tenantID] = make(map[string]payroll.Period)
	}
	s.periods[tenantID][p.ID] = p
	return p, nil
}

func (s *Store) GetPeriod(_ context.Context, tenantID, periodID string) (payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("GetPeriod", periodID); err != nil {
		return payroll.Period{}, err
	}
	p, ok := s.periods[tenantID][periodID]
	if !ok {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	return p, nil
}

func (s *Store) ListPeriods(_ context.Context, tenantID string) ([]payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]payroll.Period, 0, len(s.periods[tenantID]))
	for _, p := range s.periods[tenantID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (s *Store) AdvancePeriodStatus(_ context.Context, tenantID, periodID, from, to, entryStatus string) (payroll.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[tenantID][periodID]
	if !ok {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	if p.Status != from {
		return payroll.Period{}, fmt.Errorf("%w: period %s is no longer %s", payroll.ErrInvalidTransition, periodID, from)
	}
	now := s.now()
	p.Status = to
	p.UpdatedAt = now
	s.periods[tenantID][periodID] = p
	if entryStatus != "" {
		for key, e := range s.entries {
			if key.TenantID == tenantID && key.PeriodID == periodID {
				e.Status = entryStatus
				e.UpdatedAt = now
				s.entries[key] = e
			}
		}
	}
	return p, nil
}

func (s *Store) CreateTimeRecord(_ context.Context, tenantID string, rec payroll.TimeRecord) (payroll.TimeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[tenantID][rec.EmployeeID]; !ok {
		return payroll.TimeRecord{}, payroll.ErrEmployeeNotFound
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	s.timeRecords[tenantID] = append(s.timeRecords[tenantID], rec)
	return rec, nil
}

func (s *Store) ListTimeRecords(_ context.Context, tenantID string, filter payroll.TimeFilter) ([]payroll.TimeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("ListTimeRecords", tenantID); err != nil {
		return nil, err
	}
	var out []payroll.TimeRecord
	for _, rec := range s.timeRecords[tenantID] {
		if filter.EmployeeID != "" && rec.EmployeeID != filter.EmployeeID {
			continue
		}
		if !filter.From.IsZero() && rec.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && rec.Date.After(filter.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) UpsertEntry(_ context.Context, tenantID string, entry payroll.Entry) (payroll.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("UpsertEntry", entry.EmployeeID); err != nil {
		return payroll.Entry{}, err
	}
	if err := s.openPeriodLocked(tenantID, entry.PeriodID); err != nil {
		return payroll.Entry{}, err
	}
	key := entryKey{TenantID: tenantID, EmployeeID: entry.EmployeeID, PeriodID: entry.PeriodID}
	now := s.now()
	if prev, ok := s.entries[key]; ok {
		entry.ID = prev.ID
		entry.CreatedAt = prev.CreatedAt
	} else {
		entry.ID = uuid.NewString()
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	s.entries[key] = entry
	s.upserts++
	return entry, nil
}

func (s *Store) DeleteEntriesExcept(_ context.Context, tenantID, periodID string, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openPeriodLocked(tenantID, periodID); err != nil {
		return 0, err
	}
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	removed := 0
	for key := range s.entries {
		if key.TenantID != tenantID || key.PeriodID != periodID {
			continue
		}
		if _, ok := kept[key.EmployeeID]; !ok {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// openPeriodLocked rejects entry writes to a missing or locked period. The
// caller holds mu.
func (s *Store) openPeriodLocked(tenantID, periodID string) error {
	p, ok := s.periods[tenantID][periodID]
	if !ok {
		return payroll.ErrPeriodNotFound
	}
	if payroll.Locked(p.Status) {
		return fmt.Errorf("%w: status %s", payroll.ErrPeriodLocked, p.Status)
	}
	return nil
}

func (s *Store) ListEntries(_ context.Context, tenantID, periodID string) ([]payroll.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []payroll.Entry
	for key, e := range s.entries {
		if key.TenantID == tenantID && key.PeriodID == periodID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// Employee is a convenience constructor for tests and seeding.
func Employee(name string, hired time.Time, daily string) labor.Employee {
	return labor.Employee{
		Name:        name,
		HireDate:    hired,
		DailySalary: decimal.RequireFromString(daily),
		Active:      true,
	}
}
