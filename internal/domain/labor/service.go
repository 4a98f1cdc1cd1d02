package labor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nomina/internal/domain/audit"
	"nomina/internal/domain/bulk"
	"nomina/internal/platform/db"
)

type Auditor interface {
	Record(ctx context.Context, tenantID string, entry audit.Entry) error
}

type RunRecorder interface {
	RecordRun(kind string, successes, failures, skipped int, aborted bool)
}

type Service struct {
	employees EmployeeDirectory
	store     CalculationStore
	runner    *bulk.Runner
	log       *zap.Logger
	audit     Auditor
	metrics   RunRecorder
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m RunRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(employees EmployeeDirectory, store CalculationStore, bulkOpts bulk.Options, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	bulkOpts.Classify = ErrorCode
	bulkOpts.Logger = log
	s := &Service{
		employees: employees,
		store:     store,
		runner:    bulk.NewRunner(bulkOpts),
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute calculates and stores the labor-law amounts of one employee for
// year, replacing any earlier result for the same (employee, year).
func (s *Service) Compute(ctx context.Context, tenantID, employeeID string, year int) (Calculation, error) {
	if err := validateYear(year); err != nil {
		return Calculation{}, err
	}
	calc, err := s.computeOne(ctx, tenantID, employeeID, year, false)
	s.recordRun(err == nil, false)
	if err != nil {
		return Calculation{}, err
	}
	return calc, nil
}

// ComputeBulk runs Compute for every listed employee, or for all active ones
// when the list is empty. Employees hired after the reference date are
// skipped. A non-nil error means the run was cut short; the report still
// holds everything finished before that.
func (s *Service) ComputeBulk(ctx context.Context, tenantID string, req BulkRequest) (bulk.Report[Calculation], error) {
	if err := validateYear(req.Year); err != nil {
		return bulk.Report[Calculation]{}, err
	}
	ids := dedupe(req.EmployeeIDs)
	if len(ids) == 0 {
		active, err := s.employees.ListActiveEmployeeIDs(ctx, tenantID)
		if err != nil {
			return bulk.Report[Calculation]{}, fmt.Errorf("list active employees: %w", err)
		}
		ids = active
	}

	report, err := bulk.Run(ctx, s.runner, fmt.Sprintf("labor-%d", req.Year), ids, func(ctx context.Context, employeeID string) (Calculation, error) {
		return s.computeOne(ctx, tenantID, employeeID, req.Year, true)
	})
	if s.metrics != nil {
		s.metrics.RecordRun("labor", report.SuccessCount, report.FailureCount, report.SkippedCount, err != nil)
	}
	return report, err
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter) ([]Calculation, error) {
	if filter.Year != 0 {
		if err := validateYear(filter.Year); err != nil {
			return nil, err
		}
	}
	return s.store.ListCalculations(ctx, tenantID, filter)
}

func (s *Service) computeOne(ctx context.Context, tenantID, employeeID string, year int, skipFuture bool) (Calculation, error) {
	emp, err := s.employees.GetEmployee(ctx, tenantID, employeeID)
	if err != nil {
		return Calculation{}, err
	}

	ref := ReferenceDate(year)
	years := YearsOfService(emp.HireDate, ref)
	if skipFuture && Skip(years) {
		return Calculation{}, fmt.Errorf("%w: hired %s, after %s", bulk.ErrSkipped, emp.HireDate.Format("2006-01-02"), ref.Format("2006-01-02"))
	}

	amounts, err := Calculate(Input{
		YearsOfService: years,
		DailySalary:    emp.DailySalary,
		MonthlySalary:  emp.MonthlySalary,
	})
	if err != nil {
		return Calculation{}, fmt.Errorf("employee %s: %w", employeeID, err)
	}

	saved, err := s.store.UpsertCalculation(ctx, tenantID, Calculation{
		EmployeeID: employeeID,
		Year:       year,
		Amounts:    amounts,
	})
	if err != nil {
		return Calculation{}, fmt.Errorf("store calculation for %s/%d: %w", employeeID, year, err)
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, tenantID, audit.Entry{
			Action:     AuditActionCompute,
			EntityType: AuditEntityType,
			EntityID:   saved.ID,
			After:      saved,
		}); err != nil {
			s.log.Warn("audit record failed", zap.String("employeeId", employeeID), zap.Error(err))
		}
	}
	return saved, nil
}

func (s *Service) recordRun(ok, aborted bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.RecordRun("labor", 1, 0, 0, aborted)
		return
	}
	s.metrics.RecordRun("labor", 0, 1, 0, aborted)
}

// ErrorCode maps an error to the stable code used in bulk failures and API
// responses.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSalary):
		return "invalid_salary"
	case errors.Is(err, ErrInvalidTenure):
		return "invalid_tenure"
	case errors.Is(err, ErrEmployeeNotFound):
		return "employee_not_found"
	case errors.Is(err, ErrInvalidYear):
		return "validation_error"
	case errors.Is(err, db.ErrUnavailable):
		return "store_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, db.ErrPersistence):
		return "persistence_failure"
	default:
		return bulk.CodeUnknown
	}
}

func validateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
