package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
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
	store   StoreAPI
	rates   Rates
	runner  *bulk.Runner
	log     *zap.Logger
	audit   Auditor
	metrics RunRecorder
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m RunRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store StoreAPI, rates Rates, bulkOpts bulk.Options, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	bulkOpts.Classify = ErrorCode
	bulkOpts.Fatal = abortsRun
	bulkOpts.Logger = log
	s := &Service{
		store:  store,
		rates:  rates,
		runner: bulk.NewRunner(bulkOpts),
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreatePeriod(ctx context.Context, tenantID string, in NewPeriod) (Period, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return Period{}, fmt.Errorf("%w: name is required", ErrInvalidPeriod)
	case in.StartDate.IsZero() || in.EndDate.IsZero() || in.PayDate.IsZero():
		return Period{}, fmt.Errorf("%w: start, end and pay dates are required", ErrInvalidPeriod)
	case civilDate(in.EndDate).Before(civilDate(in.StartDate)):
		return Period{}, fmt.Errorf("%w: end date before start date", ErrInvalidPeriod)
	case !ValidPeriodType(in.Type):
		return Period{}, fmt.Errorf("%w: unknown type %q", ErrInvalidPeriod, in.Type)
	}
	in.StartDate, in.EndDate, in.PayDate = civilDate(in.StartDate), civilDate(in.EndDate), civilDate(in.PayDate)
	return s.store.CreatePeriod(ctx, tenantID, in)
}

func (s *Service) GetPeriod(ctx context.Context, tenantID, periodID string) (Period, error) {
	return s.store.GetPeriod(ctx, tenantID, periodID)
}

func (s *Service) ListPeriods(ctx context.Context, tenantID string) ([]Period, error) {
	return s.store.ListPeriods(ctx, tenantID)
}

// RecordTimeEntry stores one day of work. Hours not given explicitly are
// derived from the clock times.
func (s *Service) RecordTimeEntry(ctx context.Context, tenantID string, in NewTimeRecord) (TimeRecord, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return TimeRecord{}, fmt.Errorf("%w: employee id is required", ErrInvalidTimeEntry)
	}
	if in.Date.IsZero() {
		return TimeRecord{}, fmt.Errorf("%w: date is required", ErrInvalidTimeEntry)
	}

	hours := Hours{Regular: decimal.Zero, Overtime: decimal.Zero}
	if in.ClockIn != nil && in.ClockOut != nil {
		derived, err := DeriveHours(*in.ClockIn, *in.ClockOut, in.BreakStart, in.BreakEnd)
		if err != nil {
			return TimeRecord{}, err
		}
		hours = derived
	}
	if in.RegularHours.Valid {
		hours.Regular = in.RegularHours.Decimal
	}
	if in.OvertimeHours.Valid {
		hours.Overtime = in.OvertimeHours.Decimal
	}
	if err := ValidateHours(hours); err != nil {
		return TimeRecord{}, err
	}

	return s.store.CreateTimeRecord(ctx, tenantID, TimeRecord{
		EmployeeID:    in.EmployeeID,
		Date:          civilDate(in.Date),
		ClockIn:       in.ClockIn,
		ClockOut:      in.ClockOut,
		BreakStart:    in.BreakStart,
		BreakEnd:      in.BreakEnd,
		RegularHours:  hours.Regular,
		OvertimeHours: hours.Overtime,
		Status:        TimeStatusPending,
		Notes:         strings.TrimSpace(in.Notes),
	})
}

func (s *Service) ListTimeEntries(ctx context.Context, tenantID string, filter TimeFilter) ([]TimeRecord, error) {
	return s.store.ListTimeRecords(ctx, tenantID, filter)
}

// ComputePayrollForPeriod prices the period for every active employee
// without writing anything.
func (s *Service) ComputePayrollForPeriod(ctx context.Context, tenantID, periodID string) (Computation, error) {
	period, err := s.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return Computation{}, err
	}
	return s.compute(ctx, tenantID, period)
}

func (s *Service) compute(ctx context.Context, tenantID string, period Period) (Computation, error) {
	employees, err := s.store.ListActivePayrollEmployees(ctx, tenantID)
	if err != nil {
		return Computation{}, fmt.Errorf("list active employees: %w", err)
	}
	records, err := s.store.ListTimeRecords(ctx, tenantID, TimeFilter{From: period.StartDate, To: period.EndDate})
	if err != nil {
		return Computation{}, fmt.Errorf("list time records: %w", err)
	}

	out := Computation{
		Period:   period,
		Entries:  make([]Entry, 0, len(employees)),
		Failures: make([]bulk.Failure, 0),
	}
	for _, emp := range employees {
		if emp.salaryErr != nil {
			out.Failures = append(out.Failures, failure(emp.ID, emp.salaryErr))
			continue
		}
		hours := Aggregate(records, emp.ID, period.StartDate, period.EndDate)
		entry, err := Calculate(hours, emp.DailySalary, s.rates)
		if err != nil {
			out.Failures = append(out.Failures, failure(emp.ID, err))
			continue
		}
		entry.EmployeeID = emp.ID
		entry.PeriodID = period.ID
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// CalculatePeriod computes the period, stores every entry and moves a DRAFT
// period to PROCESSING. A PROCESSING period may be recalculated; later
// statuses are locked. Entries of employees that are no longer part of the
// result (deactivated or now failing) are removed so the period only holds
// the latest calculation.
func (s *Service) CalculatePeriod(ctx context.Context, tenantID, periodID string) (CalculationResult, error) {
	period, err := s.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return CalculationResult{}, err
	}
	if Locked(period.Status) {
		return CalculationResult{}, fmt.Errorf("%w: status %s", ErrPeriodLocked, period.Status)
	}

	comp, err := s.compute(ctx, tenantID, period)
	if err != nil {
		return CalculationResult{}, err
	}

	pending := make(map[string]Entry, len(comp.Entries))
	ids := make([]string, 0, len(comp.Entries))
	for _, entry := range comp.Entries {
		pending[entry.EmployeeID] = entry
		ids = append(ids, entry.EmployeeID)
	}
	report, runErr := bulk.Run(ctx, s.runner, "payroll-"+periodID, ids, func(ctx context.Context, employeeID string) (Entry, error) {
		saved, err := s.store.UpsertEntry(ctx, tenantID, pending[employeeID])
		if err != nil {
			return Entry{}, fmt.Errorf("store entry for %s: %w", employeeID, err)
		}
		return saved, nil
	})
	report.Failures = append(comp.Failures, report.Failures...)
	report.FailureCount = len(report.Failures)
	if s.metrics != nil {
		s.metrics.RecordRun("payroll", report.SuccessCount, report.FailureCount, report.SkippedCount, runErr != nil)
	}
	result := CalculationResult{Period: period, Report: report}
	if runErr != nil {
		return result, runErr
	}

	keep := make([]string, 0, len(report.Successes))
	for _, ok := range report.Successes {
		keep = append(keep, ok.EmployeeID)
	}
	removed, err := s.store.DeleteEntriesExcept(ctx, tenantID, periodID, keep)
	if err != nil {
		return result, fmt.Errorf("prune stale entries: %w", err)
	}

	if period.Status == PeriodStatusDraft {
		advanced, err := s.store.AdvancePeriodStatus(ctx, tenantID, periodID, PeriodStatusDraft, PeriodStatusProcessing, "")
		if err != nil {
			return result, err
		}
		result.Period = advanced
	}
	s.recordAudit(ctx, tenantID, AuditActionCalculate, period, result.Period)
	s.log.Info("payroll period calculated",
		zap.String("tenantId", tenantID),
		zap.String("periodId", periodID),
		zap.Int("entries", report.SuccessCount),
		zap.Int("failures", report.FailureCount),
		zap.Int("removed", removed),
	)
	return result, nil
}

// AdvancePeriod moves a period one status forward. Entries follow: PROCESSED
// approves them and PAID marks them paid.
func (s *Service) AdvancePeriod(ctx context.Context, tenantID, periodID, status string) (Period, error) {
	if !ValidPeriodStatus(status) {
		return Period{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	period, err := s.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return Period{}, err
	}
	if !CanAdvance(period.Status, status) {
		return Period{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, period.Status, status)
	}
	updated, err := s.store.AdvancePeriodStatus(ctx, tenantID, periodID, period.Status, status, EntryStatusFor(status))
	if err != nil {
		return Period{}, err
	}
	s.recordAudit(ctx, tenantID, AuditActionAdvance, period, updated)
	return updated, nil
}

func (s *Service) ListEntries(ctx context.Context, tenantID, periodID string) ([]Entry, error) {
	if _, err := s.store.GetPeriod(ctx, tenantID, periodID); err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, tenantID, periodID)
}

// Summary totals the stored entries of a period. AverageHours is the mean of
// regular hours per entry, zero for a period without entries.
func (s *Service) Summary(ctx context.Context, tenantID, periodID string) (Summary, error) {
	entries, err := s.ListEntries(ctx, tenantID, periodID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(entries), nil
}

func Summarize(entries []Entry) Summary {
	sum := Summary{
		TotalEmployees:  len(entries),
		TotalGrossPay:   decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalNetPay:     decimal.Zero,
		AverageHours:    decimal.Zero,
		OvertimeHours:   decimal.Zero,
	}
	regular := decimal.Zero
	for _, e := range entries {
		sum.TotalGrossPay = sum.TotalGrossPay.Add(e.GrossPay)
		sum.TotalDeductions = sum.TotalDeductions.Add(e.TotalDeductions)
		sum.TotalNetPay = sum.TotalNetPay.Add(e.NetPay)
		sum.OvertimeHours = sum.OvertimeHours.Add(e.OvertimeHours)
		regular = regular.Add(e.RegularHours)
	}
	if len(entries) > 0 {
		sum.AverageHours = regular.Div(decimal.NewFromInt(int64(len(entries)))).Round(2)
	}
	return sum
}

func (s *Service) recordAudit(ctx context.Context, tenantID, action string, before, after Period) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, tenantID, audit.Entry{
		Action:     action,
		EntityType: AuditEntityPeriod,
		EntityID:   after.ID,
		Before:     before,
		After:      after,
	}); err != nil {
		s.log.Warn("audit record failed", zap.String("periodId", after.ID), zap.Error(err))
	}
}

// abortsRun stops a calculation once the store is down or the period was
// locked underneath it.
func abortsRun(err error) bool {
	return db.IsUnavailable(err) || errors.Is(err, ErrPeriodLocked)
}

func failure(employeeID string, err error) bulk.Failure {
	return bulk.Failure{EmployeeID: employeeID, Code: ErrorCode(err), Reason: err.Error()}
}

func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSalary):
		return "invalid_salary"
	case errors.Is(err, ErrPeriodNotFound):
		return "period_not_found"
	case errors.Is(err, ErrEmployeeNotFound):
		return "employee_not_found"
	case errors.Is(err, ErrPeriodLocked):
		return "period_locked"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidTimeEntry), errors.Is(err, ErrInvalidPeriod):
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
