package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	cryptoutil "nomina/internal/platform/crypto"
	"nomina/internal/platform/db"
)

type Store struct {
	DB     *pgxpool.Pool
	crypto *cryptoutil.Service
}

func NewStore(pool *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: pool, crypto: crypto}
}

var _ StoreAPI = (*Store)(nil)

func (s *Store) ListActivePayrollEmployees(ctx context.Context, tenantID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, daily_salary::text, daily_salary_enc
    FROM employees
    WHERE tenant_id = $1 AND is_active
    ORDER BY name, id
  `, tenantID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var emp Employee
		var plain *string
		var sealed []byte
		if err := rows.Scan(&emp.ID, &emp.Name, &plain, &sealed); err != nil {
			return nil, db.Classify(err)
		}
		if emp.DailySalary, err = s.crypto.ResolveDecimal(sealed, plain); err != nil {
			emp.salaryErr = fmt.Errorf("%w: employee %s salary: %w", db.ErrPersistence, emp.ID, err)
		}
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

const periodColumns = `id, name, start_date, end_date, pay_date, status, type, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.PayDate, &p.Status, &p.Type, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CreatePeriod(ctx context.Context, tenantID string, period NewPeriod) (Period, error) {
	created, err := scanPeriod(s.DB.QueryRow(ctx, `
    INSERT INTO payroll_periods (tenant_id, name, start_date, end_date, pay_date, status, type)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING `+periodColumns,
		tenantID, period.Name, period.StartDate, period.EndDate, period.PayDate, PeriodStatusDraft, period.Type))
	if err != nil {
		return Period{}, db.Classify(err)
	}
	return created, nil
}

func (s *Store) GetPeriod(ctx context.Context, tenantID, periodID string) (Period, error) {
	p, err := scanPeriod(s.DB.QueryRow(ctx, `
    SELECT `+periodColumns+`
    FROM payroll_periods
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, periodID))
	if err != nil {
		if db.IsNoRows(err) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, db.Classify(err)
	}
	return p, nil
}

func (s *Store) ListPeriods(ctx context.Context, tenantID string) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+periodColumns+`
    FROM payroll_periods
    WHERE tenant_id = $1
    ORDER BY start_date DESC
  `, tenantID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, p)
	}
	return out, db.Classify(rows.Err())
}

func (s *Store) AdvancePeriodStatus(ctx context.Context, tenantID, periodID, from, to, entryStatus string) (Period, error) {
	var updated Period
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		var err error
		updated, err = scanPeriod(tx.QueryRow(ctx, `
      UPDATE payroll_periods
      SET status = $4, updated_at = now()
      WHERE tenant_id = $1 AND id = $2 AND status = $3
      RETURNING `+periodColumns,
			tenantID, periodID, from, to))
		if err != nil {
			return err
		}
		if entryStatus == "" {
			return nil
		}
		_, err = tx.Exec(ctx, `
      UPDATE payroll_entries
      SET status = $3, updated_at = now()
      WHERE tenant_id = $1 AND period_id = $2
    `, tenantID, periodID, entryStatus)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, fmt.Errorf("%w: period %s is no longer %s", ErrInvalidTransition, periodID, from)
		}
		return Period{}, db.Classify(err)
	}
	return updated, nil
}

const timeColumns = `id, employee_id, date, clock_in, clock_out, break_start, break_end,
    regular_hours::text, overtime_hours::text, status, COALESCE(notes, ''), created_at`

func scanTimeRecord(row pgx.Row) (TimeRecord, error) {
	var rec TimeRecord
	var regular, overtime string
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.ClockIn, &rec.ClockOut, &rec.BreakStart, &rec.BreakEnd,
		&regular, &overtime, &rec.Status, &rec.Notes, &rec.CreatedAt)
	if err != nil {
		return TimeRecord{}, err
	}
	if rec.RegularHours, err = decimal.NewFromString(regular); err != nil {
		return TimeRecord{}, err
	}
	if rec.OvertimeHours, err = decimal.NewFromString(overtime); err != nil {
		return TimeRecord{}, err
	}
	return rec, nil
}

func (s *Store) CreateTimeRecord(ctx context.Context, tenantID string, rec TimeRecord) (TimeRecord, error) {
	created, err := scanTimeRecord(s.DB.QueryRow(ctx, `
    INSERT INTO time_entries (tenant_id, employee_id, date, clock_in, clock_out, break_start, break_end,
      regular_hours, overtime_hours, status, notes)
    SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    WHERE EXISTS (SELECT 1 FROM employees WHERE tenant_id = $1 AND id = $2)
    RETURNING `+timeColumns,
		tenantID, rec.EmployeeID, dateOnly(rec.Date), rec.ClockIn, rec.ClockOut, rec.BreakStart, rec.BreakEnd,
		rec.RegularHours, rec.OvertimeHours, rec.Status, nullIfEmpty(rec.Notes)))
	if err != nil {
		var pgErr *pgconn.PgError
		if db.IsNoRows(err) || (errors.As(err, &pgErr) && pgErr.Code == "23503") {
			return TimeRecord{}, ErrEmployeeNotFound
		}
		return TimeRecord{}, db.Classify(err)
	}
	return created, nil
}

func (s *Store) ListTimeRecords(ctx context.Context, tenantID string, filter TimeFilter) ([]TimeRecord, error) {
	query := `SELECT ` + timeColumns + ` FROM time_entries WHERE tenant_id = $1`
	args := []any{tenantID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, dateOnly(filter.From))
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, dateOnly(filter.To))
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date DESC, employee_id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []TimeRecord
	for rows.Next() {
		rec, err := scanTimeRecord(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, db.Classify(err)
	}
	return out, nil
}

const entryColumns = `id, employee_id, period_id,
    regular_hours::text, overtime_hours::text, double_time_hours::text,
    regular_pay::text, overtime_pay::text, double_time_pay::text, gross_pay::text,
    federal_tax::text, state_tax::text, social_security::text, medicare::text, other_deductions::text,
    total_deductions::text, net_pay::text, bonus::text, commission::text,
    status, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var amounts [16]string
	err := row.Scan(&e.ID, &e.EmployeeID, &e.PeriodID,
		&amounts[0], &amounts[1], &amounts[2],
		&amounts[3], &amounts[4], &amounts[5], &amounts[6],
		&amounts[7], &amounts[8], &amounts[9], &amounts[10], &amounts[11],
		&amounts[12], &amounts[13], &amounts[14], &amounts[15],
		&e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, err
	}
	targets := [16]*decimal.Decimal{
		&e.RegularHours, &e.OvertimeHours, &e.DoubleTimeHours,
		&e.RegularPay, &e.OvertimePay, &e.DoubleTimePay, &e.GrossPay,
		&e.FederalTax, &e.StateTax, &e.SocialSecurity, &e.Medicare, &e.OtherDeductions,
		&e.TotalDeductions, &e.NetPay, &e.Bonus, &e.Commission,
	}
	for i, target := range targets {
		if *target, err = decimal.NewFromString(amounts[i]); err != nil {
			return Entry{}, fmt.Errorf("parse stored amount: %w", err)
		}
	}
	e.NegativeNet = e.NetPay.IsNegative()
	return e, nil
}

// lockOpenPeriod takes a share lock on the period row so a concurrent status
// change waits for the caller's transaction, then rejects locked periods.
func lockOpenPeriod(ctx context.Context, tx pgx.Tx, tenantID, periodID string) error {
	var status string
	err := tx.QueryRow(ctx, `
    SELECT status FROM payroll_periods
    WHERE tenant_id = $1 AND id = $2
    FOR SHARE
  `, tenantID, periodID).Scan(&status)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrPeriodNotFound
		}
		return err
	}
	if Locked(status) {
		return fmt.Errorf("%w: status %s", ErrPeriodLocked, status)
	}
	return nil
}

func (s *Store) UpsertEntry(ctx context.Context, tenantID string, entry Entry) (Entry, error) {
	var saved Entry
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		if err := lockOpenPeriod(ctx, tx, tenantID, entry.PeriodID); err != nil {
			return err
		}
		var err error
		saved, err = scanEntry(tx.QueryRow(ctx, `
    INSERT INTO payroll_entries (
      tenant_id, employee_id, period_id,
      regular_hours, overtime_hours, double_time_hours,
      regular_pay, overtime_pay, double_time_pay, gross_pay,
      federal_tax, state_tax, social_security, medicare, other_deductions,
      total_deductions, net_pay, bonus, commission, status
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    ON CONFLICT (employee_id, period_id) DO UPDATE SET
      regular_hours = EXCLUDED.regular_hours,
      overtime_hours = EXCLUDED.overtime_hours,
      double_time_hours = EXCLUDED.double_time_hours,
      regular_pay = EXCLUDED.regular_pay,
      overtime_pay = EXCLUDED.overtime_pay,
      double_time_pay = EXCLUDED.double_time_pay,
      gross_pay = EXCLUDED.gross_pay,
      federal_tax = EXCLUDED.federal_tax,
      state_tax = EXCLUDED.state_tax,
      social_security = EXCLUDED.social_security,
      medicare = EXCLUDED.medicare,
      other_deductions = EXCLUDED.other_deductions,
      total_deductions = EXCLUDED.total_deductions,
      net_pay = EXCLUDED.net_pay,
      bonus = EXCLUDED.bonus,
      commission = EXCLUDED.commission,
      status = EXCLUDED.status,
      updated_at = now()
    RETURNING `+entryColumns,
		tenantID, entry.EmployeeID, entry.PeriodID,
		entry.RegularHours, entry.OvertimeHours, entry.DoubleTimeHours,
		entry.RegularPay, entry.OvertimePay, entry.DoubleTimePay, entry.GrossPay,
		entry.FederalTax, entry.StateTax, entry.SocialSecurity, entry.Medicare, entry.OtherDeductions,
		entry.TotalDeductions, entry.NetPay, entry.Bonus, entry.Commission, entry.Status))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrPeriodLocked) || errors.Is(err, ErrPeriodNotFound) {
			return Entry{}, err
		}
		return Entry{}, db.Classify(err)
	}
	return saved, nil
}

// DeleteEntriesExcept removes the period's entries whose employee is not in
// keep. It refuses to touch a locked period.
func (s *Store) DeleteEntriesExcept(ctx context.Context, tenantID, periodID string, keep []string) (int, error) {
	var removed int
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		if err := lockOpenPeriod(ctx, tx, tenantID, periodID); err != nil {
			return err
		}
		if keep == nil {
			keep = []string{}
		}
		tag, err := tx.Exec(ctx, `
      DELETE FROM payroll_entries
      WHERE tenant_id = $1 AND period_id = $2 AND NOT (employee_id::text = ANY($3::text[]))
    `, tenantID, periodID, keep)
		if err != nil {
			return err
		}
		removed = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPeriodLocked) || errors.Is(err, ErrPeriodNotFound) {
			return 0, err
		}
		return 0, db.Classify(err)
	}
	return removed, nil
}

func (s *Store) ListEntries(ctx context.Context, tenantID, periodID string) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+entryColumns+`
    FROM payroll_entries
    WHERE tenant_id = $1 AND period_id = $2
    ORDER BY employee_id
  `, tenantID, periodID)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, e)
	}
	return out, db.Classify(rows.Err())
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// dateOnly drops the clock so DATE columns compare by calendar day.
func dateOnly(t time.Time) time.Time {
	return civilDate(t)
}
