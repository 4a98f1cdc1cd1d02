package labor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
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

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	var emp Employee
	var daily, monthly *string
	var dailyEnc []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, hire_date, daily_salary::text, daily_salary_enc, monthly_salary::text, is_active
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&emp.ID, &emp.Name, &emp.HireDate, &daily, &dailyEnc, &monthly, &emp.Active)
	if err != nil {
		if db.IsNoRows(err) {
			return Employee{}, ErrEmployeeNotFound
		}
		return Employee{}, db.Classify(err)
	}

	emp.DailySalary, err = s.crypto.ResolveDecimal(dailyEnc, daily)
	if err != nil {
		return Employee{}, fmt.Errorf("%w: employee %s salary: %w", db.ErrPersistence, employeeID, err)
	}
	if monthly != nil {
		value, err := decimal.NewFromString(*monthly)
		if err != nil {
			return Employee{}, fmt.Errorf("%w: employee %s monthly salary: %w", db.ErrPersistence, employeeID, err)
		}
		emp.MonthlySalary = decimal.NewNullDecimal(value)
	}
	return emp, nil
}

func (s *Store) ListActiveEmployeeIDs(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id
    FROM employees
    WHERE tenant_id = $1 AND is_active
    ORDER BY hire_date, id
  `, tenantID)
	if err != nil {
		return nil, db.Classify(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, db.Classify(err)
	}
	return ids, nil
}

const calculationColumns = `id, employee_id, year, years_of_service, aguinaldo_days, aguinaldo_amount::text,
    vacation_days, vacation_amount::text, vacation_bonus::text, vacation_premium::text,
    savings_fund_amount::text, imss_employee::text, imss_employer::text, infonavit::text,
    created_at, updated_at`

func (s *Store) UpsertCalculation(ctx context.Context, tenantID string, calc Calculation) (Calculation, error) {
	a := calc.Amounts
	row := s.DB.QueryRow(ctx, `
    INSERT INTO labor_calculations (
      tenant_id, employee_id, year, years_of_service, aguinaldo_days, aguinaldo_amount,
      vacation_days, vacation_amount, vacation_bonus, vacation_premium,
      savings_fund_amount, imss_employee, imss_employer, infonavit
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    ON CONFLICT (employee_id, year) DO UPDATE SET
      years_of_service = EXCLUDED.years_of_service,
      aguinaldo_days = EXCLUDED.aguinaldo_days,
      aguinaldo_amount = EXCLUDED.aguinaldo_amount,
      vacation_days = EXCLUDED.vacation_days,
      vacation_amount = EXCLUDED.vacation_amount,
      vacation_bonus = EXCLUDED.vacation_bonus,
      vacation_premium = EXCLUDED.vacation_premium,
      savings_fund_amount = EXCLUDED.savings_fund_amount,
      imss_employee = EXCLUDED.imss_employee,
      imss_employer = EXCLUDED.imss_employer,
      infonavit = EXCLUDED.infonavit,
      updated_at = now()
    RETURNING `+calculationColumns,
		tenantID, calc.EmployeeID, calc.Year, a.YearsOfService, a.AguinaldoDays, a.AguinaldoAmount,
		a.VacationDays, a.VacationAmount, a.VacationBonus, a.VacationPremium,
		a.SavingsFundAmount, a.IMSSEmployee, a.IMSSEmployer, a.Infonavit,
	)
	saved, err := scanCalculation(row)
	if err != nil {
		return Calculation{}, db.Classify(err)
	}
	// monthly salary is an input, not a stored column
	saved.MonthlySalary = a.MonthlySalary
	return saved, nil
}

func (s *Store) ListCalculations(ctx context.Context, tenantID string, filter Filter) ([]Calculation, error) {
	query := `SELECT ` + calculationColumns + ` FROM labor_calculations WHERE tenant_id = $1`
	args := []any{tenantID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		query += fmt.Sprintf(" AND year = $%d", len(args))
	}
	query += " ORDER BY year DESC, employee_id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []Calculation
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, calc)
	}
	if err := rows.Err(); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, db.Classify(err)
	}
	return out, nil
}

func scanCalculation(row pgx.Row) (Calculation, error) {
	var calc Calculation
	var amounts [8]string
	err := row.Scan(
		&calc.ID, &calc.EmployeeID, &calc.Year, &calc.YearsOfService, &calc.AguinaldoDays, &amounts[0],
		&calc.VacationDays, &amounts[1], &amounts[2], &amounts[3],
		&amounts[4], &amounts[5], &amounts[6], &amounts[7],
		&calc.CreatedAt, &calc.UpdatedAt,
	)
	if err != nil {
		return Calculation{}, err
	}
	targets := []*decimal.Decimal{
		&calc.AguinaldoAmount, &calc.VacationAmount, &calc.VacationBonus, &calc.VacationPremium,
		&calc.SavingsFundAmount, &calc.IMSSEmployee, &calc.IMSSEmployer, &calc.Infonavit,
	}
	for i, target := range targets {
		if *target, err = decimal.NewFromString(amounts[i]); err != nil {
			return Calculation{}, fmt.Errorf("parse stored amount: %w", err)
		}
	}
	return calc, nil
}
