package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"nomina/internal/domain/bulk"
)

type Period struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	PayDate   time.Time `json:"payDate"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NewPeriod struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	PayDate   time.Time
	Type      string
}

type Employee struct {
	ID          string
	Name        string
	DailySalary decimal.Decimal

	// set when the stored salary could not be read
	salaryErr error
}

type TimeRecord struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employeeId"`
	Date          time.Time       `json:"date"`
	ClockIn       *time.Time      `json:"clockIn,omitempty"`
	ClockOut      *time.Time      `json:"clockOut,omitempty"`
	BreakStart    *time.Time      `json:"breakStart,omitempty"`
	BreakEnd      *time.Time      `json:"breakEnd,omitempty"`
	RegularHours  decimal.Decimal `json:"regularHours"`
	OvertimeHours decimal.Decimal `json:"overtimeHours"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewTimeRecord is a time entry as submitted. Hours left unset are derived
// from the clock times.
type NewTimeRecord struct {
	EmployeeID    string
	Date          time.Time
	ClockIn       *time.Time
	ClockOut      *time.Time
	BreakStart    *time.Time
	BreakEnd      *time.Time
	RegularHours  decimal.NullDecimal
	OvertimeHours decimal.NullDecimal
	Notes         string
}

type TimeFilter struct {
	EmployeeID string
	From       time.Time
	To         time.Time
}

type Hours struct {
	Regular  decimal.Decimal `json:"regular"`
	Overtime decimal.Decimal `json:"overtime"`
}

// Entry is one employee's pay for one period, unique per (EmployeeID,
// PeriodID). NegativeNet is set when deductions exceed gross pay; the net is
// kept as computed.
type Entry struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employeeId"`
	PeriodID        string          `json:"periodId"`
	RegularHours    decimal.Decimal `json:"regularHours"`
	OvertimeHours   decimal.Decimal `json:"overtimeHours"`
	DoubleTimeHours decimal.Decimal `json:"doubleTimeHours"`
	RegularPay      decimal.Decimal `json:"regularPay"`
	OvertimePay     decimal.Decimal `json:"overtimePay"`
	DoubleTimePay   decimal.Decimal `json:"doubleTimePay"`
	GrossPay        decimal.Decimal `json:"grossPay"`
	FederalTax      decimal.Decimal `json:"federalTax"`
	StateTax        decimal.Decimal `json:"stateTax"`
	SocialSecurity  decimal.Decimal `json:"socialSecurity"`
	Medicare        decimal.Decimal `json:"medicare"`
	OtherDeductions decimal.Decimal `json:"otherDeductions"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	NetPay          decimal.Decimal `json:"netPay"`
	Bonus           decimal.Decimal `json:"bonus"`
	Commission      decimal.Decimal `json:"commission"`
	Status          string          `json:"status"`
	NegativeNet     bool            `json:"negativeNet"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Computation is the unsaved outcome of computing a period. Employees that
// could not be computed are listed in Failures.
type Computation struct {
	Period   Period         `json:"period"`
	Entries  []Entry        `json:"entries"`
	Failures []bulk.Failure `json:"failures"`
}

type CalculationResult struct {
	Period Period             `json:"period"`
	Report bulk.Report[Entry] `json:"report"`
}

type Summary struct {
	TotalEmployees  int             `json:"totalEmployees"`
	TotalGrossPay   decimal.Decimal `json:"totalGrossPay"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	TotalNetPay     decimal.Decimal `json:"totalNetPay"`
	AverageHours    decimal.Decimal `json:"averageHours"`
	OvertimeHours   decimal.Decimal `json:"overtimeHours"`
}

// Rates holds the deduction stack applied to gross pay. OtherDeductions is a
// fixed amount per entry.
type Rates struct {
	FederalTax         decimal.Decimal
	StateTax           decimal.Decimal
	SocialSecurity     decimal.Decimal
	Medicare           decimal.Decimal
	OvertimeMultiplier decimal.Decimal
	OtherDeductions    decimal.Decimal
}

func DefaultRates(otherDeductions decimal.Decimal) Rates {
	return Rates{
		FederalTax:         FederalTaxRate,
		StateTax:           StateTaxRate,
		SocialSecurity:     SocialSecurityRate,
		Medicare:           MedicareRate,
		OvertimeMultiplier: OvertimeMultiplier,
		OtherDeductions:    otherDeductions,
	}
}
