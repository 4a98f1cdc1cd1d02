package labor

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	HireDate      time.Time           `json:"hireDate"`
	DailySalary   decimal.Decimal     `json:"dailySalary"`
	MonthlySalary decimal.NullDecimal `json:"monthlySalary"`
	Active        bool                `json:"active"`
}

type Input struct {
	YearsOfService int
	DailySalary    decimal.Decimal
	// MonthlySalary falls back to DailySalary x 30 when not valid.
	MonthlySalary decimal.NullDecimal
}

// Amounts is the full result of one labor-law calculation. VacationPremium
// always equals VacationBonus; both are stored.
type Amounts struct {
	YearsOfService    int             `json:"yearsOfService"`
	AguinaldoDays     int             `json:"aguinaldoDays"`
	AguinaldoAmount   decimal.Decimal `json:"aguinaldoAmount"`
	VacationDays      int             `json:"vacationDays"`
	VacationAmount    decimal.Decimal `json:"vacationAmount"`
	VacationBonus     decimal.Decimal `json:"vacationBonus"`
	VacationPremium   decimal.Decimal `json:"vacationPremium"`
	MonthlySalary     decimal.Decimal `json:"monthlySalary"`
	SavingsFundAmount decimal.Decimal `json:"savingsFundAmount"`
	IMSSEmployee      decimal.Decimal `json:"imssEmployee"`
	IMSSEmployer      decimal.Decimal `json:"imssEmployer"`
	Infonavit         decimal.Decimal `json:"infonavit"`
}

// Calculation is the stored record, unique per (EmployeeID, Year).
type Calculation struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	Year       int    `json:"year"`
	Amounts
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Filter struct {
	EmployeeID string
	Year       int
}

type BulkRequest struct {
	Year        int      `json:"year"`
	EmployeeIDs []string `json:"employeeIds,omitempty"`
}
