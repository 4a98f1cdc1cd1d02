package labor

import "github.com/shopspring/decimal"

const (
	AguinaldoDays = 15

	// days used to derive a monthly salary when the employee has none on file
	MonthDays = 30

	MinYear = 1900
	MaxYear = 9999

	AuditActionCompute = "labor.calculation.compute"
	AuditEntityType    = "labor_calculation"
)

var (
	VacationBonusRate = decimal.RequireFromString("0.25")
	SavingsFundRate   = decimal.RequireFromString("0.10")
	IMSSEmployeeRate  = decimal.RequireFromString("0.025")
	IMSSEmployerRate  = decimal.RequireFromString("0.105")
	InfonavitRate     = decimal.RequireFromString("0.05")
)
