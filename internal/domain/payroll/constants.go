package payroll

import "github.com/shopspring/decimal"

const (
	PeriodStatusDraft      = "DRAFT"
	PeriodStatusProcessing = "PROCESSING"
	PeriodStatusProcessed  = "PROCESSED"
	PeriodStatusPaid       = "PAID"

	PeriodTypeWeekly   = "WEEKLY"
	PeriodTypeBiweekly = "BIWEEKLY"
	PeriodTypeMonthly  = "MONTHLY"

	EntryStatusPending    = "PENDING"
	EntryStatusCalculated = "CALCULATED"
	EntryStatusApproved   = "APPROVED"
	EntryStatusPaid       = "PAID"

	TimeStatusPending = "PENDING"

	AuditActionCalculate = "payroll.period.calculate"
	AuditActionAdvance   = "payroll.period.status"
	AuditEntityPeriod    = "payroll_period"
)

// StandardDayHours is the paid day the hourly rate is derived from and the
// daily cap on regular hours.
const StandardDayHours = 8

var (
	FederalTaxRate         = decimal.RequireFromString("0.22")
	StateTaxRate           = decimal.RequireFromString("0.05")
	SocialSecurityRate     = decimal.RequireFromString("0.062")
	MedicareRate           = decimal.RequireFromString("0.0145")
	OvertimeMultiplier     = decimal.RequireFromString("1.5")
	DefaultOtherDeductions = decimal.NewFromInt(175)
)
