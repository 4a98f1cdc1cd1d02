package labor

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// VacationDays returns the statutory paid vacation days for a given tenure.
// From 25 years on, two days are added per completed five-year block.
func VacationDays(years int) int {
	switch {
	case years < 0:
		return 0
	case years <= 1:
		return 6
	case years <= 4:
		return 6 + 2*(years-1)
	case years <= 9:
		return 14
	case years <= 14:
		return 16
	case years <= 19:
		return 18
	case years <= 24:
		return 20
	default:
		return 22 + 2*((years-25)/5)
	}
}

// Calculate derives every labor-law amount from tenure and salary. It is
// pure: equal inputs give equal outputs.
func Calculate(in Input) (Amounts, error) {
	if in.YearsOfService < 0 {
		return Amounts{}, fmt.Errorf("%w: %d", ErrInvalidTenure, in.YearsOfService)
	}
	if !in.DailySalary.IsPositive() {
		return Amounts{}, fmt.Errorf("%w: daily salary %s", ErrInvalidSalary, in.DailySalary)
	}
	monthly := in.DailySalary.Mul(decimal.NewFromInt(MonthDays))
	if in.MonthlySalary.Valid {
		monthly = in.MonthlySalary.Decimal
	}
	if !monthly.IsPositive() {
		return Amounts{}, fmt.Errorf("%w: monthly salary %s", ErrInvalidSalary, monthly)
	}

	vacationDays := VacationDays(in.YearsOfService)
	vacationAmount := in.DailySalary.Mul(decimal.NewFromInt(int64(vacationDays))).Round(2)
	bonus := vacationAmount.Mul(VacationBonusRate).Round(2)

	return Amounts{
		YearsOfService:    in.YearsOfService,
		AguinaldoDays:     AguinaldoDays,
		AguinaldoAmount:   in.DailySalary.Mul(decimal.NewFromInt(AguinaldoDays)).Round(2),
		VacationDays:      vacationDays,
		VacationAmount:    vacationAmount,
		VacationBonus:     bonus,
		VacationPremium:   bonus,
		MonthlySalary:     monthly.Round(2),
		SavingsFundAmount: monthly.Mul(SavingsFundRate).Round(2),
		IMSSEmployee:      monthly.Mul(IMSSEmployeeRate).Round(2),
		IMSSEmployer:      monthly.Mul(IMSSEmployerRate).Round(2),
		Infonavit:         monthly.Mul(InfonavitRate).Round(2),
	}, nil
}
