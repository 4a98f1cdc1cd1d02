package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Calculate prices aggregated hours for one employee. Each amount is rounded
// to cents where it is computed. Net pay is not clamped.
func Calculate(hours Hours, dailySalary decimal.Decimal, rates Rates) (Entry, error) {
	if !dailySalary.IsPositive() {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidSalary, dailySalary)
	}

	hourly := dailySalary.Div(dayHours)
	regularPay := hours.Regular.Mul(hourly).Round(2)
	overtimePay := hours.Overtime.Mul(hourly).Mul(rates.OvertimeMultiplier).Round(2)
	gross := regularPay.Add(overtimePay)

	federal := gross.Mul(rates.FederalTax).Round(2)
	state := gross.Mul(rates.StateTax).Round(2)
	social := gross.Mul(rates.SocialSecurity).Round(2)
	medicare := gross.Mul(rates.Medicare).Round(2)
	other := rates.OtherDeductions.Round(2)
	total := decimal.Sum(federal, state, social, medicare, other)
	net := gross.Sub(total)

	return Entry{
		RegularHours:    hours.Regular,
		OvertimeHours:   hours.Overtime,
		DoubleTimeHours: decimal.Zero,
		RegularPay:      regularPay,
		OvertimePay:     overtimePay,
		DoubleTimePay:   decimal.Zero,
		GrossPay:        gross,
		FederalTax:      federal,
		StateTax:        state,
		SocialSecurity:  social,
		Medicare:        medicare,
		OtherDeductions: other,
		TotalDeductions: total,
		NetPay:          net,
		Bonus:           decimal.Zero,
		Commission:      decimal.Zero,
		Status:          EntryStatusCalculated,
		NegativeNet:     net.IsNegative(),
	}, nil
}
