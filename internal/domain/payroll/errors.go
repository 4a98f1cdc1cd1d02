package payroll

import "errors"

var (
	ErrPeriodNotFound    = errors.New("payroll period not found")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrInvalidSalary     = errors.New("daily salary must be greater than zero")
	ErrInvalidTransition = errors.New("payroll period status can only move forward one step")
	ErrPeriodLocked      = errors.New("payroll period is already processed")
	ErrInvalidTimeEntry  = errors.New("invalid time entry")
	ErrInvalidPeriod     = errors.New("invalid payroll period")
)
