package labor

import "errors"

var (
	ErrInvalidSalary    = errors.New("salary must be greater than zero")
	ErrInvalidTenure    = errors.New("years of service must not be negative")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidYear      = errors.New("year out of range")
)
