package auth

import "context"

const (
	RoleEmployee = "Employee"
	RoleManager  = "Manager"
	RoleHR       = "HR"
	RolePayroll  = "Payroll"
)

const (
	PermLaborRead    = "labor.read"
	PermLaborRun     = "labor.run"
	PermPayrollRead  = "payroll.read"
	PermPayrollWrite = "payroll.write"
	PermPayrollRun   = "payroll.run"
)

var DefaultPermissions = []string{
	PermLaborRead,
	PermLaborRun,
	PermPayrollRead,
	PermPayrollWrite,
	PermPayrollRun,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLaborRead,
		PermPayrollRead,
	},
	RoleManager: {
		PermLaborRead,
		PermPayrollRead,
		PermPayrollWrite,
	},
	RoleHR: {
		PermLaborRead,
		PermLaborRun,
		PermPayrollRead,
		PermPayrollWrite,
		PermPayrollRun,
	},
	RolePayroll: {
		PermLaborRead,
		PermPayrollRead,
		PermPayrollWrite,
		PermPayrollRun,
	},
}

type UserContext struct {
	UserID   string
	TenantID string
	RoleID   string
	RoleName string
}

// StaticPermissions resolves permissions from RolePermissions using the role
// id as the role name. It backs deployments and tests without a roles table.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, roleID, permission string) (bool, error) {
	for _, perm := range RolePermissions[roleID] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}
