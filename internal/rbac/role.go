package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RoleAdmin          Role = "admin"
	RoleDepartmentHead Role = "department_head"
	RoleFaculty        Role = "faculty"
	RoleStaff          Role = "staff"
)

type Permission string

const (
	PermManageUsers               Permission = "manage_users"
	PermManageRoles               Permission = "manage_roles"
	PermManageDepartments         Permission = "manage_departments"
	PermCreateTask                Permission = "create_task"
	PermEditTask                  Permission = "edit_task"
	PermDeleteTask                Permission = "delete_task"
	PermApproveTask               Permission = "approve_task"
	PermAccessArchives            Permission = "access_archives"
	PermViewAllTasks              Permission = "view_all_tasks"
	PermViewDepartmentTasks       Permission = "view_department_tasks"
	PermViewAssignedTasks         Permission = "view_assigned_tasks"
	PermGenerateReports           Permission = "generate_reports"
	PermGenerateDepartmentReports Permission = "generate_department_reports"
)

var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownPermission = errors.New("unknown permission")
)

var knownRoles = map[Role]struct{}{
	RoleSuperAdmin:     {},
	RoleAdmin:          {},
	RoleDepartmentHead: {},
	RoleFaculty:        {},
	RoleStaff:          {},
}

var knownPermissions = map[Permission]struct{}{
	PermManageUsers:               {},
	PermManageRoles:               {},
	PermManageDepartments:         {},
	PermCreateTask:                {},
	PermEditTask:                  {},
	PermDeleteTask:                {},
	PermApproveTask:               {},
	PermAccessArchives:            {},
	PermViewAllTasks:              {},
	PermViewDepartmentTasks:       {},
	PermViewAssignedTasks:         {},
	PermGenerateReports:           {},
	PermGenerateDepartmentReports: {},
}

func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (p Permission) Valid() bool {
	_, ok := knownPermissions[p]
	return ok
}

// AllRoles returns the fixed role set in name order.
func AllRoles() []Role {
	roles := make([]Role, 0, len(knownRoles))
	for r := range knownRoles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// AllPermissions returns the fixed permission set in name order.
func AllPermissions() []Permission {
	perms := make([]Permission, 0, len(knownPermissions))
	for p := range knownPermissions {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// ParseRoles keeps first-seen order and drops duplicates.
func ParseRoles(values []string) ([]Role, error) {
	seen := make(map[Role]struct{}, len(values))
	roles := make([]Role, 0, len(values))
	for _, v := range values {
		r, err := ParseRole(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	return roles, nil
}

func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.TrimSpace(s))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
	return p, nil
}

func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func PermissionStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
