package rbac

import (
	"fmt"
	"strings"
)

type Department string

const (
	DepartmentCSE      Department = "CSE"
	DepartmentECE      Department = "ECE"
	DepartmentME       Department = "ME"
	DepartmentResearch Department = "RESEARCH"
	DepartmentAdmin    Department = "ADMIN"
)

type DepartmentInfo struct {
	Code Department `json:"code"`
	Name string     `json:"name"`
}

var departments = []DepartmentInfo{
	{Code: DepartmentCSE, Name: "Computer Science and Engineering"},
	{Code: DepartmentECE, Name: "Electronics and Communication Engineering"},
	{Code: DepartmentME, Name: "Mechanical Engineering"},
	{Code: DepartmentResearch, Name: "Research"},
	{Code: DepartmentAdmin, Name: "Administration"},
}

func (d Department) Valid() bool {
	for _, info := range departments {
		if info.Code == d {
			return true
		}
	}
	return false
}

func (d Department) DisplayName() string {
	for _, info := range departments {
		if info.Code == d {
			return info.Name
		}
	}
	return string(d)
}

// Departments lists the fixed department set.
func Departments() []DepartmentInfo {
	out := make([]DepartmentInfo, len(departments))
	copy(out, departments)
	return out
}

func ParseDepartment(s string) (Department, error) {
	d := Department(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown department %q", s)
	}
	return d, nil
}

func DepartmentStrings() []string {
	out := make([]string, len(departments))
	for i, info := range departments {
		out[i] = string(info.Code)
	}
	return out
}
