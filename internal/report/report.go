package report

import (
	"time"

	reportDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/report"
	"github.com/frahmantamala/archival-system/internal/rbac"
)

// Kind names a built-in report generator. Custom templates are layered on
// one of these.
type Kind string

const (
	KindTaskSummary           Kind = "task_summary"
	KindDepartmentPerformance Kind = "department_performance"
)

func (k Kind) Valid() bool {
	return k == KindTaskSummary || k == KindDepartmentPerformance
}

// SummaryColumns is the column order of a task_summary row.
var SummaryColumns = []string{
	"id", "title", "status", "priority", "department",
	"assigned_to", "created_by", "created_at", "updated_at",
}

type Report struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Template    string                 `json:"template"`
	Filters     map[string]interface{} `json:"filters"`
	Data        interface{}            `json:"data"`
	Department  *rbac.Department       `json:"department"`
	GeneratedBy string                 `json:"generated_by"`
	CreatedAt   time.Time              `json:"created_at"`
}

// VisibleTo reports whether p may read r: view_all_tasks, the report's
// department, or its generator.
func (r *Report) VisibleTo(p *rbac.Principal, guard *rbac.Guard) bool {
	if p == nil {
		return false
	}
	if guard.HasPermission(p, rbac.PermViewAllTasks) || r.GeneratedBy == p.ID {
		return true
	}
	return r.Department != nil && *r.Department == p.Department
}

type Template struct {
	ID          string                 `json:"id,omitempty"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Type        Kind                   `json:"type"`
	Fields      []string               `json:"fields"`
	Layout      map[string]interface{} `json:"layout,omitempty"`
	BuiltIn     bool                   `json:"built_in"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	CreatedAt   *time.Time             `json:"created_at,omitempty"`
}

var builtinTemplates = []Template{
	{
		Name:        string(KindTaskSummary),
		Description: "Task listing with status and priority",
		Type:        KindTaskSummary,
		Fields:      SummaryColumns,
		BuiltIn:     true,
	},
	{
		Name:        string(KindDepartmentPerformance),
		Description: "Completion and approval figures for one department",
		Type:        KindDepartmentPerformance,
		Fields:      []string{"total", "by_status", "by_priority", "completed", "completion_rate", "avg_approval_hours"},
		BuiltIn:     true,
	},
}

func BuiltinTemplates() []Template {
	out := make([]Template, len(builtinTemplates))
	copy(out, builtinTemplates)
	return out
}

func builtinTemplate(name string) (Template, bool) {
	for _, t := range builtinTemplates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

func ToDataModel(r *Report) *reportDatamodel.Report {
	var dept *string
	if r.Department != nil {
		d := string(*r.Department)
		dept = &d
	}
	return &reportDatamodel.Report{
		ID:          r.ID,
		Title:       r.Title,
		Template:    r.Template,
		Filters:     r.Filters,
		Data:        r.Data,
		Department:  dept,
		GeneratedBy: r.GeneratedBy,
		CreatedAt:   r.CreatedAt,
	}
}

func FromDataModel(r *reportDatamodel.Report) *Report {
	var dept *rbac.Department
	if r.Department != nil {
		d := rbac.Department(*r.Department)
		dept = &d
	}
	return &Report{
		ID:          r.ID,
		Title:       r.Title,
		Template:    r.Template,
		Filters:     r.Filters,
		Data:        r.Data,
		Department:  dept,
		GeneratedBy: r.GeneratedBy,
		CreatedAt:   r.CreatedAt,
	}
}

func TemplateToDataModel(t *Template) *reportDatamodel.ReportTemplate {
	var createdAt time.Time
	if t.CreatedAt != nil {
		createdAt = *t.CreatedAt
	}
	return &reportDatamodel.ReportTemplate{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Type:        string(t.Type),
		Fields:      t.Fields,
		Layout:      t.Layout,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   createdAt,
	}
}

func TemplateFromDataModel(t *reportDatamodel.ReportTemplate) *Template {
	createdAt := t.CreatedAt
	return &Template{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Type:        Kind(t.Type),
		Fields:      t.Fields,
		Layout:      t.Layout,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   &createdAt,
	}
}
