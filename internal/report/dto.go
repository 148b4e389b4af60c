package report

import "time"

type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

type Filters struct {
	Department string     `json:"department,omitempty" validate:"omitempty,department"`
	Status     string     `json:"status,omitempty"`
	Priority   string     `json:"priority,omitempty"`
	DateRange  *DateRange `json:"date_range,omitempty"`
}

func (f Filters) toMap() map[string]interface{} {
	m := map[string]interface{}{}
	if f.Department != "" {
		m["department"] = f.Department
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.Priority != "" {
		m["priority"] = f.Priority
	}
	if f.DateRange != nil {
		dr := map[string]interface{}{}
		if f.DateRange.Start != nil {
			dr["start"] = f.DateRange.Start.UTC().Format(time.RFC3339)
		}
		if f.DateRange.End != nil {
			dr["end"] = f.DateRange.End.UTC().Format(time.RFC3339)
		}
		m["date_range"] = dr
	}
	return m
}

type GenerateReportDTO struct {
	Template string  `json:"template" validate:"required"`
	Title    string  `json:"title,omitempty" validate:"max=200"`
	Filters  Filters `json:"filters"`
}

type CreateTemplateDTO struct {
	Name        string                 `json:"name" validate:"required,max=120"`
	Description string                 `json:"description" validate:"max=1000"`
	Type        string                 `json:"type" validate:"required"`
	Fields      []string               `json:"fields"`
	Layout      map[string]interface{} `json:"layout"`
}

type ReportsResponse struct {
	Reports []*Report `json:"reports"`
	Count   int       `json:"count"`
}

type TemplatesResponse struct {
	Templates []Template `json:"templates"`
}

// TaskSummary is the task_summary payload.
type TaskSummary struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
	Total   int                      `json:"total"`
}

// DepartmentPerformance is the department_performance payload.
type DepartmentPerformance struct {
	Department       string         `json:"department"`
	DateRange        DateRange      `json:"date_range"`
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	ByPriority       map[string]int `json:"by_priority"`
	Completed        int            `json:"completed"`
	CompletionRate   float64        `json:"completion_rate"`
	AvgApprovalHours float64        `json:"avg_approval_hours"`
}

// Export is a rendered report file.
type Export struct {
	ContentType string
	Filename    string
	Body        []byte
}
