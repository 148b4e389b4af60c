package report

import (
	"context"
	"time"
)

// SummaryQuery selects task_summary rows. An empty Department means every
// department.
type SummaryQuery struct {
	Department string
	Status     string
	Priority   string
	From       *time.Time
	To         *time.Time
}

type SummaryRow struct {
	ID         string    `db:"id"`
	Title      string    `db:"title"`
	Status     string    `db:"status"`
	Priority   string    `db:"priority"`
	Department string    `db:"department"`
	AssignedTo *string   `db:"assigned_to"`
	CreatedBy  string    `db:"created_by"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r SummaryRow) column(name string) interface{} {
	switch name {
	case "id":
		return r.ID
	case "title":
		return r.Title
	case "status":
		return r.Status
	case "priority":
		return r.Priority
	case "department":
		return r.Department
	case "assigned_to":
		if r.AssignedTo == nil {
			return nil
		}
		return *r.AssignedTo
	case "created_by":
		return r.CreatedBy
	case "created_at":
		return r.CreatedAt.UTC().Format(time.RFC3339)
	case "updated_at":
		return r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return nil
}

type PerformanceStats struct {
	ByStatus   map[string]int
	ByPriority map[string]int
	// ApprovalDurations holds approved_at minus created_at for every approved
	// task in range.
	ApprovalDurations []time.Duration
}

// StatsReader runs the aggregation queries behind the report kinds.
type StatsReader interface {
	TaskSummary(ctx context.Context, q SummaryQuery) ([]SummaryRow, error)
	DepartmentPerformance(ctx context.Context, department string, from, to time.Time) (*PerformanceStats, error)
}
