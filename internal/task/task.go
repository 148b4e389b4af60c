package task

import (
	"time"

	taskDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/task"
	"github.com/frahmantamala/archival-system/internal/rbac"
)

type Status string

const (
	StatusNotStarted      Status = "Not Started"
	StatusInProgress      Status = "In Progress"
	StatusPendingApproval Status = "Pending Approval"
	StatusDone            Status = "Done"
	StatusArchived        Status = "Archived"
)

var statuses = []Status{StatusNotStarted, StatusInProgress, StatusPendingApproval, StatusDone, StatusArchived}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

// editable reports whether an edit may set s directly. Done and Archived are
// reachable only through approve and archive.
func (s Status) editable() bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusPendingApproval
}

func StatusStrings() []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    Priority        `json:"priority"`
	Status      Status          `json:"status"`
	Department  rbac.Department `json:"department"`
	AssignedTo  *string         `json:"assigned_to,omitempty"`
	CreatedBy   string          `json:"created_by"`
	ApprovedBy  *string         `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	ArchivedAt  *time.Time      `json:"archived_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// VisibleTo applies the read rule: view_all_tasks, same department, creator
// or assignee.
func (t *Task) VisibleTo(p *rbac.Principal, guard *rbac.Guard) bool {
	if p == nil {
		return false
	}
	if guard.HasPermission(p, rbac.PermViewAllTasks) {
		return true
	}
	if t.Department == p.Department || t.CreatedBy == p.ID {
		return true
	}
	return t.AssignedTo != nil && *t.AssignedTo == p.ID
}

func (t *Task) CanBeApproved() bool {
	return t.Status == StatusPendingApproval
}

func (t *Task) CanBeArchived() bool {
	return t.Status == StatusDone
}

func (t *Task) Approve(approverID string, at time.Time) {
	t.Status = StatusDone
	t.ApprovedBy = &approverID
	t.ApprovedAt = &at
	t.UpdatedAt = at
}

func (t *Task) Archive(at time.Time) {
	t.Status = StatusArchived
	t.ArchivedAt = &at
	t.UpdatedAt = at
}

func NewTask(title, description string, priority Priority, department rbac.Department, assignedTo *string, createdBy string, now time.Time) *Task {
	return &Task{
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      StatusNotStarted,
		Department:  department,
		AssignedTo:  assignedTo,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ToDataModel(t *Task) *taskDatamodel.Task {
	return &taskDatamodel.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Department:  string(t.Department),
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		ApprovedBy:  t.ApprovedBy,
		ApprovedAt:  t.ApprovedAt,
		ArchivedAt:  t.ArchivedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromDataModel(t *taskDatamodel.Task) *Task {
	return &Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    Priority(t.Priority),
		Status:      Status(t.Status),
		Department:  rbac.Department(t.Department),
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		ApprovedBy:  t.ApprovedBy,
		ApprovedAt:  t.ApprovedAt,
		ArchivedAt:  t.ArchivedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
