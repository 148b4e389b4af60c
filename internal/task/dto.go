package task

type CreateTaskDTO struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Priority    string  `json:"priority,omitempty"`
	Department  string  `json:"department,omitempty" validate:"omitempty,department"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
}

// UpdateTaskDTO carries a partial edit. Nil fields are left untouched; an
// empty assigned_to clears the assignee.
type UpdateTaskDTO struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	Department  *string `json:"department,omitempty" validate:"omitempty,department"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
}

type ListTasksQuery struct {
	Department      string
	Status          string
	Priority        string
	AssignedTo      string
	CreatedBy       string
	Query           string
	IncludeArchived bool
	Limit           int
	Offset          int
}

type TasksResponse struct {
	Tasks  []*Task `json:"tasks"`
	Count  int     `json:"count"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
