package task

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/core/common/validation"
	taskDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/task"
	"github.com/frahmantamala/archival-system/internal/core/events"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/user"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Visibility restricts a listing to tasks of Department, or created by or
// assigned to UserID.
type Visibility struct {
	Department string
	UserID     string
}

type Filter struct {
	Department      string
	Status          string
	Priority        string
	AssignedTo      string
	CreatedBy       string
	Query           string
	IncludeArchived bool
	Visibility      *Visibility
	Limit           int
	Offset          int
}

type RepositoryAPI interface {
	Insert(ctx context.Context, t *taskDatamodel.Task) error
	FindByID(ctx context.Context, id string) (*taskDatamodel.Task, error)
	UpdateFields(ctx context.Context, id string, t *taskDatamodel.Task, columns ...string) error
	// UpdateStatus writes columns only while the row still has status
	// expected. applied is false when the row moved on.
	UpdateStatus(ctx context.Context, id string, expected string, t *taskDatamodel.Task, columns ...string) (applied bool, err error)
	Find(ctx context.Context, filter Filter) ([]*taskDatamodel.Task, error)
}

type PrincipalDirectory interface {
	Lookup(ctx context.Context, id string) (*user.User, error)
}

type Service struct {
	repo          RepositoryAPI
	guard         *rbac.Guard
	directory     PrincipalDirectory
	publisher     events.Publisher
	logger        *slog.Logger
	uniformDenial bool
	now           func() time.Time
}

func NewService(repo RepositoryAPI, guard *rbac.Guard, directory PrincipalDirectory, publisher events.Publisher, logger *slog.Logger, uniformDenial bool) *Service {
	return &Service{
		repo:          repo,
		guard:         guard,
		directory:     directory,
		publisher:     publisher,
		logger:        logger,
		uniformDenial: uniformDenial,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateTask(ctx context.Context, actor *rbac.Principal, dto CreateTaskDTO) (*Task, error) {
	if !s.guard.HasPermission(actor, rbac.PermCreateTask) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermCreateTask))
	}

	dto.Title = strings.TrimSpace(dto.Title)
	dto.Department = strings.ToUpper(strings.TrimSpace(dto.Department))
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	priority := PriorityMedium
	if dto.Priority != "" {
		priority = Priority(dto.Priority)
		if !priority.Valid() {
			return nil, internal.NewValidationFieldError("priority", "priority must be one of Low, Medium, High", internal.ErrCodeInvalidPriority)
		}
	}

	department := actor.Department
	if dto.Department != "" {
		department = rbac.Department(dto.Department)
		if !s.guard.CanActOnResource(actor, rbac.PermCreateTask, department) {
			return nil, internal.NewPermissionDeniedError(string(rbac.PermViewAllTasks))
		}
	}

	assignee, err := s.resolveAssignee(ctx, dto.AssignedTo)
	if err != nil {
		return nil, err
	}

	t := NewTask(dto.Title, dto.Description, priority, department, assignee, actor.ID, s.now())
	t.ID = uuid.New().String()

	if err := s.repo.Insert(ctx, ToDataModel(t)); err != nil {
		s.logger.Error("failed to create task", "user_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("task created", "task_id", t.ID, "user_id", actor.ID, "department", t.Department)
	s.publish(ctx, events.NewTaskEvent(events.EventTypeTaskCreated, t.ID, actor.ID, string(t.Department), "", string(t.Status)))
	return t, nil
}

// resolveAssignee returns nil for an absent or blank id; otherwise the id
// must name an active principal.
func (s *Service) resolveAssignee(ctx context.Context, id *string) (*string, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*id)
	u, err := s.directory.Lookup(ctx, trimmed)
	if err != nil {
		if user.IsNotFound(err) {
			return nil, internal.NewValidationFieldError("assigned_to", "assignee does not exist", internal.ErrCodeInvalidAssignee)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, internal.NewValidationFieldError("assigned_to", "assignee is inactive", internal.ErrCodeInvalidAssignee)
	}
	return &trimmed, nil
}

func (s *Service) GetTask(ctx context.Context, actor *rbac.Principal, id string) (*Task, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t := FromDataModel(record)
	if !t.VisibleTo(actor, s.guard) {
		return nil, s.denied(rbac.PermViewAllTasks)
	}
	return t, nil
}

// denied hides the existence of an invisible resource when uniform denial is
// on.
func (s *Service) denied(permission rbac.Permission) error {
	if s.uniformDenial {
		return internal.ErrTaskNotFound
	}
	return internal.NewPermissionDeniedError(string(permission))
}

func (s *Service) UpdateTask(ctx context.Context, actor *rbac.Principal, id string, dto UpdateTaskDTO) (*Task, error) {
	if !s.guard.HasPermission(actor, rbac.PermEditTask) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermEditTask))
	}
	if dto.Title != nil {
		trimmed := strings.TrimSpace(*dto.Title)
		dto.Title = &trimmed
	}
	if dto.Department != nil {
		upper := strings.ToUpper(strings.TrimSpace(*dto.Department))
		dto.Department = &upper
	}
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	t, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusArchived {
		return nil, internal.NewInvalidTransitionError(string(t.Status), "edit")
	}

	from := t.Status
	columns := []string{"updated_at"}

	if dto.Title != nil {
		t.Title = *dto.Title
		columns = append(columns, "title")
	}
	if dto.Description != nil {
		t.Description = *dto.Description
		columns = append(columns, "description")
	}
	if dto.Priority != nil {
		p := Priority(*dto.Priority)
		if !p.Valid() {
			return nil, internal.NewValidationFieldError("priority", "priority must be one of Low, Medium, High", internal.ErrCodeInvalidPriority)
		}
		t.Priority = p
		columns = append(columns, "priority")
	}
	if dto.Status != nil && Status(*dto.Status) != t.Status {
		next := Status(*dto.Status)
		if !next.Valid() {
			return nil, internal.NewValidationFieldError("status", "status must be one of "+strings.Join(StatusStrings(), ", "), internal.ErrCodeInvalidStatus)
		}
		if !next.editable() {
			return nil, internal.NewInvalidTransitionError(string(t.Status), string(next))
		}
		if t.Status == StatusDone && !s.guard.HasPermission(actor, rbac.PermAccessArchives) {
			return nil, internal.NewPermissionDeniedError(string(rbac.PermAccessArchives))
		}
		t.Status = next
		columns = append(columns, "status")
	}
	if dto.Department != nil && rbac.Department(*dto.Department) != t.Department {
		target := rbac.Department(*dto.Department)
		if !s.guard.CanActOnResource(actor, rbac.PermEditTask, target) {
			return nil, internal.NewPermissionDeniedError(string(rbac.PermViewAllTasks))
		}
		t.Department = target
		columns = append(columns, "department")
	}
	if dto.AssignedTo != nil {
		assignee, err := s.resolveAssignee(ctx, dto.AssignedTo)
		if err != nil {
			return nil, err
		}
		t.AssignedTo = assignee
		columns = append(columns, "assigned_to")
	}
	t.UpdatedAt = s.now()

	if err := s.repo.UpdateFields(ctx, t.ID, ToDataModel(t), columns...); err != nil {
		s.logger.Error("failed to update task", "task_id", t.ID, "user_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("task updated", "task_id", t.ID, "user_id", actor.ID, "fields", columns[1:])
	s.publish(ctx, events.NewTaskEvent(events.EventTypeTaskUpdated, t.ID, actor.ID, string(t.Department), string(from), string(t.Status)))
	return t, nil
}

func (s *Service) ApproveTask(ctx context.Context, actor *rbac.Principal, id string) (*Task, error) {
	if !s.guard.HasPermission(actor, rbac.PermApproveTask) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermApproveTask))
	}

	t, err := s.loadForTransition(ctx, actor, id, rbac.PermApproveTask)
	if err != nil {
		return nil, err
	}
	if !t.CanBeApproved() {
		return nil, internal.NewInvalidTransitionError(string(t.Status), string(StatusDone))
	}

	from := t.Status
	t.Approve(actor.ID, s.now())
	if err := s.transition(ctx, t, from, "status", "approved_by", "approved_at", "updated_at"); err != nil {
		return nil, err
	}

	s.logger.Info("task approved", "task_id", t.ID, "user_id", actor.ID)
	s.publish(ctx, events.NewTaskEvent(events.EventTypeTaskApproved, t.ID, actor.ID, string(t.Department), string(from), string(t.Status)))
	return t, nil
}

func (s *Service) ArchiveTask(ctx context.Context, actor *rbac.Principal, id string) (*Task, error) {
	if !s.guard.HasPermission(actor, rbac.PermAccessArchives) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermAccessArchives))
	}

	t, err := s.loadForTransition(ctx, actor, id, rbac.PermAccessArchives)
	if err != nil {
		return nil, err
	}
	if !t.CanBeArchived() {
		return nil, internal.NewInvalidTransitionError(string(t.Status), string(StatusArchived))
	}

	from := t.Status
	t.Archive(s.now())
	if err := s.transition(ctx, t, from, "status", "archived_at", "updated_at"); err != nil {
		return nil, err
	}

	s.logger.Info("task archived", "task_id", t.ID, "user_id", actor.ID)
	s.publish(ctx, events.NewTaskEvent(events.EventTypeTaskArchived, t.ID, actor.ID, string(t.Department), string(from), string(t.Status)))
	return t, nil
}

// loadForTransition applies read visibility and then department scope for
// the guarded action.
func (s *Service) loadForTransition(ctx context.Context, actor *rbac.Principal, id string, permission rbac.Permission) (*Task, error) {
	t, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !s.guard.CanActOnResource(actor, permission, t.Department) {
		return nil, internal.NewPermissionDeniedError(string(permission))
	}
	return t, nil
}

func (s *Service) transition(ctx context.Context, t *Task, from Status, columns ...string) error {
	applied, err := s.repo.UpdateStatus(ctx, t.ID, string(from), ToDataModel(t), columns...)
	if err != nil {
		s.logger.Error("failed to transition task", "task_id", t.ID, "from", from, "to", t.Status, "error", err)
		return err
	}
	if !applied {
		s.logger.Warn("task transition lost a race", "task_id", t.ID, "from", from, "to", t.Status)
		return internal.NewInvalidTransitionError(string(from), string(t.Status))
	}
	return nil
}

func (s *Service) ListTasks(ctx context.Context, actor *rbac.Principal, q ListTasksQuery) ([]*Task, error) {
	if actor == nil {
		return nil, internal.ErrInvalidToken
	}

	filter := Filter{
		Department:      strings.ToUpper(strings.TrimSpace(q.Department)),
		Status:          strings.TrimSpace(q.Status),
		Priority:        strings.TrimSpace(q.Priority),
		AssignedTo:      strings.TrimSpace(q.AssignedTo),
		CreatedBy:       strings.TrimSpace(q.CreatedBy),
		Query:           strings.TrimSpace(q.Query),
		IncludeArchived: q.IncludeArchived,
		Limit:           q.Limit,
		Offset:          q.Offset,
	}

	v := validation.NewValidator()
	v.Field("department", filter.Department).OneOf(internal.ErrCodeInvalidDepartment, rbac.DepartmentStrings()...)
	v.Field("status", filter.Status).OneOf(internal.ErrCodeInvalidStatus, StatusStrings()...)
	v.Field("priority", filter.Priority).OneOf(internal.ErrCodeInvalidPriority, string(PriorityLow), string(PriorityMedium), string(PriorityHigh))
	v.Field("offset", filter.Offset).Custom(func(value interface{}) *internal.AppError {
		if value.(int) < 0 {
			return internal.NewValidationFieldError("offset", "offset must not be negative", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	if err := v.Validate(); err != nil {
		return nil, err
	}

	if filter.IncludeArchived || Status(filter.Status) == StatusArchived {
		if !s.guard.HasPermission(actor, rbac.PermAccessArchives) {
			return nil, internal.NewPermissionDeniedError(string(rbac.PermAccessArchives))
		}
	}

	if !s.guard.HasPermission(actor, rbac.PermViewAllTasks) {
		if filter.Department != "" && rbac.Department(filter.Department) != actor.Department {
			s.logger.Warn("cross-department listing denied", "user_id", actor.ID, "department", filter.Department)
			return nil, internal.NewPermissionDeniedError(string(rbac.PermViewAllTasks))
		}
		filter.Visibility = &Visibility{Department: string(actor.Department), UserID: actor.ID}
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	records, err := s.repo.Find(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list tasks", "user_id", actor.ID, "error", err)
		return nil, err
	}

	tasks := make([]*Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, FromDataModel(r))
	}
	return tasks, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

// IsNotFound reports whether err is the task store's not-found result.
func IsNotFound(err error) bool {
	return stdErrors.Is(err, internal.ErrTaskNotFound)
}
