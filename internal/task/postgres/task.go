package postgres

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	taskDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/task"
	"github.com/frahmantamala/archival-system/internal/task"
	"gorm.io/gorm"
)

type TaskRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewTaskRepository(db *gorm.DB, timeout time.Duration) *TaskRepository {
	return &TaskRepository{db: db, timeout: timeout}
}

var _ task.RepositoryAPI = (*TaskRepository)(nil)

func (r *TaskRepository) Insert(ctx context.Context, t *taskDatamodel.Task) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return internal.NewStoreUnavailableError("insert task", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*taskDatamodel.Task, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var t taskDatamodel.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTaskNotFound
		}
		return nil, internal.NewStoreUnavailableError("find task", err)
	}
	return &t, nil
}

func (r *TaskRepository) UpdateFields(ctx context.Context, id string, t *taskDatamodel.Task, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	t.ID = id
	res := r.db.WithContext(ctx).
		Model(&taskDatamodel.Task{ID: id}).
		Select(columns).
		Updates(t)
	if res.Error != nil {
		return internal.NewStoreUnavailableError("update task", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, expected string, t *taskDatamodel.Task, columns ...string) (bool, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	t.ID = id
	res := r.db.WithContext(ctx).
		Model(&taskDatamodel.Task{ID: id}).
		Where("status = ?", expected).
		Select(columns).
		Updates(t)
	if res.Error != nil {
		return false, internal.NewStoreUnavailableError("transition task", res.Error)
	}
	return res.RowsAffected > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *TaskRepository) Find(ctx context.Context, filter task.Filter) ([]*taskDatamodel.Task, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&taskDatamodel.Task{})
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	} else if !filter.IncludeArchived {
		q = q.Where("status <> ?", string(task.StatusArchived))
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.Query != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(filter.Query)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if v := filter.Visibility; v != nil {
		q = q.Where("(department = ? OR created_by = ? OR assigned_to = ?)", v.Department, v.UserID, v.UserID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var tasks []*taskDatamodel.Task
	if err := q.Order("created_at DESC").Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, internal.NewStoreUnavailableError("find tasks", err)
	}
	return tasks, nil
}
