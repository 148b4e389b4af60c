package postgres

import (
	"context"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/comment"
	commentDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/comment"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewCommentRepository(db *gorm.DB, timeout time.Duration) *CommentRepository {
	return &CommentRepository{db: db, timeout: timeout}
}

var _ comment.RepositoryAPI = (*CommentRepository)(nil)

func (r *CommentRepository) Insert(ctx context.Context, c *commentDatamodel.Comment) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return internal.NewStoreUnavailableError("insert comment", err)
	}
	return nil
}

func (r *CommentRepository) FindByTask(ctx context.Context, taskID string) ([]*commentDatamodel.Comment, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var comments []*commentDatamodel.Comment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Order("id ASC"). // ids are time-ordered and break created_at ties
		Find(&comments).Error
	if err != nil {
		return nil, internal.NewStoreUnavailableError("find comments", err)
	}
	return comments, nil
}
