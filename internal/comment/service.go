package comment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/core/common/validation"
	commentDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/comment"
	"github.com/frahmantamala/archival-system/internal/core/events"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/task"
)

type RepositoryAPI interface {
	Insert(ctx context.Context, c *commentDatamodel.Comment) error
	// FindByTask returns the thread oldest first.
	FindByTask(ctx context.Context, taskID string) ([]*commentDatamodel.Comment, error)
}

// TaskReader applies task visibility. A comment thread is readable and
// writable exactly when its task is visible.
type TaskReader interface {
	GetTask(ctx context.Context, actor *rbac.Principal, id string) (*task.Task, error)
}

type NameResolver interface {
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}

type Service struct {
	repo      RepositoryAPI
	tasks     TaskReader
	names     NameResolver
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, tasks TaskReader, names NameResolver, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		tasks:     tasks,
		names:     names,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) AddComment(ctx context.Context, actor *rbac.Principal, taskID string, dto AddCommentDTO) (*Comment, error) {
	if actor == nil {
		return nil, internal.ErrInvalidToken
	}
	dto.Text = strings.TrimSpace(dto.Text)
	if dto.Text == "" {
		return nil, internal.NewValidationFieldError("text", "comment text is required", internal.ErrCodeEmptyComment)
	}
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	t, err := s.tasks.GetTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	id, err := NewID()
	if err != nil {
		s.logger.Error("failed to generate comment id", "task_id", t.ID, "error", err)
		return nil, internal.NewInternalError("failed to add comment", err)
	}
	c := &Comment{
		ID:        id,
		TaskID:    t.ID,
		AuthorID:  actor.ID,
		Text:      dto.Text,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, ToDataModel(c)); err != nil {
		s.logger.Error("failed to add comment", "task_id", t.ID, "user_id", actor.ID, "error", err)
		return nil, err
	}

	names, err := s.names.DisplayNames(ctx, []string{actor.ID})
	if err != nil {
		s.logger.Warn("failed to resolve author name", "comment_id", c.ID, "user_id", actor.ID, "error", err)
	} else {
		c.AuthorName = names[actor.ID]
	}

	s.logger.Info("comment added", "comment_id", c.ID, "task_id", t.ID, "user_id", actor.ID)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewCommentAddedEvent(c.ID, t.ID, actor.ID)); err != nil {
			s.logger.Error("failed to publish event", "event_type", events.EventTypeCommentAdded, "error", err)
		}
	}
	return c, nil
}

func (s *Service) ListComments(ctx context.Context, actor *rbac.Principal, taskID string) ([]*Comment, error) {
	t, err := s.tasks.GetTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.FindByTask(ctx, t.ID)
	if err != nil {
		s.logger.Error("failed to list comments", "task_id", t.ID, "error", err)
		return nil, err
	}

	authorIDs := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.AuthorID]; !ok {
			seen[r.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, r.AuthorID)
		}
	}
	names, err := s.names.DisplayNames(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	comments := make([]*Comment, 0, len(records))
	for _, r := range records {
		c := FromDataModel(r)
		c.AuthorName = names[c.AuthorID]
		comments = append(comments, c)
	}
	return comments, nil
}
