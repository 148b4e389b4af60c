package comment

import (
	"time"

	commentDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/comment"
	"github.com/google/uuid"
)

// Comment is an append-only note on a task. AuthorName is filled at read
// time and never stored.
type Comment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewID returns a time-ordered id. Ids sort in append order, which breaks
// ties between comments sharing a created_at.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func ToDataModel(c *Comment) *commentDatamodel.Comment {
	return &commentDatamodel.Comment{
		ID:        c.ID,
		TaskID:    c.TaskID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

func FromDataModel(c *commentDatamodel.Comment) *Comment {
	return &Comment{
		ID:        c.ID,
		TaskID:    c.TaskID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}
