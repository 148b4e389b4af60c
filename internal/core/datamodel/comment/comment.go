package comment

import "time"

type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	TaskID    string    `gorm:"column:task_id;index;not null"`
	AuthorID  string    `gorm:"column:author_id;not null"`
	Text      string    `gorm:"column:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}
