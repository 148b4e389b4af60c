package task

import "time"

type Task struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)"`
	Title       string     `gorm:"column:title;not null"`
	Description string     `gorm:"column:description"`
	Priority    string     `gorm:"column:priority;not null;default:Medium"`
	Status      string     `gorm:"column:status;index;not null"`
	Department  string     `gorm:"column:department;index;not null"`
	AssignedTo  *string    `gorm:"column:assigned_to;index"`
	CreatedBy   string     `gorm:"column:created_by;index;not null"`
	ApprovedBy  *string    `gorm:"column:approved_by"`
	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	ArchivedAt  *time.Time `gorm:"column:archived_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
}
