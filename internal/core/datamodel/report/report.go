package report

import "time"

type Report struct {
	ID          string                 `gorm:"primaryKey;type:varchar(36)"`
	Title       string                 `gorm:"column:title;not null"`
	Template    string                 `gorm:"column:template;not null"`
	Filters     map[string]interface{} `gorm:"column:filters;type:text;serializer:json"`
	Data        interface{}            `gorm:"column:data;type:text;serializer:json"`
	Department  *string                `gorm:"column:department;index"`
	GeneratedBy string                 `gorm:"column:generated_by;index;not null"`
	CreatedAt   time.Time              `gorm:"column:created_at"`
}

type ReportTemplate struct {
	ID          string                 `gorm:"primaryKey;type:varchar(36)"`
	Name        string                 `gorm:"column:name;uniqueIndex;not null"`
	Description string                 `gorm:"column:description"`
	Type        string                 `gorm:"column:type;not null"`
	Fields      []string               `gorm:"column:fields;type:text;serializer:json"`
	Layout      map[string]interface{} `gorm:"column:layout;type:text;serializer:json"`
	CreatedBy   string                 `gorm:"column:created_by;not null"`
	CreatedAt   time.Time              `gorm:"column:created_at"`
}
