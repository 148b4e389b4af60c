package user

import "time"

type User struct {
	ID                      string          `gorm:"primaryKey;type:varchar(36)"`
	Email                   string          `gorm:"column:email;uniqueIndex;not null"`
	Name                    string          `gorm:"column:name;not null"`
	PasswordHash            string          `gorm:"column:password_hash;not null"`
	Department              string          `gorm:"column:department;index;not null"`
	Roles                   []string        `gorm:"column:roles;type:text;serializer:json;not null"`
	Permissions             []string        `gorm:"column:permissions;type:text;serializer:json"`
	NotificationPreferences map[string]bool `gorm:"column:notification_preferences;type:text;serializer:json"`
	IsActive                bool            `gorm:"column:is_active;not null"`
	CreatedAt               time.Time       `gorm:"column:created_at"`
	UpdatedAt               time.Time       `gorm:"column:updated_at;autoUpdateTime:false"`
}
