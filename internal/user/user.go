package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/user"
	"github.com/frahmantamala/archival-system/internal/rbac"
)

type User struct {
	ID                      string            `json:"id"`
	Email                   string            `json:"email"`
	Name                    string            `json:"name"`
	PasswordHash            string            `json:"-"`
	Department              rbac.Department   `json:"department"`
	Roles                   []rbac.Role       `json:"roles"`
	Permissions             []rbac.Permission `json:"permissions"`
	NotificationPreferences map[string]bool   `json:"notification_preferences,omitempty"`
	IsActive                bool              `json:"is_active"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

func (u *User) Principal() *rbac.Principal {
	return &rbac.Principal{
		ID:          u.ID,
		Department:  u.Department,
		Roles:       u.Roles,
		Permissions: u.Permissions,
	}
}

func (u *User) DepartmentName() string {
	return u.Department.DisplayName()
}

func FromDataModel(u *userDatamodel.User) *User {
	roles := make([]rbac.Role, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = rbac.Role(r)
	}
	perms := make([]rbac.Permission, len(u.Permissions))
	for i, p := range u.Permissions {
		perms[i] = rbac.Permission(p)
	}
	return &User{
		ID:                      u.ID,
		Email:                   u.Email,
		Name:                    u.Name,
		PasswordHash:            u.PasswordHash,
		Department:              rbac.Department(u.Department),
		Roles:                   roles,
		Permissions:             perms,
		NotificationPreferences: u.NotificationPreferences,
		IsActive:                u.IsActive,
		CreatedAt:               u.CreatedAt,
		UpdatedAt:               u.UpdatedAt,
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:                      u.ID,
		Email:                   u.Email,
		Name:                    u.Name,
		PasswordHash:            u.PasswordHash,
		Department:              string(u.Department),
		Roles:                   rbac.RoleStrings(u.Roles),
		Permissions:             rbac.PermissionStrings(u.Permissions),
		NotificationPreferences: u.NotificationPreferences,
		IsActive:                u.IsActive,
		CreatedAt:               u.CreatedAt,
		UpdatedAt:               u.UpdatedAt,
	}
}

// RoleInfo describes one catalog entry for GET /roles.
type RoleInfo struct {
	Role           rbac.Role         `json:"role"`
	Description    string            `json:"description"`
	Rank           int               `json:"rank"`
	InheritedRoles []rbac.Role       `json:"inherited_roles"`
	Permissions    []rbac.Permission `json:"permissions"`
}
