package user

type UpdateProfileDTO struct {
	Name                    *string         `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	NotificationPreferences map[string]bool `json:"notification_preferences,omitempty"`
}

type UpdatePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type UpdateRolesDTO struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,role"`
}

type UpdateDepartmentDTO struct {
	Department string `json:"department" validate:"required,department"`
}

type SetActiveDTO struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type ListUsersQuery struct {
	Department string
	Limit      int
	Offset     int
}

type UsersResponse struct {
	Users []*User `json:"users"`
	Count int     `json:"count"`
}

type RolesResponse struct {
	Roles []RoleInfo `json:"roles"`
}
