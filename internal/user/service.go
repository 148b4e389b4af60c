package user

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/user"
	"github.com/frahmantamala/archival-system/internal/rbac"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type ListFilter struct {
	Department string
	Limit      int
	Offset     int
}

// RepositoryAPI is the principal store.
type RepositoryAPI interface {
	FindByID(ctx context.Context, id string) (*userDatamodel.User, error)
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*userDatamodel.User, error)
	Insert(ctx context.Context, u *userDatamodel.User) error
	UpdateFields(ctx context.Context, id string, u *userDatamodel.User, columns ...string) error
	List(ctx context.Context, filter ListFilter) ([]*userDatamodel.User, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(digest, plaintext string) bool
}

type Service struct {
	repo   RepositoryAPI
	guard  *rbac.Guard
	hasher PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, guard *rbac.Guard, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		guard:  guard,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) GetProfile(ctx context.Context, actor *rbac.Principal) (*User, error) {
	if actor == nil {
		return nil, internal.ErrInvalidToken
	}
	return s.Lookup(ctx, actor.ID)
}

// Lookup loads a principal by id without any authorization.
func (s *Service) Lookup(ctx context.Context, id string) (*User, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(record), nil
}

// DisplayNames maps principal ids to names. Ids that do not resolve are
// left out.
func (s *Service) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	records, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		names[r.ID] = r.Name
	}
	return names, nil
}

func (s *Service) UpdateProfile(ctx context.Context, actor *rbac.Principal, dto UpdateProfileDTO) (*User, error) {
	if actor == nil {
		return nil, internal.ErrInvalidToken
	}
	if dto.Name != nil {
		trimmed := strings.TrimSpace(*dto.Name)
		dto.Name = &trimmed
	}
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if dto.Name != nil {
		record.Name = *dto.Name
		columns = append(columns, "name")
	}
	if dto.NotificationPreferences != nil {
		if record.NotificationPreferences == nil {
			record.NotificationPreferences = map[string]bool{}
		}
		for k, v := range dto.NotificationPreferences {
			record.NotificationPreferences[k] = v
		}
		columns = append(columns, "notification_preferences")
	}
	record.UpdatedAt = s.now()

	if err := s.repo.UpdateFields(ctx, record.ID, record, columns...); err != nil {
		s.logger.Error("failed to update profile", "user_id", record.ID, "error", err)
		return nil, err
	}
	return FromDataModel(record), nil
}

func (s *Service) UpdatePassword(ctx context.Context, actor *rbac.Principal, dto UpdatePasswordDTO) error {
	if actor == nil {
		return internal.ErrInvalidToken
	}
	if err := validation.Struct(dto); err != nil {
		return err
	}

	record, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(record.PasswordHash, dto.CurrentPassword) {
		return internal.ErrWrongPassword
	}

	hash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		s.logger.Error("failed to hash password", "user_id", record.ID, "error", err)
		return internal.NewInternalError("failed to update password", err)
	}

	patch := &userDatamodel.User{PasswordHash: hash, UpdatedAt: s.now()}
	if err := s.repo.UpdateFields(ctx, record.ID, patch, "password_hash", "updated_at"); err != nil {
		s.logger.Error("failed to update password", "user_id", record.ID, "error", err)
		return err
	}
	s.logger.Info("password updated", "user_id", record.ID)
	return nil
}

// ListUsers requires manage_users. Without view_all_tasks the listing is
// pinned to the actor's department and asking for another one is denied.
func (s *Service) ListUsers(ctx context.Context, actor *rbac.Principal, q ListUsersQuery) ([]*User, error) {
	if !s.guard.HasPermission(actor, rbac.PermManageUsers) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermManageUsers))
	}

	department := strings.ToUpper(strings.TrimSpace(q.Department))
	if department != "" && !rbac.Department(department).Valid() {
		return nil, internal.NewValidationFieldError("department", "department must be a valid department", internal.ErrCodeInvalidDepartment)
	}

	if !s.guard.HasPermission(actor, rbac.PermViewAllTasks) {
		if department != "" && rbac.Department(department) != actor.Department {
			return nil, internal.NewPermissionDeniedError(string(rbac.PermViewAllTasks))
		}
		department = string(actor.Department)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	records, err := s.repo.List(ctx, ListFilter{Department: department, Limit: limit, Offset: q.Offset})
	if err != nil {
		s.logger.Error("failed to list users", "department", department, "error", err)
		return nil, err
	}

	users := make([]*User, 0, len(records))
	for _, r := range records {
		users = append(users, FromDataModel(r))
	}
	return users, nil
}

// GetUser returns id to itself, or to a manage_users holder within scope.
func (s *Service) GetUser(ctx context.Context, actor *rbac.Principal, id string) (*User, error) {
	if actor == nil {
		return nil, internal.ErrInvalidToken
	}
	if actor.ID == id {
		return s.Lookup(ctx, id)
	}
	if !s.guard.HasPermission(actor, rbac.PermManageUsers) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermManageUsers))
	}
	return s.loadInScope(ctx, actor, id, rbac.PermManageUsers)
}

func (s *Service) loadInScope(ctx context.Context, actor *rbac.Principal, id string, permission rbac.Permission) (*User, error) {
	u, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.guard.CanActOnResource(actor, permission, u.Department) {
		return nil, internal.NewPermissionDeniedError(string(permission))
	}
	return u, nil
}

// UpdateRoles replaces the target's roles and recomputes its permission
// snapshot in the same write.
func (s *Service) UpdateRoles(ctx context.Context, actor *rbac.Principal, id string, dto UpdateRolesDTO) (*User, error) {
	if !s.guard.HasPermission(actor, rbac.PermManageRoles) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermManageRoles))
	}
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	roles, err := rbac.ParseRoles(dto.Roles)
	if err != nil {
		return nil, internal.NewValidationFieldError("roles", err.Error(), internal.ErrCodeInvalidRole)
	}
	if !s.guard.CanAssignRoles(actor, roles) {
		s.logger.Warn("role assignment denied", "user_id", actor.ID, "target_id", id, "roles", roles)
		return nil, internal.NewPermissionDeniedError(string(rbac.PermManageRoles))
	}

	target, err := s.loadInScope(ctx, actor, id, rbac.PermManageRoles)
	if err != nil {
		return nil, err
	}
	// A principal may not rewrite the roles of someone it does not outrank.
	if actor.ID != target.ID && len(target.Roles) > 0 && !s.guard.CanAssignRoles(actor, target.Roles) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermManageRoles))
	}

	target.Roles = roles
	target.Permissions = s.guard.Permissions(&rbac.Principal{ID: target.ID, Roles: roles}).List()
	target.UpdatedAt = s.now()

	if err := s.repo.UpdateFields(ctx, target.ID, ToDataModel(target), "roles", "permissions", "updated_at"); err != nil {
		s.logger.Error("failed to update roles", "target_id", target.ID, "error", err)
		return nil, err
	}

	s.logger.Info("roles updated", "user_id", actor.ID, "target_id", target.ID, "roles", roles)
	return target, nil
}

// UpdateDepartment moves a principal the actor can act on into another
// department.
func (s *Service) UpdateDepartment(ctx context.Context, actor *rbac.Principal, id string, dto UpdateDepartmentDTO) (*User, error) {
	if !s.guard.HasPermission(actor, rbac.PermManageDepartments) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermManageDepartments))
	}
	dto.Department = strings.ToUpper(strings.TrimSpace(dto.Department))
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	target, err := s.loadInScope(ctx, actor, id, rbac.PermManageDepartments)
	if err != nil {
		return nil, err
	}
	target.Department = rbac.Department(dto.Department)
	target.UpdatedAt = s.now()

	if err := s.repo.UpdateFields(ctx, target.ID, ToDataModel(target), "department", "updated_at"); err != nil {
		s.logger.Error("failed to update department", "target_id", target.ID, "error", err)
		return nil, err
	}

	s.logger.Info("department updated", "user_id", actor.ID, "target_id", target.ID, "department", target.Department)
	return target, nil
}

func (s *Service) SetActive(ctx context.Context, actor *rbac.Principal, id string, active bool) (*User, error) {
	if !s.guard.HasPermission(actor, rbac.PermManageUsers) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermManageUsers))
	}
	if actor.ID == id && !active {
		return nil, internal.NewValidationError("cannot deactivate your own account", internal.ErrCodeValidationFailed)
	}

	target, err := s.loadInScope(ctx, actor, id, rbac.PermManageUsers)
	if err != nil {
		return nil, err
	}
	target.IsActive = active
	target.UpdatedAt = s.now()

	if err := s.repo.UpdateFields(ctx, target.ID, ToDataModel(target), "is_active", "updated_at"); err != nil {
		s.logger.Error("failed to set active flag", "target_id", target.ID, "error", err)
		return nil, err
	}

	s.logger.Info("user activation changed", "user_id", actor.ID, "target_id", target.ID, "is_active", active)
	return target, nil
}

// Roles lists the catalog in authority order.
func (s *Service) Roles() ([]RoleInfo, error) {
	resolver := s.guard.Resolver()
	catalog := resolver.Catalog()

	infos := make([]RoleInfo, 0, len(catalog.Hierarchy()))
	for i, role := range catalog.Hierarchy() {
		inherited, err := catalog.InheritedRoles(role)
		if err != nil {
			return nil, err
		}
		perms, err := resolver.ResolveRolePermissions(role)
		if err != nil {
			return nil, err
		}
		infos = append(infos, RoleInfo{
			Role:           role,
			Description:    catalog.Description(role),
			Rank:           i + 1,
			InheritedRoles: inherited,
			Permissions:    perms.List(),
		})
	}
	return infos, nil
}

// IsNotFound reports whether err is the principal store's not-found result.
func IsNotFound(err error) bool {
	return stdErrors.Is(err, internal.ErrUserNotFound)
}
