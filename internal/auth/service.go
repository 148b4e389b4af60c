package auth

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/user"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/google/uuid"
)

// RepositoryAPI is the slice of the principal store authentication needs.
type RepositoryAPI interface {
	FindByID(ctx context.Context, id string) (*userDatamodel.User, error)
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Insert(ctx context.Context, u *userDatamodel.User) error
	UpdateFields(ctx context.Context, id string, u *userDatamodel.User, columns ...string) error
}

type TokenGenerator interface {
	GenerateAccessToken(userID, email string) (string, error)
	GenerateRefreshToken(userID, email string) (string, error)
	ValidateAccessToken(token string) (*Claims, error)
	ValidateRefreshToken(token string) (*Claims, error)
	AccessTTL() time.Duration
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(digest, plaintext string) bool
}

type Service struct {
	repo     RepositoryAPI
	tokens   TokenGenerator
	hasher   PasswordHasher
	denylist Denylist
	guard    *rbac.Guard
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RepositoryAPI, tokens TokenGenerator, hasher PasswordHasher, denylist Denylist, guard *rbac.Guard, logger *slog.Logger) *Service {
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		hasher:   hasher,
		denylist: denylist,
		guard:    guard,
		logger:   logger,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a staff principal and signs it in.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error) {
	dto.Email = normalizeEmail(dto.Email)
	dto.Name = strings.TrimSpace(dto.Name)
	dto.Department = strings.ToUpper(strings.TrimSpace(dto.Department))
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	_, err := s.repo.FindByEmail(ctx, dto.Email)
	switch {
	case err == nil:
		return nil, internal.ErrEmailTaken
	case !stdErrors.Is(err, internal.ErrUserNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, internal.NewInternalError("failed to register user", err)
	}

	roles := []rbac.Role{rbac.RoleStaff}
	perms := s.guard.Permissions(&rbac.Principal{Roles: roles}).List()

	now := s.now()
	record := &userDatamodel.User{
		ID:                      uuid.NewString(),
		Email:                   dto.Email,
		Name:                    dto.Name,
		PasswordHash:            hash,
		Department:              dto.Department,
		Roles:                   rbac.RoleStrings(roles),
		Permissions:             rbac.PermissionStrings(perms),
		NotificationPreferences: DefaultNotificationPreferences(),
		IsActive:                true,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		if !stdErrors.Is(err, internal.ErrEmailTaken) {
			s.logger.Error("failed to insert user", "email", dto.Email, "error", err)
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", record.ID, "department", record.Department)
	return s.signIn(record)
}

// DefaultNotificationPreferences is what a new principal starts with.
func DefaultNotificationPreferences() map[string]bool {
	return map[string]bool{"email": true, "in_app": true}
}

// Authenticate verifies credentials. Unknown email, wrong password and an
// inactive account are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthResult, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil {
		if stdErrors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(record.PasswordHash, dto.Password) {
		s.logger.Info("login rejected: wrong password", "user_id", record.ID)
		return nil, internal.ErrInvalidCredentials
	}
	if !record.IsActive {
		s.logger.Info("login rejected: inactive user", "user_id", record.ID)
		return nil, internal.ErrInvalidCredentials
	}

	if err := s.refreshSnapshot(ctx, record); err != nil {
		return nil, err
	}

	return s.signIn(record)
}

// refreshSnapshot rewrites the stored permission snapshot when it no longer
// matches what the principal's roles resolve to.
func (s *Service) refreshSnapshot(ctx context.Context, record *userDatamodel.User) error {
	live := rbac.PermissionStrings(FromDataModel(record).livePermissions(s.guard))
	stored := append([]string(nil), record.Permissions...)
	sort.Strings(stored)
	if equalStrings(live, stored) {
		return nil
	}

	now := s.now()
	patch := &userDatamodel.User{Permissions: live, UpdatedAt: now}
	if err := s.repo.UpdateFields(ctx, record.ID, patch, "permissions", "updated_at"); err != nil {
		s.logger.Error("failed to refresh permission snapshot", "user_id", record.ID, "error", err)
		return err
	}
	record.Permissions = live
	record.UpdatedAt = now
	s.logger.Info("permission snapshot refreshed", "user_id", record.ID, "permissions", len(live))
	return nil
}

func (u *User) livePermissions(guard *rbac.Guard) []rbac.Permission {
	return guard.Permissions(u.Principal()).List()
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Service) signIn(record *userDatamodel.User) (*AuthResult, error) {
	tokens, err := s.issueTokens(record.ID, record.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AuthTokens: *tokens, User: FromDataModel(record)}, nil
}

func (s *Service) issueTokens(userID, email string) (*AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(userID, email)
	if err != nil {
		s.logger.Error("failed to issue access token", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to issue token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID, email)
	if err != nil {
		s.logger.Error("failed to issue refresh token", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to issue token", err)
	}
	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// RefreshTokens rotates a refresh token. The presented token is revoked so it
// cannot be replayed.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if stdErrors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	if !record.IsActive {
		return nil, internal.ErrUserInactive
	}

	first, err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAtTime())
	if err != nil {
		s.logger.Error("failed to revoke rotated refresh token", "user_id", record.ID, "error", err)
		return nil, err
	}
	if !first {
		s.logger.Warn("refresh token replayed during rotation", "user_id", record.ID)
		return nil, internal.ErrTokenRevoked
	}

	return s.issueTokens(record.ID, record.Email)
}

// Logout revokes the access token and, when given, the refresh token.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}
	if _, err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		s.logger.Error("failed to revoke access token", "user_id", claims.UserID, "error", err)
		return err
	}

	if refreshToken != "" {
		refreshClaims, err := s.tokens.ValidateRefreshToken(refreshToken)
		if err != nil {
			return err
		}
		if refreshClaims.UserID != claims.UserID {
			return internal.ErrInvalidToken
		}
		if _, err := s.denylist.Revoke(ctx, refreshClaims.ID, refreshClaims.ExpiresAtTime()); err != nil {
			s.logger.Error("failed to revoke refresh token", "user_id", claims.UserID, "error", err)
			return err
		}
	}

	s.logger.Info("user logged out", "user_id", claims.UserID)
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) checkRevoked(ctx context.Context, claims *Claims) error {
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return internal.ErrTokenRevoked
	}
	return nil
}

// AuthenticateToken resolves a bearer token to an active principal.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*User, error) {
	claims, err := s.ValidateAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if stdErrors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	if !record.IsActive {
		return nil, internal.ErrUserInactive
	}
	return FromDataModel(record), nil
}

// Authorize answers whether u holds permission. Unknown permission names are
// a validation failure, not a denial.
func (s *Service) Authorize(u *User, permission string) (*AuthorizeResponse, error) {
	perm, err := rbac.ParsePermission(permission)
	if err != nil {
		return nil, internal.NewValidationFieldError("permission", "permission must be a known permission", internal.ErrCodeValidationFailed)
	}
	return &AuthorizeResponse{
		Permission: string(perm),
		Allowed:    s.guard.HasPermission(u.Principal(), perm),
	}, nil
}
