package auth

import (
	"context"
	"time"

	userDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/user"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/golang-jwt/jwt/v5"
)

// User is the authenticated principal attached to a request.
type User struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Department  rbac.Department   `json:"department"`
	Roles       []rbac.Role       `json:"roles"`
	Permissions []rbac.Permission `json:"permissions,omitempty"`
	IsActive    bool              `json:"is_active"`
}

// Principal converts u for authorization checks. A nil user yields a nil
// principal, which every check denies.
func (u *User) Principal() *rbac.Principal {
	if u == nil {
		return nil
	}
	return &rbac.Principal{
		ID:          u.ID,
		Department:  u.Department,
		Roles:       u.Roles,
		Permissions: u.Permissions,
	}
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
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Department:  rbac.Department(u.Department),
		Roles:       roles,
		Permissions: perms,
		IsActive:    u.IsActive,
	}
}

type ctxKey string

const ContextUserKey ctxKey = "user"

func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

// PrincipalFromContext is the authorization view of the request's user.
func PrincipalFromContext(ctx context.Context) *rbac.Principal {
	u, _ := UserFromContext(ctx)
	return u.Principal()
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents JWT token claims. RegisteredClaims.ID carries the jti
// used for revocation.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	AuthTokens
	User *User `json:"user"`
}

type AuthorizeResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}
