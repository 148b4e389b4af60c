package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/transport"
)

// RBACAuthorization gates routes on a single permission. Finer checks such as
// department scope stay in the services.
type RBACAuthorization struct {
	*transport.BaseHandler
	guard *rbac.Guard
}

func NewRBACAuthorization(guard *rbac.Guard, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		guard:       guard,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, permission rbac.Permission) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			ra.Logger.WarnContext(r.Context(), "authorization check failed: user not found in context")
			ra.HandleError(w, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken))
			return
		}

		if !ra.guard.HasPermission(u.Principal(), permission) {
			ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
				"user_id", u.ID,
				"required_permission", permission,
				"roles", u.Roles)
			ra.HandleError(w, internal.NewPermissionDeniedError(string(permission)))
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Require is Check in chi middleware form.
func (ra *RBACAuthorization) Require(permission rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, permission)
	}
}
