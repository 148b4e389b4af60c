package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/auth"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetProfile(ctx context.Context, actor *rbac.Principal) (*User, error)
	UpdateProfile(ctx context.Context, actor *rbac.Principal, dto UpdateProfileDTO) (*User, error)
	UpdatePassword(ctx context.Context, actor *rbac.Principal, dto UpdatePasswordDTO) error
	ListUsers(ctx context.Context, actor *rbac.Principal, q ListUsersQuery) ([]*User, error)
	GetUser(ctx context.Context, actor *rbac.Principal, id string) (*User, error)
	UpdateRoles(ctx context.Context, actor *rbac.Principal, id string, dto UpdateRolesDTO) (*User, error)
	UpdateDepartment(ctx context.Context, actor *rbac.Principal, id string, dto UpdateDepartmentDTO) (*User, error)
	SetActive(ctx context.Context, actor *rbac.Principal, id string, active bool) (*User, error)
	Roles() ([]RoleInfo, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*rbac.Principal, bool) {
	return auth.RequirePrincipal(h.BaseHandler, w, r)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetProfile(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto UpdateProfileDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto UpdatePasswordDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	if err := h.Service.UpdatePassword(r.Context(), actor, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	limit, appErr := h.QueryInt(r, "limit", 0)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	offset, appErr := h.QueryInt(r, "offset", 0)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	users, err := h.Service.ListUsers(r.Context(), actor, ListUsersQuery{
		Department: r.URL.Query().Get("department"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UsersResponse{Users: users, Count: len(users)})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetUser(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto UpdateRolesDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	u, err := h.Service.UpdateRoles(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto UpdateDepartmentDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	u, err := h.Service.UpdateDepartment(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto SetActiveDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	if dto.IsActive == nil {
		h.HandleError(w, internal.NewValidationFieldError("is_active", "is_active is required", internal.ErrCodeValidationFailed))
		return
	}

	u, err := h.Service.SetActive(r.Context(), actor, chi.URLParam(r, "id"), *dto.IsActive)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.Roles()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: roles})
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"departments": rbac.Departments(),
	})
}
