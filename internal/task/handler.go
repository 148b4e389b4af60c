package task

import (
	"context"
	"net/http"

	"github.com/frahmantamala/archival-system/internal/auth"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateTask(ctx context.Context, actor *rbac.Principal, dto CreateTaskDTO) (*Task, error)
	GetTask(ctx context.Context, actor *rbac.Principal, id string) (*Task, error)
	UpdateTask(ctx context.Context, actor *rbac.Principal, id string, dto UpdateTaskDTO) (*Task, error)
	ApproveTask(ctx context.Context, actor *rbac.Principal, id string) (*Task, error)
	ArchiveTask(ctx context.Context, actor *rbac.Principal, id string) (*Task, error)
	ListTasks(ctx context.Context, actor *rbac.Principal, q ListTasksQuery) ([]*Task, error)
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

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	var dto CreateTaskDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	t, err := h.Service.CreateTask(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	t, err := h.Service.GetTask(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	var dto UpdateTaskDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	t, err := h.Service.UpdateTask(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	t, err := h.Service.ApproveTask(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	t, err := h.Service.ArchiveTask(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
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
	includeArchived, appErr := h.QueryBool(r, "include_archived")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	query := r.URL.Query()
	q := ListTasksQuery{
		Department:      query.Get("department"),
		Status:          query.Get("status"),
		Priority:        query.Get("priority"),
		AssignedTo:      query.Get("assigned_to"),
		CreatedBy:       query.Get("created_by"),
		Query:           query.Get("q"),
		IncludeArchived: includeArchived,
		Limit:           limit,
		Offset:          offset,
	}

	tasks, err := h.Service.ListTasks(r.Context(), actor, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resolvedLimit := limit
	if resolvedLimit <= 0 {
		resolvedLimit = defaultListLimit
	}
	if resolvedLimit > maxListLimit {
		resolvedLimit = maxListLimit
	}
	h.WriteJSON(w, http.StatusOK, TasksResponse{Tasks: tasks, Count: len(tasks), Limit: resolvedLimit, Offset: offset})
}
