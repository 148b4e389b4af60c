package comment

import (
	"context"
	"net/http"

	"github.com/frahmantamala/archival-system/internal/auth"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	AddComment(ctx context.Context, actor *rbac.Principal, taskID string, dto AddCommentDTO) (*Comment, error)
	ListComments(ctx context.Context, actor *rbac.Principal, taskID string) ([]*Comment, error)
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

// AddComment handles POST /tasks/{id}/comments
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	var dto AddCommentDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	c, err := h.Service.AddComment(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}

// ListComments handles GET /tasks/{id}/comments
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	comments, err := h.Service.ListComments(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CommentsResponse{Comments: comments, Count: len(comments)})
}
