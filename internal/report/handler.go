package report

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/archival-system/internal/auth"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListTemplates(ctx context.Context, actor *rbac.Principal) ([]Template, error)
	CreateTemplate(ctx context.Context, actor *rbac.Principal, dto CreateTemplateDTO) (*Template, error)
	GenerateReport(ctx context.Context, actor *rbac.Principal, dto GenerateReportDTO) (*Report, error)
	GetReport(ctx context.Context, actor *rbac.Principal, id string) (*Report, error)
	ExportReport(ctx context.Context, actor *rbac.Principal, id, format string) (*Export, error)
	ListDepartmentReports(ctx context.Context, actor *rbac.Principal, department string) ([]*Report, error)
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

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	templates, err := h.Service.ListTemplates(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TemplatesResponse{Templates: templates})
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	var dto CreateTemplateDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	t, err := h.Service.CreateTemplate(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	var dto GenerateReportDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	rep, err := h.Service.GenerateReport(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, rep)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	rep, err := h.Service.GetReport(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rep)
}

// ExportReport handles GET /reports/{id}/export?format=csv|json
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	export, err := h.Service.ExportReport(r.Context(), actor, chi.URLParam(r, "id"), r.URL.Query().Get("format"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(export.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Body); err != nil {
		h.Logger.Error("failed to write export", "report_id", chi.URLParam(r, "id"), "error", err)
	}
}

func (h *Handler) ListDepartmentReports(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.RequirePrincipal(h.BaseHandler, w, r)
	if !ok {
		return
	}

	reports, err := h.Service.ListDepartmentReports(r.Context(), actor, chi.URLParam(r, "department"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ReportsResponse{Reports: reports, Count: len(reports)})
}
