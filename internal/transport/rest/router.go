package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/auth"
	"github.com/frahmantamala/archival-system/internal/comment"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/report"
	"github.com/frahmantamala/archival-system/internal/task"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/frahmantamala/archival-system/internal/transport/middleware"
	"github.com/frahmantamala/archival-system/internal/transport/swagger"
	"github.com/frahmantamala/archival-system/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles what the route table dispatches to. Every field is
// required.
type Handlers struct {
	Auth    *auth.Handler
	RBAC    *auth.RBACAuthorization
	User    *user.Handler
	Task    *task.Handler
	Comment *comment.Handler
	Report  *report.Handler
	Health  *HealthHandler
}

// RouterOptions carries the config-driven parts of the route table.
type RouterOptions struct {
	Config *internal.Config
	// OpenAPIValidator is nil when request validation is off.
	OpenAPIValidator func(http.Handler) http.Handler
	Logger           *slog.Logger
}

// NewRouter builds the whole route table once at startup.
func NewRouter(h Handlers, opts RouterOptions) *chi.Mux {
	cfg := opts.Config
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.Logging(opts.Logger))
	router.Use(middleware.CORS(cfg.Server.Origins()))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	if cfg.Observability.Metrics.Enabled {
		router.Use(middleware.Metrics)
		router.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, cfg.OpenAPI.SpecPath)
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	router.Route("/api/v1", func(r chi.Router) {
		if opts.OpenAPIValidator != nil {
			r.Use(opts.OpenAPIValidator)
		}

		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)
		r.Get("/departments", h.User.ListDepartments)

		r.Route("/auth", func(ar chi.Router) {
			ar.Group(func(lr chi.Router) {
				if cfg.Server.AuthRateLimit > 0 {
					lr.Use(authRateLimit(cfg.Server.AuthRateLimit, opts.Logger))
				}
				lr.Post("/register", h.Auth.Register)
				lr.Post("/login", h.Auth.Login)
			})
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/logout", h.Auth.Logout)

			ar.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.Get("/me", h.User.Me)
				pr.Put("/profile", h.User.UpdateProfile)
				pr.Put("/password", h.User.UpdatePassword)
				pr.Get("/authorize", h.Auth.Authorize)
			})
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/roles", h.User.ListRoles)

			pr.Route("/users", func(ur chi.Router) {
				ur.With(h.RBAC.Require(rbac.PermManageUsers)).Get("/", h.User.ListUsers)
				ur.Get("/{id}", h.User.GetUser)
				ur.With(h.RBAC.Require(rbac.PermManageRoles)).Put("/{id}/roles", h.User.UpdateRoles)
				ur.With(h.RBAC.Require(rbac.PermManageDepartments)).Put("/{id}/department", h.User.UpdateDepartment)
				ur.With(h.RBAC.Require(rbac.PermManageUsers)).Put("/{id}/status", h.User.SetActive)
			})

			pr.Route("/tasks", func(tr chi.Router) {
				tr.Get("/", h.Task.ListTasks)
				tr.With(h.RBAC.Require(rbac.PermCreateTask)).Post("/", h.Task.CreateTask)
				tr.Get("/{id}", h.Task.GetTask)
				tr.With(h.RBAC.Require(rbac.PermEditTask)).Put("/{id}", h.Task.UpdateTask)
				tr.With(h.RBAC.Require(rbac.PermApproveTask)).Post("/{id}/approve", h.Task.ApproveTask)
				tr.With(h.RBAC.Require(rbac.PermAccessArchives)).Post("/{id}/archive", h.Task.ArchiveTask)

				tr.Get("/{id}/comments", h.Comment.ListComments)
				tr.Post("/{id}/comments", h.Comment.AddComment)
			})

			pr.Route("/reports", func(rr chi.Router) {
				rr.Use(h.RBAC.Require(rbac.PermGenerateReports))
				rr.Get("/templates", h.Report.ListTemplates)
				rr.With(h.RBAC.Require(rbac.PermManageRoles)).Post("/templates", h.Report.CreateTemplate)
				rr.Post("/generate", h.Report.GenerateReport)
				rr.Get("/department/{department}", h.Report.ListDepartmentReports)
				rr.Get("/{id}", h.Report.GetReport)
				rr.Get("/{id}/export", h.Report.ExportReport)
			})
		})
	})

	return router
}

// authRateLimit throttles credential endpoints per client IP.
func authRateLimit(perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			base.WriteError(w, http.StatusTooManyRequests, "too many requests, try again later")
		}),
	)
}
