package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/auth"
	"github.com/frahmantamala/archival-system/internal/comment"
	commentPostgres "github.com/frahmantamala/archival-system/internal/comment/postgres"
	commentDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/comment"
	reportDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/report"
	taskDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/task"
	userDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/user"
	"github.com/frahmantamala/archival-system/internal/core/events"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/report"
	reportPostgres "github.com/frahmantamala/archival-system/internal/report/postgres"
	"github.com/frahmantamala/archival-system/internal/task"
	taskPostgres "github.com/frahmantamala/archival-system/internal/task/postgres"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/frahmantamala/archival-system/internal/transport/rest"
	"github.com/frahmantamala/archival-system/internal/user"
	userPostgres "github.com/frahmantamala/archival-system/internal/user/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "REST Suite")
}

type testServer struct {
	router   http.Handler
	db       *gorm.DB
	redis    *redis.Client
	bus      *events.EventBus
	guard    *rbac.Guard
	users    *userPostgres.UserRepository
	hasher   *auth.BcryptHasher
	failPing bool
}

func newTestServer(mr *miniredis.Miniredis) *testServer {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)
	Expect(db.AutoMigrate(
		&userDatamodel.User{},
		&taskDatamodel.Task{},
		&commentDatamodel.Comment{},
		&reportDatamodel.Report{},
		&reportDatamodel.ReportTemplate{},
	)).To(Succeed())

	client, err := auth.NewRedisClient(context.Background(), mr.Addr(), "", 0)
	Expect(err).NotTo(HaveOccurred())

	catalog, err := rbac.DefaultCatalog()
	Expect(err).NotTo(HaveOccurred())
	guard := rbac.NewGuard(rbac.NewResolver(catalog), lg)

	cfg := &internal.Config{
		Env: "test",
		Server: internal.ServerConfig{
			AllowedOrigins: "*",
		},
		OpenAPI: internal.OpenAPIConfig{SpecPath: "../../../api/openapi.yml"},
		Observability: internal.ObservabilityConfig{
			Metrics: internal.MetricsConfig{Enabled: true, Path: "/metrics"},
		},
	}

	s := &testServer{db: db, redis: client, guard: guard}
	s.bus = events.NewEventBus(lg)
	task.NewEventHandler(lg).RegisterEventHandlers(s.bus)

	s.users = userPostgres.NewUserRepository(db, time.Second)
	s.hasher = auth.NewBcryptHasher(10)
	tokens := auth.NewJWTTokenGenerator("access-secret-for-tests", "refresh-secret-for-tests", time.Hour, 24*time.Hour)
	base := transport.NewBaseHandler(lg)

	authService := auth.NewService(s.users, tokens, s.hasher, auth.NewRedisDenylist(client), guard, lg)
	userService := user.NewService(s.users, guard, s.hasher, lg)
	taskService := task.NewService(taskPostgres.NewTaskRepository(db, time.Second), guard, userService, s.bus, lg, true)
	commentService := comment.NewService(commentPostgres.NewCommentRepository(db, time.Second), taskService, userService, s.bus, lg)
	reportService := report.NewService(
		reportPostgres.NewReportRepository(db, time.Second),
		reportPostgres.NewStatsReader(sqlx.NewDb(sqlDB, "sqlite3"), time.Second),
		guard, s.bus, lg, true,
	)

	s.router = rest.NewRouter(rest.Handlers{
		Auth:    auth.NewHandler(base, authService),
		RBAC:    auth.NewRBACAuthorization(guard, lg),
		User:    user.NewHandler(base, userService),
		Task:    task.NewHandler(base, taskService),
		Comment: comment.NewHandler(base, commentService),
		Report:  report.NewHandler(base, reportService),
		Health: rest.NewHealthHandler(map[string]rest.CheckFunc{
			"database": sqlDB.PingContext,
			"redis": func(ctx context.Context) error {
				if s.failPing {
					return errors.New("redis down")
				}
				return client.Ping(ctx).Err()
			},
		}),
	}, rest.RouterOptions{Config: cfg, Logger: lg})
	return s
}

func (s *testServer) close() {
	s.bus.Wait()
	_ = s.redis.Close()
	sqlDB, _ := s.db.DB()
	_ = sqlDB.Close()
}

// seedUser inserts an account with the given role directly, since
// registration only ever creates staff.
func (s *testServer) seedUser(email string, role rbac.Role, dept rbac.Department) {
	hash, err := s.hasher.Hash("Password123")
	Expect(err).NotTo(HaveOccurred())
	roles := []rbac.Role{role}
	now := time.Now().UTC()
	Expect(s.users.Insert(context.Background(), &userDatamodel.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         string(role),
		PasswordHash: hash,
		Department:   string(dept),
		Roles:        rbac.RoleStrings(roles),
		Permissions:  rbac.PermissionStrings(s.guard.Permissions(&rbac.Principal{Roles: roles}).List()),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})).To(Succeed())
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(email string) string {
	w := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": "Password123"})
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())
	var res auth.AuthResult
	Expect(json.NewDecoder(w.Body).Decode(&res)).To(Succeed())
	return res.AccessToken
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	Expect(json.NewDecoder(w.Body).Decode(&v)).To(Succeed(), w.Body.String())
	return v
}

func errorCode(w *httptest.ResponseRecorder) string {
	body := decode[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](w)
	return body.Error.Code
}

var _ = Describe("Router", func() {
	var (
		mr *miniredis.Miniredis
		s  *testServer
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		s = newTestServer(mr)
	})

	AfterEach(func() {
		s.close()
		mr.Close()
	})

	Describe("health", func() {
		It("should report healthy components", func() {
			w := s.do(http.MethodGet, "/api/v1/health", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			res := decode[rest.HealthResponse](w)
			Expect(res.Status).To(Equal(rest.HealthHealthy))
			Expect(res.Components).To(HaveKey("database"))
			Expect(res.Components).To(HaveKey("redis"))
		})

		It("should return 503 when a dependency fails", func() {
			s.failPing = true
			w := s.do(http.MethodGet, "/api/v1/health", "", nil)
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(decode[rest.HealthResponse](w).Components["redis"].Status).To(Equal(rest.HealthUnhealthy))
		})

		It("should answer ping and expose metrics", func() {
			Expect(s.do(http.MethodGet, "/api/v1/ping", "", nil).Code).To(Equal(http.StatusOK))
			w := s.do(http.MethodGet, "/metrics", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("archival_http_requests_total"))
		})

		It("should list departments without a token", func() {
			w := s.do(http.MethodGet, "/api/v1/departments", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("Computer Science and Engineering"))
		})

		It("should serve the api document", func() {
			w := s.do(http.MethodGet, "/openapi.yml", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("openapi: 3.0.3"))
		})
	})

	Describe("auth", func() {
		It("should register a staff account and sign in", func() {
			w := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
				"name": "Asha", "email": "asha@uni.edu", "password": "Password123", "department": "CSE",
			})
			Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
			res := decode[auth.AuthResult](w)
			Expect(res.User.Roles).To(ConsistOf(rbac.RoleStaff))

			token := s.login("asha@uni.edu")
			me := s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
			Expect(me.Code).To(Equal(http.StatusOK))
			Expect(me.Body.String()).To(ContainSubstring("asha@uni.edu"))
		})

		It("should reject requests without a token", func() {
			w := s.do(http.MethodGet, "/api/v1/tasks", "", nil)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should revoke the access token on logout", func() {
			s.seedUser("staff@uni.edu", rbac.RoleStaff, rbac.DepartmentCSE)
			token := s.login("staff@uni.edu")

			Expect(s.do(http.MethodPost, "/api/v1/auth/logout", token, nil).Code).To(Equal(http.StatusNoContent))
			Expect(s.do(http.MethodGet, "/api/v1/auth/me", token, nil).Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("tasks and comments", func() {
		var staff, head, otherHead string

		BeforeEach(func() {
			s.seedUser("staff@uni.edu", rbac.RoleStaff, rbac.DepartmentCSE)
			s.seedUser("head@uni.edu", rbac.RoleDepartmentHead, rbac.DepartmentCSE)
			s.seedUser("ecehead@uni.edu", rbac.RoleDepartmentHead, rbac.DepartmentECE)
			staff = s.login("staff@uni.edu")
			head = s.login("head@uni.edu")
			otherHead = s.login("ecehead@uni.edu")
		})

		It("should run a task from creation to approval", func() {
			w := s.do(http.MethodPost, "/api/v1/tasks", staff, map[string]string{"title": "Digitise 1998 theses", "priority": "High"})
			Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
			created := decode[task.Task](w)
			Expect(created.Status).To(Equal(task.StatusNotStarted))
			Expect(created.Department).To(Equal(rbac.DepartmentCSE))

			w = s.do(http.MethodPut, "/api/v1/tasks/"+created.ID, staff, map[string]string{"status": "Pending Approval"})
			Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

			w = s.do(http.MethodPost, "/api/v1/tasks/"+created.ID+"/approve", staff, nil)
			Expect(w.Code).To(Equal(http.StatusForbidden))

			w = s.do(http.MethodPost, "/api/v1/tasks/"+created.ID+"/approve", head, nil)
			Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())
			approved := decode[task.Task](w)
			Expect(approved.Status).To(Equal(task.StatusDone))
			Expect(approved.ApprovedAt).NotTo(BeNil())
		})

		It("should hide tasks from other departments", func() {
			w := s.do(http.MethodPost, "/api/v1/tasks", staff, map[string]string{"title": "Inventory"})
			Expect(w.Code).To(Equal(http.StatusCreated))
			created := decode[task.Task](w)

			w = s.do(http.MethodGet, "/api/v1/tasks/"+created.ID, otherHead, nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))

			list := decode[task.TasksResponse](s.do(http.MethodGet, "/api/v1/tasks", otherHead, nil))
			Expect(list.Tasks).To(BeEmpty())
		})

		It("should thread comments on a visible task", func() {
			created := decode[task.Task](s.do(http.MethodPost, "/api/v1/tasks", staff, map[string]string{"title": "Scan maps"}))

			w := s.do(http.MethodPost, "/api/v1/tasks/"+created.ID+"/comments", head, map[string]string{"text": "Use 600dpi"})
			Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())

			w = s.do(http.MethodPost, "/api/v1/tasks/"+created.ID+"/comments", staff, map[string]string{"text": "   "})
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			thread := decode[comment.CommentsResponse](s.do(http.MethodGet, "/api/v1/tasks/"+created.ID+"/comments", staff, nil))
			Expect(thread.Count).To(Equal(1))
			Expect(thread.Comments[0].Text).To(Equal("Use 600dpi"))
			Expect(thread.Comments[0].AuthorName).To(Equal(string(rbac.RoleDepartmentHead)))

			w = s.do(http.MethodGet, "/api/v1/tasks/"+created.ID+"/comments", otherHead, nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("reports", func() {
		var staff string

		BeforeEach(func() {
			s.seedUser("staff@uni.edu", rbac.RoleStaff, rbac.DepartmentCSE)
			staff = s.login("staff@uni.edu")
			for _, title := range []string{"Box 1", "Box 2"} {
				Expect(s.do(http.MethodPost, "/api/v1/tasks", staff, map[string]string{"title": title}).Code).To(Equal(http.StatusCreated))
			}
		})

		It("should generate, read and export a task summary", func() {
			w := s.do(http.MethodPost, "/api/v1/reports/generate", staff, map[string]interface{}{"template": "task_summary"})
			Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
			rep := decode[report.Report](w)
			Expect(rep.Department).NotTo(BeNil())
			Expect(*rep.Department).To(Equal(rbac.DepartmentCSE))

			w = s.do(http.MethodGet, "/api/v1/reports/"+rep.ID, staff, nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			w = s.do(http.MethodGet, "/api/v1/reports/"+rep.ID+"/export?format=csv", staff, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/csv"))
			Expect(w.Body.String()).To(ContainSubstring("Box 1"))

			list := decode[report.ReportsResponse](s.do(http.MethodGet, "/api/v1/reports/department/CSE", staff, nil))
			Expect(list.Count).To(Equal(1))
		})

		It("should reject an unknown template", func() {
			w := s.do(http.MethodPost, "/api/v1/reports/generate", staff, map[string]interface{}{"template": "budget"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(w)).To(Equal("INVALID_TEMPLATE"))
		})

		It("should keep template creation behind manage_roles", func() {
			w := s.do(http.MethodPost, "/api/v1/reports/templates", staff, map[string]interface{}{"name": "mine", "type": "task_summary"})
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})
	})
})
