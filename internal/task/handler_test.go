package task_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/archival-system/internal/auth"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/task"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/frahmantamala/archival-system/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Task Handler", func() {
	var (
		repo   *mockRepository
		router *chi.Mux
		caller *auth.User
	)

	BeforeEach(func() {
		catalog, err := rbac.DefaultCatalog()
		Expect(err).NotTo(HaveOccurred())
		guard := rbac.NewGuard(rbac.NewResolver(catalog), discardLogger())

		repo = newMockRepository()
		directory := &mockDirectory{users: map[string]*user.User{}}
		service := task.NewService(repo, guard, directory, &recordingPublisher{}, discardLogger(), true)
		handler := task.NewHandler(transport.NewBaseHandler(discardLogger()), service)

		caller = &auth.User{ID: "cse-staff", Department: rbac.DepartmentCSE, Roles: []rbac.Role{rbac.RoleStaff}, IsActive: true}

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if caller != nil {
					r = r.WithContext(auth.ContextWithUser(r.Context(), caller))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Post("/tasks", handler.CreateTask)
		router.Get("/tasks", handler.ListTasks)
		router.Get("/tasks/{id}", handler.GetTask)
		router.Put("/tasks/{id}", handler.UpdateTask)
		router.Post("/tasks/{id}/approve", handler.ApproveTask)
		router.Post("/tasks/{id}/archive", handler.ArchiveTask)
	})

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf).WithContext(context.Background())
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Error.Code
	}

	create := func() task.Task {
		rec := do(http.MethodPost, "/tasks", task.CreateTaskDTO{Title: "Index manuscripts", Priority: "High"})
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var t task.Task
		Expect(json.Unmarshal(rec.Body.Bytes(), &t)).To(Succeed())
		return t
	}

	It("creates and reads back a task", func() {
		created := create()
		Expect(created.Department).To(Equal(rbac.DepartmentCSE))
		Expect(created.Status).To(Equal(task.StatusNotStarted))

		rec := do(http.MethodGet, "/tasks/"+created.ID, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("returns 401 without a principal", func() {
		caller = nil
		rec := do(http.MethodGet, "/tasks", nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("returns 404 for a missing task", func() {
		rec := do(http.MethodGet, "/tasks/missing", nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(errorCode(rec)).To(Equal("TASK_NOT_FOUND"))
	})

	It("updates a task and rejects an edit to Done", func() {
		created := create()

		rec := do(http.MethodPut, "/tasks/"+created.ID, map[string]string{"status": "Pending Approval"})
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodPut, "/tasks/"+created.ID, map[string]string{"status": "Done"})
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(errorCode(rec)).To(Equal("INVALID_TRANSITION"))
	})

	It("forbids approval without approve_task", func() {
		created := create()
		rec := do(http.MethodPost, "/tasks/"+created.ID+"/approve", nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(errorCode(rec)).To(Equal("PERMISSION_DENIED"))
	})

	It("approves and archives as an admin", func() {
		created := create()
		Expect(do(http.MethodPut, "/tasks/"+created.ID, map[string]string{"status": "Pending Approval"}).Code).To(Equal(http.StatusOK))

		caller = &auth.User{ID: "admin", Department: rbac.DepartmentAdmin, Roles: []rbac.Role{rbac.RoleAdmin}, IsActive: true}
		Expect(do(http.MethodPost, "/tasks/"+created.ID+"/approve", nil).Code).To(Equal(http.StatusOK))

		rec := do(http.MethodPost, "/tasks/"+created.ID+"/archive", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var archived task.Task
		Expect(json.Unmarshal(rec.Body.Bytes(), &archived)).To(Succeed())
		Expect(archived.Status).To(Equal(task.StatusArchived))
		Expect(archived.ArchivedAt).NotTo(BeNil())
	})

	It("lists tasks with the resolved page", func() {
		create()
		rec := do(http.MethodGet, "/tasks?limit=500&offset=0", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp task.TasksResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Count).To(Equal(1))
		Expect(resp.Limit).To(Equal(100))
	})

	It("rejects a malformed query parameter", func() {
		rec := do(http.MethodGet, "/tasks?include_archived=maybe", nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("denies another department's listing to staff", func() {
		rec := do(http.MethodGet, "/tasks?department=ECE", nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})
})
