package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = Describe("Auth Handler", func() {
	var (
		repo    *mockUserRepository
		router  *chi.Mux
		service *Service
	)

	BeforeEach(func() {
		repo = newMockUserRepository()
		hasher := NewBcryptHasher(bcrypt.MinCost)
		tokens := NewJWTTokenGenerator("access-secret-0123456789", "refresh-secret-0123456789", time.Hour, 24*time.Hour)
		guard := newTestGuard()
		service = NewService(repo, tokens, hasher, NewMemoryDenylist(), guard, discardLogger())

		base := transport.NewBaseHandler(discardLogger())
		handler := NewHandler(base, service)
		rbacAuth := NewRBACAuthorization(guard, discardLogger())

		seedUser(repo, hasher, "u1", "user@example.com", []string{"staff"}, true)

		router = chi.NewRouter()
		router.Post("/auth/register", handler.Register)
		router.Post("/auth/login", handler.Login)
		router.Post("/auth/refresh", handler.RefreshToken)
		router.Post("/auth/logout", handler.Logout)
		router.Group(func(r chi.Router) {
			r.Use(handler.AuthMiddleware)
			r.Get("/auth/authorize", handler.Authorize)
			r.With(rbacAuth.Require(rbac.PermManageUsers)).Get("/admin-only", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})
	})

	do := func(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	login := func() AuthResult {
		rec := do(http.MethodPost, "/auth/login", LoginDTO{Email: "user@example.com", Password: "correct_password"}, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var result AuthResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
		return result
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

	It("registers and returns 201", func() {
		rec := do(http.MethodPost, "/auth/register", RegisterDTO{
			Name: "New", Email: "new@example.com", Password: "longenough", Department: "ECE",
		}, "")
		Expect(rec.Code).To(Equal(http.StatusCreated))
	})

	It("returns 409 for a taken email", func() {
		rec := do(http.MethodPost, "/auth/register", RegisterDTO{
			Name: "Dup", Email: "user@example.com", Password: "longenough", Department: "ECE",
		}, "")
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(errorCode(rec)).To(Equal("EMAIL_TAKEN"))
	})

	It("returns 401 for bad credentials", func() {
		rec := do(http.MethodPost, "/auth/login", LoginDTO{Email: "user@example.com", Password: "nope"}, "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(rec)).To(Equal("INVALID_CREDENTIALS"))
	})

	It("rejects unknown body fields", func() {
		rec := do(http.MethodPost, "/auth/login", map[string]string{"username": "x"}, "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("answers authorize queries for the caller", func() {
		tokens := login()

		rec := do(http.MethodGet, "/auth/authorize?permission=create_task", nil, tokens.AccessToken)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp AuthorizeResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp).To(Equal(AuthorizeResponse{Permission: "create_task", Allowed: true}))
	})

	It("requires a token on protected routes", func() {
		rec := do(http.MethodGet, "/auth/authorize?permission=create_task", nil, "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("gates routes on a permission", func() {
		tokens := login()
		rec := do(http.MethodGet, "/admin-only", nil, tokens.AccessToken)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(errorCode(rec)).To(Equal("PERMISSION_DENIED"))
	})

	It("refreshes and then logs out", func() {
		tokens := login()

		rec := do(http.MethodPost, "/auth/refresh", RefreshTokenDTO{RefreshToken: tokens.RefreshToken}, "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodPost, "/auth/logout", nil, tokens.AccessToken)
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = do(http.MethodGet, "/auth/authorize?permission=create_task", nil, tokens.AccessToken)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(rec)).To(Equal("TOKEN_REVOKED"))
	})
})
