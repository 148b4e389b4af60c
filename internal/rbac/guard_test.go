package rbac_test

import (
	"io"
	"log/slog"

	"github.com/frahmantamala/archival-system/internal/rbac"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Guard", func() {
	var guard *rbac.Guard

	BeforeEach(func() {
		catalog, err := rbac.DefaultCatalog()
		Expect(err).NotTo(HaveOccurred())
		guard = rbac.NewGuard(rbac.NewResolver(catalog), slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	principal := func(dept rbac.Department, roles ...rbac.Role) *rbac.Principal {
		return &rbac.Principal{ID: "u-1", Department: dept, Roles: roles}
	}

	Describe("HasPermission", func() {
		It("should deny a nil principal", func() {
			Expect(guard.HasPermission(nil, rbac.PermCreateTask)).To(BeFalse())
		})

		It("should allow super_admin every permission", func() {
			p := principal(rbac.DepartmentAdmin, rbac.RoleSuperAdmin)
			for _, perm := range rbac.AllPermissions() {
				Expect(guard.HasPermission(p, perm)).To(BeTrue(), string(perm))
			}
			Expect(guard.HasPermission(p, "anything_at_all")).To(BeTrue())
		})

		It("should allow super_admin even under an empty catalog entry", func() {
			catalog, err := rbac.NewCatalog([]rbac.RoleDefinition{
				{Role: rbac.RoleSuperAdmin},
				{Role: rbac.RoleAdmin},
				{Role: rbac.RoleDepartmentHead},
				{Role: rbac.RoleFaculty},
				{Role: rbac.RoleStaff},
			}, []rbac.Role{rbac.RoleSuperAdmin, rbac.RoleAdmin, rbac.RoleDepartmentHead, rbac.RoleFaculty, rbac.RoleStaff})
			Expect(err).NotTo(HaveOccurred())

			bare := rbac.NewGuard(rbac.NewResolver(catalog), nil)
			Expect(bare.HasPermission(principal(rbac.DepartmentCSE, rbac.RoleSuperAdmin), rbac.PermDeleteTask)).To(BeTrue())
			Expect(bare.HasPermission(principal(rbac.DepartmentCSE, rbac.RoleAdmin), rbac.PermDeleteTask)).To(BeFalse())
		})

		It("should resolve inherited permissions", func() {
			Expect(guard.HasPermission(principal(rbac.DepartmentCSE, rbac.RoleFaculty), rbac.PermViewAssignedTasks)).To(BeTrue())
			Expect(guard.HasPermission(principal(rbac.DepartmentCSE, rbac.RoleStaff), rbac.PermApproveTask)).To(BeFalse())
		})

		It("should ignore a stale permission snapshot", func() {
			p := principal(rbac.DepartmentCSE, rbac.RoleStaff)
			p.Permissions = []rbac.Permission{rbac.PermApproveTask, rbac.PermViewAllTasks}

			Expect(guard.HasPermission(p, rbac.PermApproveTask)).To(BeFalse())
			Expect(guard.HasPermission(p, rbac.PermCreateTask)).To(BeTrue())
		})

		It("should skip unknown roles without failing", func() {
			p := principal(rbac.DepartmentCSE, "janitor", rbac.RoleStaff)
			Expect(guard.HasPermission(p, rbac.PermCreateTask)).To(BeTrue())
			Expect(guard.Permissions(principal(rbac.DepartmentCSE, "janitor")).Len()).To(BeZero())
		})
	})

	Describe("CanActOnResource", func() {
		It("should allow the principal's own department", func() {
			p := principal(rbac.DepartmentCSE, rbac.RoleStaff)
			Expect(guard.CanActOnResource(p, rbac.PermEditTask, rbac.DepartmentCSE)).To(BeTrue())
		})

		It("should deny another department without view_all_tasks", func() {
			p := principal(rbac.DepartmentCSE, rbac.RoleStaff)
			Expect(guard.CanActOnResource(p, rbac.PermViewAllTasks, rbac.DepartmentECE)).To(BeFalse())
		})

		It("should allow any department with view_all_tasks", func() {
			p := principal(rbac.DepartmentCSE, rbac.RoleAdmin)
			Expect(guard.CanActOnResource(p, rbac.PermViewAllTasks, rbac.DepartmentECE)).To(BeTrue())
		})

		It("should deny a nil principal", func() {
			Expect(guard.CanActOnResource(nil, rbac.PermEditTask, rbac.DepartmentCSE)).To(BeFalse())
		})
	})

	Describe("CanAssignRoles", func() {
		It("should let admin assign lower roles", func() {
			p := principal(rbac.DepartmentAdmin, rbac.RoleAdmin)
			Expect(guard.CanAssignRoles(p, []rbac.Role{rbac.RoleFaculty, rbac.RoleStaff})).To(BeTrue())
		})

		It("should deny assigning an equal rank", func() {
			p := principal(rbac.DepartmentAdmin, rbac.RoleAdmin)
			Expect(guard.CanAssignRoles(p, []rbac.Role{rbac.RoleAdmin})).To(BeFalse())
		})

		It("should deny the whole batch when one role is out of reach", func() {
			p := principal(rbac.DepartmentCSE, rbac.RoleDepartmentHead)
			Expect(guard.CanAssignRoles(p, []rbac.Role{rbac.RoleStaff, rbac.RoleAdmin})).To(BeFalse())
		})

		It("should reserve super_admin for super_admins", func() {
			Expect(guard.CanAssignRoles(principal(rbac.DepartmentAdmin, rbac.RoleAdmin), []rbac.Role{rbac.RoleSuperAdmin})).To(BeFalse())
			Expect(guard.CanAssignRoles(principal(rbac.DepartmentAdmin, rbac.RoleSuperAdmin), []rbac.Role{rbac.RoleSuperAdmin})).To(BeTrue())
		})

		It("should deny an empty batch", func() {
			Expect(guard.CanAssignRoles(principal(rbac.DepartmentAdmin, rbac.RoleAdmin), nil)).To(BeFalse())
		})
	})
})
