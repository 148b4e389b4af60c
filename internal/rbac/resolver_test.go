package rbac_test

import (
	"sync"

	"github.com/frahmantamala/archival-system/internal/rbac"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolver", func() {
	var resolver *rbac.Resolver

	BeforeEach(func() {
		catalog, err := rbac.DefaultCatalog()
		Expect(err).NotTo(HaveOccurred())
		resolver = rbac.NewResolver(catalog)
	})

	Describe("ResolveRolePermissions", func() {
		It("should contain the direct permissions of every role", func() {
			for _, role := range rbac.AllRoles() {
				set, err := resolver.ResolveRolePermissions(role)
				Expect(err).NotTo(HaveOccurred())

				direct, err := resolver.Catalog().DirectPermissions(role)
				Expect(err).NotTo(HaveOccurred())
				for _, p := range direct {
					Expect(set.Has(p)).To(BeTrue(), "%s should have %s", role, p)
				}
			}
		})

		It("should contain the resolved permissions of every inherited role", func() {
			for _, role := range rbac.AllRoles() {
				set, err := resolver.ResolveRolePermissions(role)
				Expect(err).NotTo(HaveOccurred())

				inherited, err := resolver.Catalog().InheritedRoles(role)
				Expect(err).NotTo(HaveOccurred())
				for _, parent := range inherited {
					parentSet, err := resolver.ResolveRolePermissions(parent)
					Expect(err).NotTo(HaveOccurred())
					Expect(set.Contains(parentSet)).To(BeTrue())
				}
			}
		})

		It("should give faculty everything staff has", func() {
			faculty, err := resolver.ResolveRolePermissions(rbac.RoleFaculty)
			Expect(err).NotTo(HaveOccurred())
			staff, err := resolver.ResolveRolePermissions(rbac.RoleStaff)
			Expect(err).NotTo(HaveOccurred())

			Expect(faculty.Contains(staff)).To(BeTrue())
			Expect(faculty.Has(rbac.PermViewAssignedTasks)).To(BeTrue())
		})

		It("should fail for an unknown role", func() {
			_, err := resolver.ResolveRolePermissions("janitor")
			Expect(err).To(MatchError(rbac.ErrUnknownRole))
		})

		It("should resolve a deep inheritance chain", func() {
			catalog, err := rbac.NewCatalog([]rbac.RoleDefinition{
				{Role: rbac.RoleSuperAdmin},
				{Role: rbac.RoleAdmin, Permissions: []rbac.Permission{rbac.PermManageUsers}, Inherits: []rbac.Role{rbac.RoleDepartmentHead}},
				{Role: rbac.RoleDepartmentHead, Permissions: []rbac.Permission{rbac.PermApproveTask}, Inherits: []rbac.Role{rbac.RoleFaculty, rbac.RoleStaff}},
				{Role: rbac.RoleFaculty, Permissions: []rbac.Permission{rbac.PermEditTask}, Inherits: []rbac.Role{rbac.RoleStaff}},
				{Role: rbac.RoleStaff, Permissions: []rbac.Permission{rbac.PermCreateTask}},
			}, []rbac.Role{rbac.RoleSuperAdmin, rbac.RoleAdmin, rbac.RoleDepartmentHead, rbac.RoleFaculty, rbac.RoleStaff})
			Expect(err).NotTo(HaveOccurred())

			set, err := rbac.NewResolver(catalog).ResolveRolePermissions(rbac.RoleAdmin)
			Expect(err).NotTo(HaveOccurred())
			Expect(set.List()).To(ConsistOf(
				rbac.PermManageUsers, rbac.PermApproveTask, rbac.PermEditTask, rbac.PermCreateTask,
			))
		})
	})

	Describe("ResolvePrincipalPermissions", func() {
		It("should union the roles", func() {
			set, err := resolver.ResolvePrincipalPermissions([]rbac.Role{rbac.RoleStaff, rbac.RoleDepartmentHead})
			Expect(err).NotTo(HaveOccurred())

			Expect(set.Has(rbac.PermGenerateDepartmentReports)).To(BeTrue())
			Expect(set.Has(rbac.PermViewAssignedTasks)).To(BeTrue())
			Expect(set.Has(rbac.PermViewAllTasks)).To(BeFalse())
		})

		It("should not depend on role order or repetition", func() {
			a, err := resolver.ResolvePrincipalPermissions([]rbac.Role{rbac.RoleFaculty, rbac.RoleAdmin})
			Expect(err).NotTo(HaveOccurred())
			b, err := resolver.ResolvePrincipalPermissions([]rbac.Role{rbac.RoleAdmin, rbac.RoleFaculty, rbac.RoleAdmin})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.List()).To(Equal(b.List()))
		})

		It("should resolve an empty role set to no permissions", func() {
			set, err := resolver.ResolvePrincipalPermissions(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(set.Len()).To(BeZero())
		})

		It("should fail when any role is unknown", func() {
			_, err := resolver.ResolvePrincipalPermissions([]rbac.Role{rbac.RoleStaff, "janitor"})
			Expect(err).To(MatchError(rbac.ErrUnknownRole))
		})

		It("should return the same answer under concurrent callers", func() {
			expected, err := resolver.ResolvePrincipalPermissions([]rbac.Role{rbac.RoleFaculty})
			Expect(err).NotTo(HaveOccurred())

			fresh := rbac.NewResolver(resolver.Catalog())
			var wg sync.WaitGroup
			results := make([][]rbac.Permission, 32)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					defer GinkgoRecover()
					set, err := fresh.ResolvePrincipalPermissions([]rbac.Role{rbac.RoleFaculty})
					Expect(err).NotTo(HaveOccurred())
					results[i] = set.List()
				}(i)
			}
			wg.Wait()

			for _, r := range results {
				Expect(r).To(Equal(expected.List()))
			}
		})
	})
})
