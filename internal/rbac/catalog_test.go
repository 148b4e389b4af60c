package rbac_test

import (
	"os"
	"path/filepath"

	"github.com/frahmantamala/archival-system/internal/rbac"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Catalog", func() {
	Describe("DefaultCatalog", func() {
		It("should define every role", func() {
			catalog, err := rbac.DefaultCatalog()
			Expect(err).NotTo(HaveOccurred())

			for _, role := range rbac.AllRoles() {
				Expect(catalog.Has(role)).To(BeTrue(), string(role))
			}
		})

		It("should let faculty inherit staff", func() {
			catalog, err := rbac.DefaultCatalog()
			Expect(err).NotTo(HaveOccurred())

			inherited, err := catalog.InheritedRoles(rbac.RoleFaculty)
			Expect(err).NotTo(HaveOccurred())
			Expect(inherited).To(Equal([]rbac.Role{rbac.RoleStaff}))
		})

		It("should grant department_head department reports", func() {
			catalog, err := rbac.DefaultCatalog()
			Expect(err).NotTo(HaveOccurred())

			perms, err := catalog.DirectPermissions(rbac.RoleDepartmentHead)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(ContainElement(rbac.PermGenerateDepartmentReports))
			Expect(perms).NotTo(ContainElement(rbac.PermViewAllTasks))
		})

		It("should list the hierarchy highest first", func() {
			catalog, err := rbac.DefaultCatalog()
			Expect(err).NotTo(HaveOccurred())
			Expect(catalog.Hierarchy()).To(Equal([]rbac.Role{
				rbac.RoleSuperAdmin, rbac.RoleAdmin, rbac.RoleDepartmentHead, rbac.RoleFaculty, rbac.RoleStaff,
			}))
		})
	})

	Describe("lookups", func() {
		It("should fail with ErrUnknownRole for an unknown role", func() {
			catalog, err := rbac.DefaultCatalog()
			Expect(err).NotTo(HaveOccurred())

			_, err = catalog.DirectPermissions("janitor")
			Expect(err).To(MatchError(rbac.ErrUnknownRole))

			_, err = catalog.InheritedRoles("janitor")
			Expect(err).To(MatchError(rbac.ErrUnknownRole))
		})
	})

	Describe("NewCatalog", func() {
		var (
			defs      []rbac.RoleDefinition
			hierarchy []rbac.Role
		)

		BeforeEach(func() {
			hierarchy = []rbac.Role{rbac.RoleSuperAdmin, rbac.RoleAdmin, rbac.RoleDepartmentHead, rbac.RoleFaculty, rbac.RoleStaff}
			defs = []rbac.RoleDefinition{
				{Role: rbac.RoleSuperAdmin},
				{Role: rbac.RoleAdmin, Inherits: []rbac.Role{rbac.RoleDepartmentHead}},
				{Role: rbac.RoleDepartmentHead, Inherits: []rbac.Role{rbac.RoleFaculty}},
				{Role: rbac.RoleFaculty, Inherits: []rbac.Role{rbac.RoleStaff}},
				{Role: rbac.RoleStaff, Permissions: []rbac.Permission{rbac.PermCreateTask}},
			}
		})

		It("should accept an arbitrary acyclic inheritance chain", func() {
			_, err := rbac.NewCatalog(defs, hierarchy)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject an inheritance cycle", func() {
			defs[4].Inherits = []rbac.Role{rbac.RoleAdmin}

			_, err := rbac.NewCatalog(defs, hierarchy)
			Expect(err).To(MatchError(ContainSubstring("cycle")))
		})

		It("should reject a missing role definition", func() {
			_, err := rbac.NewCatalog(defs[:4], hierarchy)
			Expect(err).To(MatchError(ContainSubstring("staff is not defined")))
		})

		It("should reject an unknown permission", func() {
			defs[4].Permissions = append(defs[4].Permissions, "fly")

			_, err := rbac.NewCatalog(defs, hierarchy)
			Expect(err).To(MatchError(rbac.ErrUnknownPermission))
		})

		It("should reject a hierarchy that omits a role", func() {
			_, err := rbac.NewCatalog(defs, hierarchy[:4])
			Expect(err).To(HaveOccurred())
		})

		It("should reject a hierarchy that repeats a role", func() {
			_, err := rbac.NewCatalog(defs, append(hierarchy, rbac.RoleStaff))
			Expect(err).To(MatchError(ContainSubstring("twice")))
		})
	})

	Describe("LoadCatalog", func() {
		It("should fall back to the embedded catalog for an empty path", func() {
			catalog, err := rbac.LoadCatalog("")
			Expect(err).NotTo(HaveOccurred())
			Expect(catalog.Has(rbac.RoleStaff)).To(BeTrue())
		})

		It("should reject unknown YAML fields", func() {
			path := filepath.Join(GinkgoT().TempDir(), "catalog.yaml")
			Expect(os.WriteFile(path, []byte("hierarchy: []\nroles: {}\nextra: true\n"), 0o600)).To(Succeed())

			_, err := rbac.LoadCatalog(path)
			Expect(err).To(HaveOccurred())
		})

		It("should report a missing file", func() {
			_, err := rbac.LoadCatalog("/does/not/exist.yaml")
			Expect(err).To(MatchError(ContainSubstring("read role catalog")))
		})
	})

	Describe("IsHigherRank", func() {
		var catalog *rbac.Catalog

		BeforeEach(func() {
			var err error
			catalog, err = rbac.DefaultCatalog()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should put super_admin above every other role", func() {
			for _, role := range rbac.AllRoles() {
				if role == rbac.RoleSuperAdmin {
					continue
				}
				Expect(catalog.IsHigherRank(rbac.RoleSuperAdmin, role)).To(BeTrue())
				Expect(catalog.IsHigherRank(role, rbac.RoleSuperAdmin)).To(BeFalse())
			}
		})

		It("should follow the authority order", func() {
			Expect(catalog.IsHigherRank(rbac.RoleAdmin, rbac.RoleFaculty)).To(BeTrue())
			Expect(catalog.IsHigherRank(rbac.RoleFaculty, rbac.RoleAdmin)).To(BeFalse())
			Expect(catalog.IsHigherRank(rbac.RoleStaff, rbac.RoleStaff)).To(BeFalse())
		})

		It("should never rank unknown roles higher", func() {
			Expect(catalog.IsHigherRank("janitor", rbac.RoleStaff)).To(BeFalse())
			Expect(catalog.IsHigherRank(rbac.RoleAdmin, "janitor")).To(BeFalse())
		})
	})
})
