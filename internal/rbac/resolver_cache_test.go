package rbac

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Resolver memoization", func() {
	var resolver *Resolver

	counts := func(kind string) (hits, misses float64) {
		return testutil.ToFloat64(cacheHits.WithLabelValues(kind)), testutil.ToFloat64(cacheMisses.WithLabelValues(kind))
	}

	BeforeEach(func() {
		catalog, err := DefaultCatalog()
		Expect(err).NotTo(HaveOccurred())
		resolver = NewResolver(catalog)
	})

	It("resolves a role set once regardless of order", func() {
		hits0, misses0 := counts("role_set")

		first, err := resolver.ResolvePrincipalPermissions([]Role{RoleFaculty, RoleAdmin})
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < 9; i++ {
			roles := []Role{RoleAdmin, RoleFaculty}
			if i%2 == 0 {
				roles = []Role{RoleFaculty, RoleAdmin, RoleFaculty}
			}
			set, err := resolver.ResolvePrincipalPermissions(roles)
			Expect(err).NotTo(HaveOccurred())
			Expect(set.List()).To(Equal(first.List()))
		}

		hits, misses := counts("role_set")
		Expect(misses - misses0).To(Equal(1.0))
		Expect(hits - hits0).To(Equal(9.0))
	})

	It("resolves a single role once", func() {
		_, err := resolver.ResolveRolePermissions(RoleDepartmentHead)
		Expect(err).NotTo(HaveOccurred())
		hits0, misses0 := counts("role")

		for i := 0; i < 3; i++ {
			_, err := resolver.ResolveRolePermissions(RoleDepartmentHead)
			Expect(err).NotTo(HaveOccurred())
		}

		hits, misses := counts("role")
		Expect(misses - misses0).To(Equal(0.0))
		Expect(hits - hits0).To(Equal(3.0))
	})
})
