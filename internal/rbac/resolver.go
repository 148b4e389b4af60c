package rbac

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// PermissionSet is an immutable set of permissions. The zero value is empty.
type PermissionSet struct {
	perms map[Permission]struct{}
}

func newPermissionSet(perms ...Permission) PermissionSet {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return PermissionSet{perms: m}
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s.perms[p]
	return ok
}

func (s PermissionSet) Len() int {
	return len(s.perms)
}

// List returns the permissions in name order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether every permission of other is in s.
func (s PermissionSet) Contains(other PermissionSet) bool {
	for p := range other.perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

func (s PermissionSet) union(other PermissionSet) PermissionSet {
	m := make(map[Permission]struct{}, len(s.perms)+len(other.perms))
	for p := range s.perms {
		m[p] = struct{}{}
	}
	for p := range other.perms {
		m[p] = struct{}{}
	}
	return PermissionSet{perms: m}
}

// Resolver derives effective permissions from the catalog. Results are
// memoized for the life of the process: the catalog never changes after
// construction, so entries are never invalidated.
type Resolver struct {
	catalog *Catalog

	roles sync.Map // Role -> PermissionSet
	sets  sync.Map // canonical role-set key -> PermissionSet
	group singleflight.Group
}

func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// ResolveRolePermissions returns the direct permissions of role unioned with
// everything its inherited roles resolve to.
func (r *Resolver) ResolveRolePermissions(role Role) (PermissionSet, error) {
	if cached, ok := r.roles.Load(role); ok {
		cacheHits.WithLabelValues("role").Inc()
		return cached.(PermissionSet), nil
	}
	if !r.catalog.Has(role) {
		return PermissionSet{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	cacheMisses.WithLabelValues("role").Inc()

	v, err, _ := r.group.Do("role:"+string(role), func() (interface{}, error) {
		set, err := r.resolveRole(role)
		if err != nil {
			return nil, err
		}
		r.roles.Store(role, set)
		return set, nil
	})
	if err != nil {
		return PermissionSet{}, err
	}
	return v.(PermissionSet), nil
}

func (r *Resolver) resolveRole(role Role) (PermissionSet, error) {
	direct, err := r.catalog.DirectPermissions(role)
	if err != nil {
		return PermissionSet{}, err
	}
	set := newPermissionSet(direct...)

	inherited, err := r.catalog.InheritedRoles(role)
	if err != nil {
		return PermissionSet{}, err
	}
	for _, parent := range inherited {
		// The catalog is acyclic, so recursion terminates.
		parentSet, err := r.ResolveRolePermissions(parent)
		if err != nil {
			return PermissionSet{}, err
		}
		set = set.union(parentSet)
	}
	return set, nil
}

// ResolvePrincipalPermissions unions the resolved permissions of every role.
// The cache key is the sorted, de-duplicated role list, so order and
// repetition do not matter. An empty role set resolves to an empty set.
func (r *Resolver) ResolvePrincipalPermissions(roles []Role) (PermissionSet, error) {
	key := roleSetKey(roles)
	if cached, ok := r.sets.Load(key); ok {
		cacheHits.WithLabelValues("role_set").Inc()
		return cached.(PermissionSet), nil
	}
	cacheMisses.WithLabelValues("role_set").Inc()

	v, err, _ := r.group.Do("set:"+key, func() (interface{}, error) {
		set := newPermissionSet()
		for _, role := range roles {
			rs, err := r.ResolveRolePermissions(role)
			if err != nil {
				return nil, err
			}
			set = set.union(rs)
		}
		r.sets.Store(key, set)
		return set, nil
	})
	if err != nil {
		return PermissionSet{}, err
	}
	return v.(PermissionSet), nil
}

// IsHigherRank delegates to the catalog's authority order.
func (r *Resolver) IsHigherRank(a, b Role) bool {
	return r.catalog.IsHigherRank(a, b)
}

func roleSetKey(roles []Role) string {
	names := make([]string, 0, len(roles))
	seen := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		names = append(names, string(role))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
