package rbac

import "log/slog"

// Principal is the authenticated actor an authorization question is asked
// about. Permissions is the stored snapshot; decisions never read it.
type Principal struct {
	ID          string
	Department  Department
	Roles       []Role
	Permissions []Permission
}

func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Guard answers authorization questions. Every decision is computed from the
// principal's current roles through the memoized resolver.
type Guard struct {
	resolver *Resolver
	logger   *slog.Logger
}

func NewGuard(resolver *Resolver, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{resolver: resolver, logger: logger}
}

func (g *Guard) Resolver() *Resolver {
	return g.resolver
}

// Permissions returns the live permission set of p. Roles the catalog does
// not know contribute nothing.
func (g *Guard) Permissions(p *Principal) PermissionSet {
	if p == nil {
		return PermissionSet{}
	}
	roles := g.knownRoles(p)
	set, err := g.resolver.ResolvePrincipalPermissions(roles)
	if err != nil {
		// knownRoles already filtered, so this is a catalog defect.
		g.logger.Error("resolve principal permissions", "user_id", p.ID, "error", err)
		return PermissionSet{}
	}
	return set
}

func (g *Guard) HasPermission(p *Principal, permission Permission) bool {
	if p == nil {
		recordDecision(permission, false)
		return false
	}
	if p.HasRole(RoleSuperAdmin) {
		recordDecision(permission, true)
		return true
	}
	allowed := g.Permissions(p).Has(permission)
	recordDecision(permission, allowed)
	return allowed
}

// CanActOnResource applies department scoping: principals holding
// view_all_tasks reach every department, everyone else only their own.
// The action permission itself is checked separately by the caller.
func (g *Guard) CanActOnResource(p *Principal, permission Permission, department Department) bool {
	if p == nil {
		return false
	}
	if g.HasPermission(p, PermViewAllTasks) {
		return true
	}
	allowed := department != "" && department == p.Department
	if !allowed {
		g.logger.Debug("department scope denied",
			"user_id", p.ID,
			"permission", permission,
			"user_department", p.Department,
			"resource_department", department)
	}
	return allowed
}

// CanAssignRoles reports whether p may grant every role in targets. Each
// target must be outranked by one of p's roles, and super_admin can only be
// granted by a super_admin. Any unmet condition denies the whole batch.
func (g *Guard) CanAssignRoles(p *Principal, targets []Role) bool {
	if p == nil || len(targets) == 0 {
		return false
	}
	for _, target := range targets {
		if target == RoleSuperAdmin && !p.HasRole(RoleSuperAdmin) {
			return false
		}
		dominated := false
		for _, held := range p.Roles {
			if g.resolver.IsHigherRank(held, target) {
				dominated = true
				break
			}
		}
		if !dominated {
			return false
		}
	}
	return true
}

func (g *Guard) knownRoles(p *Principal) []Role {
	roles := make([]Role, 0, len(p.Roles))
	for _, r := range p.Roles {
		if !g.resolver.Catalog().Has(r) {
			g.logger.Warn("ignoring unknown role", "user_id", p.ID, "role", r)
			continue
		}
		roles = append(roles, r)
	}
	return roles
}
