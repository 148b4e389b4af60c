package rbac

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// RoleDefinition is one row of the catalog: what a role grants directly and
// which roles it inherits from.
type RoleDefinition struct {
	Role        Role
	Description string
	Permissions []Permission
	Inherits    []Role
}

// Catalog is the read-only role table. It is built once at startup and never
// mutated afterwards.
type Catalog struct {
	definitions map[Role]RoleDefinition
	hierarchy   []Role
	rank        map[Role]int
}

type catalogFile struct {
	Hierarchy []string                   `yaml:"hierarchy"`
	Roles     map[string]catalogFileRole `yaml:"roles"`
}

type catalogFileRole struct {
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
	Inherits    []string `yaml:"inherits"`
}

// DefaultCatalog parses the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog file, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse role catalog: %w", err)
	}

	hierarchy := make([]Role, 0, len(file.Hierarchy))
	for _, name := range file.Hierarchy {
		r, err := ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("hierarchy: %w", err)
		}
		hierarchy = append(hierarchy, r)
	}

	defs := make([]RoleDefinition, 0, len(file.Roles))
	for name, fr := range file.Roles {
		r, err := ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("roles: %w", err)
		}
		def := RoleDefinition{Role: r, Description: fr.Description}
		for _, p := range fr.Permissions {
			perm, err := ParsePermission(p)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", r, err)
			}
			def.Permissions = append(def.Permissions, perm)
		}
		for _, in := range fr.Inherits {
			inherited, err := ParseRole(in)
			if err != nil {
				return nil, fmt.Errorf("role %s inherits: %w", r, err)
			}
			def.Inherits = append(def.Inherits, inherited)
		}
		defs = append(defs, def)
	}

	return NewCatalog(defs, hierarchy)
}

// NewCatalog validates and freezes a set of role definitions. Every known role
// must be defined exactly once, must appear once in hierarchy, and the
// inheritance graph must be acyclic.
func NewCatalog(defs []RoleDefinition, hierarchy []Role) (*Catalog, error) {
	c := &Catalog{
		definitions: make(map[Role]RoleDefinition, len(defs)),
		rank:        make(map[Role]int, len(hierarchy)),
	}

	for _, def := range defs {
		if !def.Role.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, def.Role)
		}
		if _, dup := c.definitions[def.Role]; dup {
			return nil, fmt.Errorf("role %s defined twice", def.Role)
		}
		for _, p := range def.Permissions {
			if !p.Valid() {
				return nil, fmt.Errorf("role %s: %w: %q", def.Role, ErrUnknownPermission, p)
			}
		}
		def.Permissions = append([]Permission(nil), def.Permissions...)
		def.Inherits = append([]Role(nil), def.Inherits...)
		c.definitions[def.Role] = def
	}

	for r := range knownRoles {
		if _, ok := c.definitions[r]; !ok {
			return nil, fmt.Errorf("role %s is not defined", r)
		}
	}

	for _, def := range c.definitions {
		for _, in := range def.Inherits {
			if _, ok := c.definitions[in]; !ok {
				return nil, fmt.Errorf("role %s inherits undefined role %s", def.Role, in)
			}
		}
	}

	if err := c.checkAcyclic(); err != nil {
		return nil, err
	}

	for i, r := range hierarchy {
		if _, ok := c.definitions[r]; !ok {
			return nil, fmt.Errorf("hierarchy lists undefined role %s", r)
		}
		if _, dup := c.rank[r]; dup {
			return nil, fmt.Errorf("hierarchy lists %s twice", r)
		}
		c.rank[r] = i
	}
	if len(c.rank) != len(c.definitions) {
		return nil, errors.New("hierarchy must list every defined role")
	}
	c.hierarchy = append([]Role(nil), hierarchy...)

	return c, nil
}

func (c *Catalog) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[Role]int, len(c.definitions))

	var visit func(r Role, path []Role) error
	visit = func(r Role, path []Role) error {
		switch state[r] {
		case visiting:
			return fmt.Errorf("role inheritance cycle: %v", append(path, r))
		case done:
			return nil
		}
		state[r] = visiting
		for _, in := range c.definitions[r].Inherits {
			if err := visit(in, append(path, r)); err != nil {
				return err
			}
		}
		state[r] = done
		return nil
	}

	roles := make([]Role, 0, len(c.definitions))
	for r := range c.definitions {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, r := range roles {
		if err := visit(r, nil); err != nil {
			return err
		}
	}
	return nil
}

// DirectPermissions returns the permissions granted to role without inheritance.
func (c *Catalog) DirectPermissions(role Role) ([]Permission, error) {
	def, ok := c.definitions[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return append([]Permission(nil), def.Permissions...), nil
}

// InheritedRoles returns the roles role inherits from directly.
func (c *Catalog) InheritedRoles(role Role) ([]Role, error) {
	def, ok := c.definitions[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return append([]Role(nil), def.Inherits...), nil
}

func (c *Catalog) Description(role Role) string {
	return c.definitions[role].Description
}

func (c *Catalog) Has(role Role) bool {
	_, ok := c.definitions[role]
	return ok
}

// Hierarchy returns the authority order, highest first.
func (c *Catalog) Hierarchy() []Role {
	return append([]Role(nil), c.hierarchy...)
}

// IsHigherRank reports whether a strictly outranks b. super_admin outranks
// everything, nothing outranks super_admin, and unknown roles on either side
// are never higher.
func (c *Catalog) IsHigherRank(a, b Role) bool {
	if a == RoleSuperAdmin {
		return true
	}
	if b == RoleSuperAdmin {
		return false
	}
	ra, okA := c.rank[a]
	rb, okB := c.rank[b]
	if !okA || !okB {
		return false
	}
	return ra < rb
}
