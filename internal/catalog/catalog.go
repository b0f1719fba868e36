// Package catalog holds the static table of licensable modules: canonical
// names, aliases, numeric IDs and composite membership. The table is defined
// at deploy time and immutable at runtime; there is exactly one copy of it,
// and every module/ID mapping in the service goes through Resolve.
package catalog

import (
	"strconv"
	"strings"

	apperrors "bcmaccess/internal/errors"
)

// Module is a licensable unit of application functionality.
type Module struct {
	ID            int
	CanonicalName string
	// Aliases always contains CanonicalName. Alias strings are unique across
	// the whole catalog.
	Aliases []string
	// Members lists constituent module aliases for composite modules. A
	// composite is licensed when any member is. Members never reference
	// another composite.
	Members []string
}

// IsComposite reports whether the module is satisfied by any of its members.
func (m Module) IsComposite() bool {
	return len(m.Members) > 0
}

// Ref identifies a module by numeric ID or by name. ID wins when both are
// set, matching the precedence rule for license grant matching.
type Ref struct {
	ID   int
	Name string
}

func (r Ref) String() string {
	if r.ID > 0 {
		return "id:" + strconv.Itoa(r.ID)
	}
	return r.Name
}

// Catalog provides alias and ID resolution over the module table.
type Catalog struct {
	byID    map[int]Module
	byAlias map[string]Module
	ordered []Module
}

// New builds a catalog from the deploy-time module table. It panics on an
// invalid table: duplicate IDs, duplicate aliases, or a composite referencing
// an unknown or composite member are deployment defects, not runtime states.
func New() *Catalog {
	c, err := build(moduleTable)
	if err != nil {
		panic("catalog: invalid module table: " + err.Error())
	}
	return c
}

func build(mods []Module) (*Catalog, error) {
	c := &Catalog{
		byID:    make(map[int]Module, len(mods)),
		byAlias: make(map[string]Module, len(mods)*2),
		ordered: mods,
	}

	for _, m := range mods {
		if _, dup := c.byID[m.ID]; dup {
			return nil, &tableError{"duplicate module id", m.CanonicalName}
		}
		c.byID[m.ID] = m

		aliases := m.Aliases
		if !containsFold(aliases, m.CanonicalName) {
			aliases = append([]string{m.CanonicalName}, aliases...)
		}
		for _, alias := range aliases {
			key := Normalize(alias)
			if _, dup := c.byAlias[key]; dup {
				return nil, &tableError{"duplicate alias " + alias, m.CanonicalName}
			}
			c.byAlias[key] = m
		}
	}

	// Composite members must resolve to non-composite modules.
	for _, m := range mods {
		for _, member := range m.Members {
			target, ok := c.byAlias[Normalize(member)]
			if !ok {
				return nil, &tableError{"composite member " + member + " unknown", m.CanonicalName}
			}
			if target.IsComposite() {
				return nil, &tableError{"composite member " + member + " is itself composite", m.CanonicalName}
			}
		}
	}

	return c, nil
}

// Resolve looks up a module by Ref. String references are normalized before
// alias lookup; integer references look up by ID directly. An unresolvable
// reference returns UnknownModuleError, never a silent default.
func (c *Catalog) Resolve(ref Ref) (Module, error) {
	if ref.ID > 0 {
		return c.ResolveID(ref.ID)
	}
	return c.ResolveName(ref.Name)
}

// ResolveID looks up a module by numeric ID.
func (c *Catalog) ResolveID(id int) (Module, error) {
	m, ok := c.byID[id]
	if !ok {
		return Module{}, &apperrors.UnknownModuleError{Reference: "id:" + strconv.Itoa(id)}
	}
	return m, nil
}

// ResolveName looks up a module by canonical name or alias.
func (c *Catalog) ResolveName(name string) (Module, error) {
	m, ok := c.byAlias[Normalize(name)]
	if !ok {
		return Module{}, &apperrors.UnknownModuleError{Reference: name}
	}
	return m, nil
}

// Modules returns the full table ordered by ID, for listing endpoints.
func (c *Catalog) Modules() []Module {
	out := make([]Module, 0, len(c.ordered))
	out = append(out, c.ordered...)
	return out
}

// Normalize case-folds a module reference and collapses internal whitespace,
// so "  Process   Mapping " and "process mapping" resolve identically.
func Normalize(s string) string {
	fields := strings.Fields(s)
	return strings.ToLower(strings.Join(fields, " "))
}

func containsFold(ss []string, s string) bool {
	target := Normalize(s)
	for _, v := range ss {
		if Normalize(v) == target {
			return true
		}
	}
	return false
}

type tableError struct {
	problem string
	module  string
}

func (e *tableError) Error() string {
	return e.problem + " (module " + e.module + ")"
}
