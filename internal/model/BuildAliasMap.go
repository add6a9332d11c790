package model

import (
	"fmt"

	"UsersAPI/internal/filters"
)

// throughSuffix marks the join-model path of a many-to-many include.
const throughSuffix = ".$through"

// includeNode is an include descriptor resolved against the registry.
type includeNode struct {
	inc      *filters.Include
	rel      *ModelRelation
	name     string // relation name, also the key in folded rows
	path     string // "roles.permissions"
	parent   string // parent path, "" for the primary model
	children []*includeNode
}

// resolveIncludes matches every include (by As, falling back to Model) with
// a relation of its owner model.
func (m *Model) resolveIncludes(includes []*filters.Include) ([]*includeNode, error) {
	seen := map[string]bool{}
	var walk func(owner *Model, incs []*filters.Include, prefix string) ([]*includeNode, error)
	walk = func(owner *Model, incs []*filters.Include, prefix string) ([]*includeNode, error) {
		nodes := make([]*includeNode, 0, len(incs))
		for _, inc := range incs {
			if inc == nil {
				continue
			}
			name := inc.As
			if name == "" {
				name = inc.Model
			}
			rel := owner.GetRelation(name)
			if rel == nil || rel._ModelRef == nil {
				return nil, fmt.Errorf("%w: unknown relation %q on model %s", ErrInvalidQuery, name, owner.Name)
			}
			if inc.Model != "" && inc.Model != rel.Model && inc.Model != name {
				return nil, fmt.Errorf("%w: include %q expects model %s, got %s", ErrInvalidQuery, name, rel.Model, inc.Model)
			}
			if inc.Through != nil && rel.Through == "" {
				return nil, fmt.Errorf("%w: include %q has no join model", ErrInvalidQuery, name)
			}
			path := name
			if prefix != "" {
				path = prefix + "." + name
			}
			if depth := includeDepth(path); depth > MaxIncludeDepth() {
				return nil, fmt.Errorf("%w: include %q is nested %d levels deep, max is %d", ErrInvalidQuery, path, depth, MaxIncludeDepth())
			}
			if seen[path] {
				return nil, fmt.Errorf("%w: relation %q included twice", ErrInvalidQuery, path)
			}
			seen[path] = true

			children, err := walk(rel._ModelRef, inc.Include, path)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &includeNode{
				inc:      inc,
				rel:      rel,
				name:     name,
				path:     path,
				parent:   prefix,
				children: children,
			})
		}
		return nodes, nil
	}
	return walk(m, includes, "")
}

// flattenIncludes lists nodes parents first.
func flattenIncludes(nodes []*includeNode) []*includeNode {
	var out []*includeNode
	for _, n := range nodes {
		out = append(out, n)
		out = append(out, flattenIncludes(n.children)...)
	}
	return out
}

// BuildAliasMap assigns deterministic aliases t0..tn to the include paths,
// parents before children. A many-to-many include also gets an alias for
// its join model under "<path>.$through".
func (m *Model) BuildAliasMap(includes []*filters.Include) (*AliasMap, error) {
	nodes, err := m.resolveIncludes(includes)
	if err != nil {
		return nil, err
	}
	return buildAliasMap(nodes), nil
}

func buildAliasMap(nodes []*includeNode) *AliasMap {
	am := &AliasMap{
		PathToAlias: map[string]string{},
		AliasToPath: map[string]string{},
	}
	counter := 0
	assign := func(path string) {
		alias := fmt.Sprintf("t%d", counter)
		counter++
		am.PathToAlias[path] = alias
		am.AliasToPath[alias] = path
	}
	for _, n := range flattenIncludes(nodes) {
		if n.rel.Through != "" {
			assign(n.path + throughSuffix)
		}
		assign(n.path)
	}
	return am
}

// findIncludePath returns the path of the include aliased as.
func findIncludePath(nodes []*includeNode, as string) (string, bool) {
	for _, n := range flattenIncludes(nodes) {
		if n.name == as || (n.inc.Through != nil && n.inc.Through.As == as) {
			if n.name != as {
				return n.path + throughSuffix, true
			}
			return n.path, true
		}
	}
	return "", false
}

// modelAtPath returns the model reached by following path from m.
func (m *Model) modelAtPath(path string, nodes []*includeNode) (*Model, bool) {
	if path == "" {
		return m, true
	}
	for _, n := range flattenIncludes(nodes) {
		switch path {
		case n.path:
			return n.rel._ModelRef, true
		case n.path + throughSuffix:
			return n.rel._ThroughRef, true
		}
	}
	return nil, false
}
