package model

import (
	"fmt"
	"strings"

	"UsersAPI/internal/filters"
)

// FoldRows turns flat joined rows into nested items: to-one includes become
// an object (nil when nothing matched), to-many includes a list without
// duplicates. Items keep the order in which their primary key first appears.
func (m *Model) FoldRows(flat []map[string]any, includes []*filters.Include) ([]map[string]any, error) {
	nodes, err := m.resolveIncludes(includes)
	if err != nil {
		return nil, err
	}

	pk := m.primaryKey()
	seen := map[string]map[string]any{}
	items := make([]map[string]any, 0, len(flat))
	for _, row := range flat {
		key, ok := row[pk]
		if !ok {
			return nil, fmt.Errorf("row has no primary key %q", pk)
		}
		scope := fmt.Sprint(key)
		item, ok := seen[scope]
		if !ok {
			item = extractLevel(row, "")
			seen[scope] = item
			items = append(items, item)
		}
		foldInto(item, row, nodes, scope, seen)
	}
	return items, nil
}

func foldInto(dst, row map[string]any, nodes []*includeNode, scope string, seen map[string]map[string]any) {
	for _, n := range nodes {
		many := n.rel.Type == HasMany
		if _, ok := dst[n.name]; !ok {
			if many {
				dst[n.name] = []map[string]any{}
			} else {
				dst[n.name] = nil
			}
		}

		key := row[n.path+"."+n.rel._ModelRef.primaryKey()]
		if key == nil {
			continue
		}
		id := scope + "/" + n.path + "=" + fmt.Sprint(key)
		child, ok := seen[id]
		if !ok {
			child = extractLevel(row, n.path)
			seen[id] = child
			if many {
				dst[n.name] = append(dst[n.name].([]map[string]any), child)
			} else if dst[n.name] == nil {
				dst[n.name] = child
			}
		}
		foldInto(child, row, n.children, id, seen)
	}
}

// extractLevel copies the columns that belong directly to path.
func extractLevel(row map[string]any, path string) map[string]any {
	out := map[string]any{}
	prefix := ""
	if path != "" {
		prefix = path + "."
	}
	for k, v := range row {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		col := k[len(prefix):]
		if strings.Contains(col, ".") {
			continue
		}
		out[col] = v
	}
	return out
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
