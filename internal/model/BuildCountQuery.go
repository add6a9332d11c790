package model

import (
	"fmt"
	"strings"

	"UsersAPI/internal/filters"

	"github.com/Masterminds/squirrel"
)

// BuildCountQuery counts primary rows matching opts. Only joins that can
// change the result are kept: inner joins and the paths referenced by the
// where clause. Order, paging, grouping and attributes are ignored.
func (m *Model) BuildCountQuery(opts filters.QueryOptions) (squirrel.SelectBuilder, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.From(fmt.Sprintf("%s AS main", m.Table))

	p, err := m.plan(opts)
	if err != nil {
		return sb, err
	}
	p.joins = countJoins(p.joins, opts.Where)

	if sb, err = applyJoins(sb, p.joins); err != nil {
		return sb, err
	}

	if p.hasToManyJoin() {
		sb = sb.Column(fmt.Sprintf("COUNT(DISTINCT main.%s)", m.primaryKey()))
	} else {
		sb = sb.Column("COUNT(*)")
	}

	return applyWhere(sb, opts.Where, p)
}

func countJoins(joins []*JoinSpec, where filters.Where) []*JoinSpec {
	needed := map[string]bool{}
	for _, path := range wherePaths(where) {
		markWithParents(needed, path)
	}
	for _, j := range joins {
		if j.JoinType == "INNER JOIN" {
			markWithParents(needed, strings.TrimSuffix(j.Path, throughSuffix))
		}
	}

	kept := make([]*JoinSpec, 0, len(joins))
	for _, j := range joins {
		if needed[strings.TrimSuffix(j.Path, throughSuffix)] {
			kept = append(kept, j)
		}
	}
	return kept
}

func markWithParents(set map[string]bool, path string) {
	for path != "" {
		set[path] = true
		idx := strings.LastIndex(path, ".")
		if idx == -1 {
			return
		}
		path = path[:idx]
	}
}

// wherePaths lists the relation paths referenced by dotted where keys.
func wherePaths(where filters.Where) []string {
	var out []string
	for key, val := range where {
		if key == filters.OrKey {
			switch t := val.(type) {
			case []filters.Where:
				for _, alt := range t {
					out = append(out, wherePaths(alt)...)
				}
			case []any:
				for _, item := range t {
					switch w := item.(type) {
					case filters.Where:
						out = append(out, wherePaths(w)...)
					case map[string]any:
						out = append(out, wherePaths(filters.Where(w))...)
					}
				}
			}
			continue
		}
		if idx := strings.LastIndex(key, "."); idx != -1 {
			out = append(out, key[:idx])
		}
	}
	return out
}
