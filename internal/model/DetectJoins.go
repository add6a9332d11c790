package model

import (
	"fmt"
	"strings"

	"UsersAPI/internal/filters"
)

// DetectJoins builds one JOIN per include (two for a many-to-many include:
// the join model, then the target). Include and through where clauses are
// added to the ON condition; a required include or one with a where becomes
// an INNER JOIN, everything else a LEFT JOIN.
func (m *Model) DetectJoins(aliasMap *AliasMap, includes []*filters.Include) ([]*JoinSpec, error) {
	nodes, err := m.resolveIncludes(includes)
	if err != nil {
		return nil, err
	}
	return detectJoins(nodes, aliasMap)
}

func detectJoins(nodes []*includeNode, aliasMap *AliasMap) ([]*JoinSpec, error) {
	joins := make([]*JoinSpec, 0)
	for _, n := range flattenIncludes(nodes) {
		parentAlias := "main"
		if n.parent != "" {
			parentAlias = aliasMap.PathToAlias[n.parent]
		}
		alias, ok := aliasMap.PathToAlias[n.path]
		if !ok {
			return nil, fmt.Errorf("alias not found for path %s", n.path)
		}
		rel := n.rel
		joinType := "LEFT JOIN"
		if n.inc.Required || len(n.inc.Where) > 0 {
			joinType = "INNER JOIN"
		}

		if rel.Through != "" {
			throughAlias := aliasMap.PathToAlias[n.path+throughSuffix]
			finalRel := throughRelation(rel._ThroughRef, rel.Model)
			if finalRel == nil {
				return nil, fmt.Errorf("no final relation found in through %s -> %s", rel._ThroughRef.Table, rel._ModelRef.Table)
			}
			through := &JoinSpec{
				Path:     n.path + throughSuffix,
				Table:    rel._ThroughRef.Table,
				Alias:    throughAlias,
				On:       fmt.Sprintf("%s.%s = %s.%s", parentAlias, rel.PK, throughAlias, rel.FK),
				JoinType: joinType,
				Distinct: true,
				Where:    replaceTableWithAlias(rel.ThroughWhere, throughAlias),
			}
			if n.inc.Through != nil && len(n.inc.Through.Where) > 0 {
				cond, err := buildWhereClause(n.inc.Through.Where, scopedResolver(rel._ThroughRef, throughAlias))
				if err != nil {
					return nil, err
				}
				through.Cond = cond
				through.JoinType = "INNER JOIN"
			}
			joins = append(joins, through)

			target := &JoinSpec{
				Path:     n.path,
				Table:    rel._ModelRef.Table,
				Alias:    alias,
				On:       fmt.Sprintf("%s.%s = %s.%s", throughAlias, finalRel.FK, alias, finalRel.PK),
				JoinType: joinType,
				Distinct: true,
				Where:    replaceTableWithAlias(rel.Where, alias),
			}
			if err := attachIncludeWhere(target, n); err != nil {
				return nil, err
			}
			joins = append(joins, target)
			continue
		}

		var onClause string
		switch rel.Type {
		case BelongsTo:
			onClause = fmt.Sprintf("%s.%s = %s.%s", parentAlias, rel.FK, alias, rel.PK)
		case HasOne, HasMany:
			onClause = fmt.Sprintf("%s.%s = %s.%s", alias, rel.FK, parentAlias, rel.PK)
		default:
			return nil, fmt.Errorf("unsupported relation type: %s", rel.Type)
		}
		join := &JoinSpec{
			Path:     n.path,
			Table:    rel._ModelRef.Table,
			Alias:    alias,
			On:       onClause,
			JoinType: joinType,
			Distinct: rel.IsToMany(),
			Where:    replaceTableWithAlias(rel.Where, alias),
		}
		if err := attachIncludeWhere(join, n); err != nil {
			return nil, err
		}
		joins = append(joins, join)
	}
	return joins, nil
}

func attachIncludeWhere(join *JoinSpec, n *includeNode) error {
	if len(n.inc.Where) == 0 {
		return nil
	}
	cond, err := buildWhereClause(n.inc.Where, scopedResolver(n.rel._ModelRef, join.Alias))
	if err != nil {
		return fmt.Errorf("include %s: %w", n.path, err)
	}
	join.Cond = cond
	return nil
}

// joinClause renders the JOIN with its ON condition and arguments.
func (j *JoinSpec) joinClause() (string, []any, error) {
	on := j.On
	if j.Where != "" {
		on = fmt.Sprintf("(%s) AND (%s)", on, j.Where)
	}
	var args []any
	if j.Cond != nil {
		sql, condArgs, err := j.Cond.ToSql()
		if err != nil {
			return "", nil, err
		}
		on = fmt.Sprintf("%s AND %s", on, sql)
		args = condArgs
	}
	return fmt.Sprintf("%s %s AS %s ON %s", j.JoinType, j.Table, j.Alias, on), args, nil
}

// replaceTableWithAlias prefixes ".col" references of a model-file where
// with the join alias.
func replaceTableWithAlias(where string, alias string) string {
	if where == "" {
		return ""
	}
	return strings.ReplaceAll(where, ".", alias+".")
}
