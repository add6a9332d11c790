package model

import (
	"fmt"
	"strings"

	"UsersAPI/internal/filters"

	"github.com/Masterminds/squirrel"
)

// queryPlan is the resolved include tree of one QueryOptions value.
type queryPlan struct {
	nodes    []*includeNode
	aliasMap *AliasMap
	joins    []*JoinSpec
	resolve  columnResolver
}

func (m *Model) plan(opts filters.QueryOptions) (*queryPlan, error) {
	nodes, err := m.resolveIncludes(opts.Include)
	if err != nil {
		return nil, err
	}
	aliasMap := buildAliasMap(nodes)
	joins, err := detectJoins(nodes, aliasMap)
	if err != nil {
		return nil, err
	}
	return &queryPlan{
		nodes:    nodes,
		aliasMap: aliasMap,
		joins:    joins,
		resolve:  m.mainResolver(nodes, aliasMap),
	}, nil
}

func (p *queryPlan) hasToManyJoin() bool {
	for _, j := range p.joins {
		if j.Distinct {
			return true
		}
	}
	return false
}

// BuildSelectQuery builds the row query for opts. Every selected column is
// named after its include path ("email", "group.name") so rows can be folded
// without knowing the query. With a to-many include, limit and offset apply
// to primary rows through a keyed subquery instead of the joined rows.
func (m *Model) BuildSelectQuery(opts filters.QueryOptions) (squirrel.SelectBuilder, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	p, err := m.plan(opts)
	if err != nil {
		return sb, err
	}

	sb = sb.From(fmt.Sprintf("%s AS main", m.Table))

	cols, err := m.selectColumns(opts.Attributes, p)
	if err != nil {
		return sb, err
	}
	sb = sb.Columns(cols...)

	if sb, err = applyJoins(sb, p.joins); err != nil {
		return sb, err
	}
	if sb, err = applyWhere(sb, opts.Where, p); err != nil {
		return sb, err
	}
	for _, g := range opts.Group {
		col, err := p.resolve(g)
		if err != nil {
			return sb, err
		}
		sb = sb.GroupBy(col)
	}

	orderBy, err := m.orderExprs(opts.Order, p, false)
	if err != nil {
		return sb, err
	}
	if len(opts.Group) == 0 {
		orderBy = append(orderBy, "main."+m.primaryKey())
		relOrder, err := relationOrders(p)
		if err != nil {
			return sb, err
		}
		orderBy = append(orderBy, relOrder...)
	}
	sb = sb.OrderBy(orderBy...)

	paged := opts.Limit != nil || (opts.Offset != nil && *opts.Offset > 0)
	if !paged {
		return sb, nil
	}
	if p.hasToManyJoin() {
		page, err := m.pageQuery(opts, p)
		if err != nil {
			return sb, err
		}
		return sb.Where(squirrel.Expr(fmt.Sprintf("main.%s IN (?)", m.primaryKey()), page)), nil
	}
	return applyPaging(sb, opts), nil
}

// pageQuery selects one page of primary keys. Order terms on joined
// columns are aggregated since the rows are grouped by the primary key.
func (m *Model) pageQuery(opts filters.QueryOptions, p *queryPlan) (squirrel.SelectBuilder, error) {
	pk := "main." + m.primaryKey()
	sb := squirrel.Select(pk).From(fmt.Sprintf("%s AS main", m.Table))
	sb, err := applyJoins(sb, p.joins)
	if err != nil {
		return sb, err
	}
	if sb, err = applyWhere(sb, opts.Where, p); err != nil {
		return sb, err
	}
	orderBy, err := m.orderExprs(opts.Order, p, true)
	if err != nil {
		return sb, err
	}
	sb = sb.GroupBy(pk).OrderBy(append(orderBy, pk)...)
	return applyPaging(sb, opts), nil
}

func applyJoins(sb squirrel.SelectBuilder, joins []*JoinSpec) (squirrel.SelectBuilder, error) {
	for _, j := range joins {
		clause, args, err := j.joinClause()
		if err != nil {
			return sb, err
		}
		sb = sb.JoinClause(clause, args...)
	}
	return sb, nil
}

func applyWhere(sb squirrel.SelectBuilder, where filters.Where, p *queryPlan) (squirrel.SelectBuilder, error) {
	cond, err := buildWhereClause(where, p.resolve)
	if err != nil {
		return sb, err
	}
	if cond != nil {
		sb = sb.Where(cond)
	}
	return sb, nil
}

func applyPaging(sb squirrel.SelectBuilder, opts filters.QueryOptions) squirrel.SelectBuilder {
	if opts.Limit != nil {
		sb = sb.Limit(uint64(*opts.Limit))
	}
	if opts.Offset != nil && *opts.Offset > 0 {
		sb = sb.Offset(uint64(*opts.Offset))
	}
	return sb
}

// selectColumns lists "alias.col AS "path.col"" expressions. Primary keys
// are always selected.
func (m *Model) selectColumns(attributes []string, p *queryPlan) ([]string, error) {
	mainCols := attributes
	if len(mainCols) == 0 {
		mainCols = m.Columns
	}
	if len(mainCols) == 0 {
		return nil, fmt.Errorf("model %s declares no columns", m.Name)
	}
	cols := make([]string, 0, len(mainCols)+4)
	for _, c := range withKey(m.primaryKey(), mainCols) {
		expr, err := qualify(m, "main", c)
		if err != nil {
			return nil, err
		}
		cols = append(cols, fmt.Sprintf(`%s AS "%s"`, expr, c))
	}

	for _, n := range flattenIncludes(p.nodes) {
		target := n.rel._ModelRef
		incCols := n.inc.Attributes
		if len(incCols) == 0 {
			incCols = target.Columns
		}
		alias := p.aliasMap.PathToAlias[n.path]
		for _, c := range withKey(target.primaryKey(), incCols) {
			expr, err := qualify(target, alias, c)
			if err != nil {
				return nil, fmt.Errorf("include %s: %w", n.path, err)
			}
			cols = append(cols, fmt.Sprintf(`%s AS "%s.%s"`, expr, n.path, c))
		}
	}
	return cols, nil
}

func withKey(key string, cols []string) []string {
	if containsString(cols, key) {
		return cols
	}
	return append([]string{key}, cols...)
}

// orderExprs renders order terms. With aggregate set, columns of joined
// models are wrapped in MIN (asc) or MAX (desc).
func (m *Model) orderExprs(order []filters.OrderTerm, p *queryPlan, aggregate bool) ([]string, error) {
	out := make([]string, 0, len(order))
	for _, term := range order {
		if len(term.Path) == 0 {
			return nil, fmt.Errorf("%w: empty order term", ErrInvalidQuery)
		}
		field := strings.Join(term.Path, ".")
		if term.Model != "" {
			path, ok := findIncludePath(p.nodes, term.Model)
			if !ok {
				return nil, fmt.Errorf("%w: order model %q is not included", ErrInvalidQuery, term.Model)
			}
			field = path + "." + field
		}
		col, err := p.resolve(field)
		if err != nil {
			return nil, err
		}

		dir := strings.ToLower(strings.TrimSpace(term.Direction))
		switch dir {
		case "":
			dir = "asc"
		case "asc", "desc":
		default:
			return nil, fmt.Errorf("%w: invalid sort direction %q", ErrInvalidQuery, term.Direction)
		}

		if aggregate && !strings.HasPrefix(col, "main.") {
			fn := "MIN"
			if dir == "desc" {
				fn = "MAX"
			}
			col = fmt.Sprintf("%s(%s)", fn, col)
		}
		out = append(out, col+" "+strings.ToUpper(dir))
	}
	return out, nil
}

// relationOrders applies the model-file order of to-many includes.
func relationOrders(p *queryPlan) ([]string, error) {
	var out []string
	for _, n := range flattenIncludes(p.nodes) {
		if n.rel.Order == "" || !n.rel.IsToMany() {
			continue
		}
		col, dir, err := parseRelationOrder(n.rel.Order)
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", n.path, err)
		}
		out = append(out, fmt.Sprintf("%s.%s %s", p.aliasMap.PathToAlias[n.path], col, dir))
	}
	return out, nil
}

// parseRelationOrder parses "col" or "col asc|desc".
func parseRelationOrder(s string) (string, string, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 || len(parts) > 2 || !identRe.MatchString(parts[0]) {
		return "", "", fmt.Errorf("invalid order %q", s)
	}
	dir := "ASC"
	if len(parts) == 2 {
		switch strings.ToLower(parts[1]) {
		case "asc":
		case "desc":
			dir = "DESC"
		default:
			return "", "", fmt.Errorf("invalid order direction %q", parts[1])
		}
	}
	return parts[0], dir, nil
}
