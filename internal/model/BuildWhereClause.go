package model

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"UsersAPI/internal/filters"

	"github.com/Masterminds/squirrel"
)

// ErrInvalidQuery marks options that reference unknown relations or columns,
// or carry unsupported operators.
var ErrInvalidQuery = errors.New("invalid query")

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// columnResolver maps a where/order field to a qualified SQL column.
type columnResolver func(field string) (string, error)

// mainResolver resolves "col" against the primary model and "path.col"
// against an included relation.
func (m *Model) mainResolver(nodes []*includeNode, aliasMap *AliasMap) columnResolver {
	return func(field string) (string, error) {
		path, col := "", field
		if idx := strings.LastIndex(field, "."); idx != -1 {
			path, col = field[:idx], field[idx+1:]
		}
		alias := "main"
		if path != "" {
			a, ok := aliasMap.PathToAlias[path]
			if !ok {
				return "", fmt.Errorf("%w: relation path %q is not included", ErrInvalidQuery, path)
			}
			alias = a
		}
		target, ok := m.modelAtPath(path, nodes)
		if !ok {
			return "", fmt.Errorf("%w: relation path %q is not included", ErrInvalidQuery, path)
		}
		return qualify(target, alias, col)
	}
}

// scopedResolver resolves plain columns of one joined model.
func scopedResolver(target *Model, alias string) columnResolver {
	return func(field string) (string, error) {
		if strings.Contains(field, ".") {
			return "", fmt.Errorf("%w: nested field %q in include where", ErrInvalidQuery, field)
		}
		return qualify(target, alias, field)
	}
}

func qualify(target *Model, alias, col string) (string, error) {
	if !identRe.MatchString(col) {
		return "", fmt.Errorf("%w: invalid column %q", ErrInvalidQuery, col)
	}
	if len(target.Columns) > 0 && !target.HasColumn(col) {
		return "", fmt.Errorf("%w: unknown column %q in model %s", ErrInvalidQuery, col, target.Name)
	}
	return alias + "." + col, nil
}

// buildWhereClause translates a filters.Where into a squirrel condition.
// Keys are combined with AND; the $or key holds alternatives. Returns nil
// for an empty where.
func buildWhereClause(where filters.Where, resolve columnResolver) (squirrel.Sqlizer, error) {
	if len(where) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exprs := make(squirrel.And, 0, len(keys))
	for _, key := range keys {
		val := where[key]
		if key == filters.OrKey {
			or, err := buildOrClause(val, resolve)
			if err != nil {
				return nil, err
			}
			if or != nil {
				exprs = append(exprs, or)
			}
			continue
		}

		col, err := resolve(key)
		if err != nil {
			return nil, err
		}
		cond, err := buildCond(col, val)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		exprs = append(exprs, cond)
	}

	switch len(exprs) {
	case 0:
		return nil, nil
	case 1:
		return exprs[0], nil
	}
	return exprs, nil
}

func buildOrClause(val any, resolve columnResolver) (squirrel.Sqlizer, error) {
	var alternatives []filters.Where
	switch t := val.(type) {
	case []filters.Where:
		alternatives = t
	case []any:
		for _, item := range t {
			switch w := item.(type) {
			case filters.Where:
				alternatives = append(alternatives, w)
			case map[string]any:
				alternatives = append(alternatives, filters.Where(w))
			default:
				return nil, fmt.Errorf("%w: %s entries must be objects", ErrInvalidQuery, filters.OrKey)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s must be a list", ErrInvalidQuery, filters.OrKey)
	}

	parts := make(squirrel.Or, 0, len(alternatives))
	for _, alt := range alternatives {
		expr, err := buildWhereClause(alt, resolve)
		if err != nil {
			return nil, err
		}
		if expr != nil {
			parts = append(parts, expr)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return parts, nil
}

func buildCond(col string, val any) (squirrel.Sqlizer, error) {
	switch t := val.(type) {
	case filters.Cond:
		return buildOpCond(col, t)
	case map[string]any:
		return buildOpCond(col, filters.Cond(t))
	case filters.Where:
		return nil, fmt.Errorf("%w: nested object", ErrInvalidQuery)
	default:
		// nil becomes IS NULL, slices become IN
		return squirrel.Eq{col: t}, nil
	}
}

func buildOpCond(col string, cond filters.Cond) (squirrel.Sqlizer, error) {
	ops := make([]string, 0, len(cond))
	for op := range cond {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	parts := make(squirrel.And, 0, len(ops))
	for _, op := range ops {
		v := cond[op]
		switch op {
		case filters.OpGte:
			parts = append(parts, squirrel.GtOrEq{col: v})
		case filters.OpLte:
			parts = append(parts, squirrel.LtOrEq{col: v})
		case filters.OpIn:
			parts = append(parts, squirrel.Eq{col: v})
		case filters.OpILike:
			parts = append(parts, squirrel.ILike{col: v})
		default:
			return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, op)
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return parts, nil
}
