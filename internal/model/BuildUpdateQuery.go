package model

import (
	"fmt"
	"sort"

	"UsersAPI/internal/filters"

	"github.com/Masterminds/squirrel"
)

// BuildUpdateQuery sets values on the primary rows matching where. Both the
// assigned columns and the where fields must be plain columns of the model;
// an update without a where clause is refused.
func (m *Model) BuildUpdateQuery(values map[string]any, where filters.Where) (squirrel.UpdateBuilder, error) {
	ub := squirrel.Update(fmt.Sprintf("%s AS main", m.Table)).PlaceholderFormat(squirrel.Dollar)
	if len(values) == 0 {
		return ub, fmt.Errorf("%w: nothing to update in %s", ErrInvalidQuery, m.Name)
	}
	if len(where) == 0 {
		return ub, fmt.Errorf("%w: update of %s without where", ErrInvalidQuery, m.Name)
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if _, err := qualify(m, "main", col); err != nil {
			return ub, err
		}
		// SET targets stay unqualified
		ub = ub.Set(col, values[col])
	}

	cond, err := buildWhereClause(where, scopedResolver(m, "main"))
	if err != nil {
		return ub, err
	}
	return ub.Where(cond), nil
}
