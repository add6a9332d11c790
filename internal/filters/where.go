package filters

import (
	"strconv"
	"strings"
)

// SetWhere sets an equality predicate directly.
func (f *Filters) SetWhere(field string, value any) *Filters {
	if f.filters.Where == nil {
		f.filters.Where = Where{}
	}
	f.filters.Where[field] = value
	return f
}

// SetWhereIn sets an inclusion predicate directly.
func (f *Filters) SetWhereIn(field string, values []string) *Filters {
	return f.SetWhere(field, Cond{OpIn: cloneStrings(values)})
}

// SetWhereFilter copies the request value of name into the where clause.
// dbField defaults to name.
func (f *Filters) SetWhereFilter(name string, dbField ...string) *Filters {
	if v, ok := f.param(name); ok {
		f.SetWhere(fieldName(name, dbField), v)
	}
	return f
}

func (f *Filters) SetWhereMoreThenFilter(name string, dbField ...string) *Filters {
	if v, ok := f.param(name); ok {
		f.SetWhere(fieldName(name, dbField), Cond{OpGte: v})
	}
	return f
}

func (f *Filters) SetWhereLessThenFilter(name string, dbField ...string) *Filters {
	if v, ok := f.param(name); ok {
		f.SetWhere(fieldName(name, dbField), Cond{OpLte: v})
	}
	return f
}

// SetWhereInFilter splits a comma-joined value ("1,2,3") into an inclusion
// predicate.
func (f *Filters) SetWhereInFilter(name string, dbField ...string) *Filters {
	if v, ok := f.param(name); ok {
		f.SetWhereIn(fieldName(name, dbField), strings.Split(toString(v), ","))
	}
	return f
}

// SetIncludeFilter turns a "true"/"false" parameter into a boolean
// predicate. Without a usable value the optional default applies; without a
// default the field is left unfiltered.
func (f *Filters) SetIncludeFilter(name, dbField string, defaultValue ...bool) *Filters {
	if v, ok := f.param(name); ok {
		switch strings.ToLower(toString(v)) {
		case "true", "false":
			b, _ := strconv.ParseBool(strings.ToLower(toString(v)))
			return f.SetWhere(dbField, b)
		}
	}
	if len(defaultValue) > 0 {
		f.SetWhere(dbField, defaultValue[0])
	}
	return f
}

// SetSearchEnumFilter matches the request value against any of dbFields.
func (f *Filters) SetSearchEnumFilter(name string, dbFields []string) *Filters {
	v, ok := f.param(name)
	if !ok || !truthy(v) || len(dbFields) == 0 {
		return f
	}
	alternatives := make([]Where, 0, len(dbFields))
	for _, field := range dbFields {
		alternatives = append(alternatives, Where{field: v})
	}
	return f.SetWhere(OrKey, alternatives)
}

// SetDateFromToFilter builds a range on field from two optional parameters.
func (f *Filters) SetDateFromToFilter(field, fromName, toName string) *Filters {
	between := Cond{}
	if v, ok := f.param(fromName); ok && truthy(v) {
		between[OpGte] = strings.TrimSpace(toString(v))
	}
	if v, ok := f.param(toName); ok && truthy(v) {
		between[OpLte] = strings.TrimSpace(toString(v))
	}
	if len(between) > 0 {
		f.SetWhere(field, between)
	}
	return f
}

func fieldName(name string, dbField []string) string {
	if len(dbField) > 0 && dbField[0] != "" {
		return dbField[0]
	}
	return name
}
