package filters

import (
	"maps"
	"strings"
)

// SortByModel routes a sort key to columns of an included entity.
type SortByModel struct {
	Model  string
	Fields []string
}

// SortRegistry bundles the sort configuration of one resource. It is meant
// to be built once and shared read-only between builders.
type SortRegistry struct {
	Allowed []string
	Models  map[string]SortByModel
	Orders  map[string][]string
}

// UseSortRegistry copies reg into the builder. Later setters only touch the
// builder's copy.
func (f *Filters) UseSortRegistry(reg *SortRegistry) *Filters {
	if reg == nil {
		return f
	}
	if reg.Allowed != nil {
		f.sortByConfig = cloneStrings(reg.Allowed)
	}
	for k, v := range reg.Models {
		f.sortByModel[k] = SortByModel{Model: v.Model, Fields: cloneStrings(v.Fields)}
	}
	maps.Copy(f.orderConfig, cloneOrders(reg.Orders))
	return f
}

func cloneOrders(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = cloneStrings(v)
	}
	return out
}

// SetSortByConfig sets the allow-list for the sortBy parameter.
func (f *Filters) SetSortByConfig(values []string) *Filters {
	f.sortByConfig = cloneStrings(values)
	return f
}

// SetSortByModel sorts by fields of the included entity aliased model when
// sortBy equals name.
func (f *Filters) SetSortByModel(name, model string, fields ...string) *Filters {
	f.sortByModel[name] = SortByModel{Model: model, Fields: cloneStrings(fields)}
	return f
}

// SetSortBy rewrites the sortBy parameter from name to dbName.
func (f *Filters) SetSortBy(name, dbName string) *Filters {
	if v, ok := f.params["sortBy"].(string); ok && v == name {
		f.params["sortBy"] = dbName
	}
	return f
}

// SetOrderConfig maps a sort key to a field path, e.g. ("lastName", "last_name")
// or ("groupName", "group", "name").
func (f *Filters) SetOrderConfig(name string, path ...string) *Filters {
	f.orderConfig[name] = cloneStrings(path)
	return f
}

// ResolveSortOrder applies sortOrder/sortBy from the request and replaces the
// order list.
func (f *Filters) ResolveSortOrder() error {
	if v, ok := f.param("sortOrder"); ok {
		f.sortOrder = strings.ToLower(toString(v))
	}
	if v, ok := f.param("sortBy"); ok {
		f.sortBy = toString(v)
		if len(f.sortByConfig) > 0 && !InArray(f.sortBy, stringsToAny(f.sortByConfig)) {
			return invalidSortKey()
		}
	}

	// a model sort without fields falls back to the plain key
	if sort, ok := f.sortByModel[f.sortBy]; ok && len(sort.Fields) > 0 {
		order := make([]OrderTerm, 0, len(sort.Fields))
		for _, column := range sort.Fields {
			order = append(order, OrderTerm{Model: sort.Model, Path: []string{column}, Direction: f.sortOrder})
		}
		f.filters.Order = order
		return nil
	}

	path := []string{f.sortBy}
	if tuple, ok := f.orderConfig[f.sortBy]; ok {
		path = cloneStrings(tuple)
	}
	f.filters.Order = []OrderTerm{{Path: path, Direction: f.sortOrder}}
	return nil
}
