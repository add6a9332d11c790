// Package filters turns request filter parameters into QueryOptions for the
// data-access layer.
//
// A Filters value is built per request, configured through chainable setters
// and finished with one of the terminal views (All, Basic, Count,
// BasicCount). Setters that find no matching parameter do nothing; only sort
// key and limit validation return errors.
package filters

const (
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = "desc"
	DefaultLimitMax  = 50
)

// Defaults are per-request fallbacks for the paging and sort parameters.
// Nil pointers and empty strings leave the builder defaults in place.
type Defaults struct {
	SortBy    string
	SortOrder string
	Offset    *int
	Limit     *int
	Total     *int
}

// Filters accumulates QueryOptions from request parameters.
type Filters struct {
	params Params

	sortBy       string
	sortOrder    string
	sortByConfig []string
	sortByModel  map[string]SortByModel
	orderConfig  map[string][]string

	offset   int
	limit    *int
	limitMax int
	total    *int

	attributes  []string
	logging     LogFunc
	onAliasMiss func(alias string)

	filters QueryOptions
}

// New creates a builder over a private copy of params.
func New(params Params, d Defaults) *Filters {
	f := &Filters{
		params:      params.Clone(),
		sortBy:      DefaultSortBy,
		sortOrder:   DefaultSortOrder,
		sortByModel: map[string]SortByModel{},
		orderConfig: map[string][]string{},
		offset:      -1,
		limitMax:    DefaultLimitMax,
	}
	if d.SortBy != "" {
		f.sortBy = d.SortBy
	}
	if d.SortOrder != "" {
		f.sortOrder = d.SortOrder
	}
	if d.Offset != nil {
		f.offset = *d.Offset
	}
	if d.Limit != nil {
		v := *d.Limit
		f.limit = &v
	}
	if d.Total != nil {
		v := *d.Total
		f.total = &v
	}
	return f
}

// Factory is the positional form of New. Pass "" / nil to keep a default.
func Factory(params Params, defaultSortBy, defaultSortOrder string, defaultOffset, defaultLimit, total *int) *Filters {
	return New(params, Defaults{
		SortBy:    defaultSortBy,
		SortOrder: defaultSortOrder,
		Offset:    defaultOffset,
		Limit:     defaultLimit,
		Total:     total,
	})
}

// Int is a helper for the optional numeric defaults.
func Int(v int) *int {
	return &v
}

// Params returns a copy of the (possibly rewritten) request parameters.
func (f *Filters) Params() Params {
	return f.params.Clone()
}

// All runs the id filter, paging, sort, attributes and logging steps.
func (f *Filters) All() (QueryOptions, error) {
	return f.List(true)
}

// Basic is All without the id filter.
func (f *Filters) Basic() (QueryOptions, error) {
	return f.List(false)
}

// Count returns options for a count query: no paging and no ordering.
func (f *Filters) Count() QueryOptions {
	return f.Counting(true)
}

// BasicCount keeps the id filter, exactly like Count. Callers that need the
// id filter dropped should call Counting(false).
func (f *Filters) BasicCount() QueryOptions {
	return f.Counting(true)
}

// List is the shared implementation of All and Basic.
func (f *Filters) List(includeID bool) (QueryOptions, error) {
	if includeID {
		f.ResolveID()
	}
	f.ResolveOffset()
	if err := f.ResolveLimit(); err != nil {
		return QueryOptions{}, err
	}
	if err := f.ResolveSortOrder(); err != nil {
		return QueryOptions{}, err
	}
	f.ResolveAttributes()
	f.ResolveLogging()
	return f.Options(), nil
}

// Counting is the shared implementation of Count and BasicCount.
func (f *Filters) Counting(includeID bool) QueryOptions {
	if includeID {
		f.ResolveID()
	}
	f.ResolveAttributes()
	f.ResolveLogging()
	return f.Options()
}

// Options returns a snapshot of the accumulated options.
func (f *Filters) Options() QueryOptions {
	return f.filters.Clone()
}

// ResolveID adds an equality filter on id when the request carries one.
func (f *Filters) ResolveID() *Filters {
	if v, ok := f.params["id"]; ok && truthy(v) {
		f.SetWhere("id", v)
	}
	return f
}

func (f *Filters) ResolveAttributes() *Filters {
	if f.attributes != nil {
		f.filters.Attributes = cloneStrings(f.attributes)
	}
	return f
}

func (f *Filters) ResolveLogging() *Filters {
	if f.logging != nil {
		f.filters.Logging = f.logging
	}
	return f
}

// ReplaceIn sets parameter name to `to` when its value is exactly `from`.
func (f *Filters) ReplaceIn(name, from, to string) *Filters {
	if v, ok := f.params[name].(string); ok && v == from {
		f.params[name] = to
	}
	return f
}

// RenameIndex moves a parameter to another name.
func (f *Filters) RenameIndex(from, to string) *Filters {
	if v, ok := f.params[from]; ok {
		f.params[to] = v
		delete(f.params, from)
	}
	return f
}

// SetAttributes restricts the selected columns.
func (f *Filters) SetAttributes(fields []string) *Filters {
	f.attributes = cloneStrings(fields)
	return f
}

func (f *Filters) SetGroupBy(field string) *Filters {
	f.filters.Group = append(f.filters.Group, field)
	return f
}

// SetInclude replaces the include list. The builder keeps its own copy.
func (f *Filters) SetInclude(models []*Include) *Filters {
	f.filters.Include = cloneIncludes(models)
	if f.filters.Include == nil {
		f.filters.Include = []*Include{}
	}
	return f
}

func (f *Filters) AddToInclude(models ...*Include) *Filters {
	f.filters.Include = append(f.filters.Include, cloneIncludes(models)...)
	return f
}

func (f *Filters) SetLogging(fn LogFunc) *Filters {
	f.logging = fn
	return f
}

// OnAliasMiss registers a hook called when a nested where setter cannot find
// its alias in the include tree.
func (f *Filters) OnAliasMiss(fn func(alias string)) *Filters {
	f.onAliasMiss = fn
	return f
}

func (f *Filters) SetLimitMax(max int) *Filters {
	f.limitMax = max
	return f
}

func (f *Filters) param(name string) (any, bool) {
	v, ok := f.params[name]
	return v, ok
}
