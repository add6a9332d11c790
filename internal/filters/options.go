package filters

// Operators understood inside a Cond.
const (
	OpGte   = "gte"
	OpLte   = "lte"
	OpIn    = "in"
	OpILike = "ilike"
)

// OrKey is the Where key holding a list of alternative Where maps.
const OrKey = "$or"

// Where maps a field to a plain value (equality) or a Cond. The OrKey entry
// holds []Where.
type Where map[string]any

// Cond is an operator predicate, e.g. Cond{OpGte: "2020-01-01"}.
type Cond map[string]any

// OrderTerm is one ORDER BY entry. Model is empty for the primary entity,
// otherwise it names the alias of an included entity.
type OrderTerm struct {
	Model     string
	Path      []string
	Direction string
}

// Through describes the join table of a many-to-many include.
type Through struct {
	Model string
	As    string
	Where Where
}

// Include describes a related entity fetched alongside the primary one.
type Include struct {
	Model      string
	As         string
	Attributes []string
	Where      Where
	Required   bool
	Include    []*Include
	Through    *Through
}

// LogFunc receives the generated query and its arguments.
type LogFunc func(query string, args []any)

// QueryOptions is what the data-access layer consumes.
type QueryOptions struct {
	Where      Where
	Order      []OrderTerm
	Offset     *int
	Limit      *int
	Attributes []string
	Include    []*Include
	Group      []string
	Logging    LogFunc
}

// Clone returns a deep copy so callers can keep mutating the builder.
func (o QueryOptions) Clone() QueryOptions {
	out := QueryOptions{
		Where:      o.Where.Clone(),
		Attributes: cloneStrings(o.Attributes),
		Include:    cloneIncludes(o.Include),
		Group:      cloneStrings(o.Group),
		Logging:    o.Logging,
	}
	if o.Order != nil {
		out.Order = make([]OrderTerm, len(o.Order))
		for i, t := range o.Order {
			out.Order[i] = OrderTerm{Model: t.Model, Path: cloneStrings(t.Path), Direction: t.Direction}
		}
	}
	if o.Offset != nil {
		v := *o.Offset
		out.Offset = &v
	}
	if o.Limit != nil {
		v := *o.Limit
		out.Limit = &v
	}
	return out
}

func (w Where) Clone() Where {
	if w == nil {
		return nil
	}
	out := make(Where, len(w))
	for k, v := range w {
		out[k] = cloneValue(v)
	}
	return out
}

// Clone copies the include descriptor and its whole subtree.
func (inc *Include) Clone() *Include {
	if inc == nil {
		return nil
	}
	out := &Include{
		Model:      inc.Model,
		As:         inc.As,
		Attributes: cloneStrings(inc.Attributes),
		Where:      inc.Where.Clone(),
		Required:   inc.Required,
		Include:    cloneIncludes(inc.Include),
	}
	if inc.Through != nil {
		out.Through = &Through{Model: inc.Through.Model, As: inc.Through.As, Where: inc.Through.Where.Clone()}
	}
	return out
}

func cloneIncludes(in []*Include) []*Include {
	if in == nil {
		return nil
	}
	out := make([]*Include, len(in))
	for i, inc := range in {
		out[i] = inc.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Where:
		return t.Clone()
	case Cond:
		out := make(Cond, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case []Where:
		out := make([]Where, len(t))
		for i, w := range t {
			out[i] = w.Clone()
		}
		return out
	case []string:
		return cloneStrings(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	default:
		return v
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
