package filters

// ResolveOffset applies the offset parameter. An offset past the known total
// wraps to the first page; a negative or unset offset is left out.
func (f *Filters) ResolveOffset() *Filters {
	if v, ok := f.param("offset"); ok {
		if n, ok := toInt(v); ok {
			f.offset = n
		} else {
			f.offset = -1
		}
	}
	if f.total != nil && f.offset >= *f.total {
		f.offset = 0
	}
	if f.offset > -1 {
		f.filters.Offset = Int(f.offset)
	}
	return f
}

// ResolveLimit applies the limit parameter and checks it against [1, limitMax].
func (f *Filters) ResolveLimit() error {
	if v, ok := f.param("limit"); ok {
		n, ok := toInt(v)
		if !ok {
			return limitInvalid()
		}
		f.limit = Int(n)
	}
	switch {
	case f.limit == nil:
		return nil
	case *f.limit < 1:
		return limitInvalid()
	case *f.limit > f.limitMax:
		return limitExceeded(f.limitMax)
	}
	f.filters.Limit = Int(*f.limit)
	return nil
}
