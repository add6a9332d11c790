package filters

// SetWhereFilterInModel replaces the where clause of the included entity
// aliased alias with {field: <request value of name>}. The include tree is
// searched recursively, including through descriptors. A missing alias is a
// no-op reported to the OnAliasMiss hook.
func (f *Filters) SetWhereFilterInModel(name, alias, field string) *Filters {
	v, present := f.param(name)
	found := f.addWhereFilterToModel(f.filters.Include, alias, func(w *Where) {
		if present {
			*w = Where{field: v}
		}
	})
	if !found {
		f.aliasMissed(alias)
	}
	return f
}

// SetWhereInModel merges {field: value} into the where clause of the included
// entity aliased alias. Field may also be OrKey.
func (f *Filters) SetWhereInModel(field, alias string, value any) *Filters {
	found := f.addWhereToModel(f.filters.Include, alias, field, value)
	if !found {
		f.aliasMissed(alias)
	}
	return f
}

func (f *Filters) addWhereFilterToModel(models []*Include, alias string, apply func(w *Where)) bool {
	found := false
	for _, model := range models {
		if model == nil {
			continue
		}
		if model.As == alias {
			apply(&model.Where)
			found = true
		}
		if model.Include != nil && f.addWhereFilterToModel(model.Include, alias, apply) {
			found = true
		}
		if model.Through != nil && model.Through.As == alias {
			apply(&model.Through.Where)
			found = true
		}
	}
	return found
}

func (f *Filters) addWhereToModel(models []*Include, alias, field string, value any) bool {
	return f.addWhereFilterToModel(models, alias, func(w *Where) {
		if *w == nil {
			*w = Where{}
		}
		(*w)[field] = value
	})
}

func (f *Filters) aliasMissed(alias string) {
	if f.onAliasMiss != nil {
		f.onAliasMiss(alias)
	}
}
