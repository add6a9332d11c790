package model

import (
	"fmt"
	"sort"
)

// ValidateModels checks every linked model:
// 1) table and column names are valid identifiers,
// 2) primary keys are declared columns,
// 3) relation keys exist on the side of the join they belong to.
func ValidateModels() error {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, modelName := range names {
		m := Registry[modelName]
		if !identRe.MatchString(m.Table) {
			return fmt.Errorf("model %s: invalid table name %q", modelName, m.Table)
		}
		for _, pk := range m.GetPrimaryKeys() {
			if len(m.Columns) > 0 && !m.HasColumn(pk) {
				return fmt.Errorf("model %s: primary key %q is not a declared column", modelName, pk)
			}
		}
		for relName, rel := range m.Relations {
			if err := validateRelation(m, relName, rel); err != nil {
				return fmt.Errorf("model %s: %w", modelName, err)
			}
		}
	}
	return nil
}

func validateRelation(m *Model, relName string, rel *ModelRelation) error {
	if !identRe.MatchString(relName) {
		return fmt.Errorf("invalid relation name %q", relName)
	}
	target := rel._ModelRef
	if target == nil {
		return fmt.Errorf("relation %q is not linked", relName)
	}
	if rel.Order != "" {
		if _, _, err := parseRelationOrder(rel.Order); err != nil {
			return fmt.Errorf("relation %q: %w", relName, err)
		}
	}

	switch {
	case rel.Through != "":
		through := rel._ThroughRef
		if !hasDeclaredColumn(m, rel.PK) || !hasDeclaredColumn(through, rel.FK) {
			return fmt.Errorf("relation %q: through keys %s.%s -> %s.%s are not declared",
				relName, m.Table, rel.PK, through.Table, rel.FK)
		}
	case rel.Type == BelongsTo:
		if !hasDeclaredColumn(m, rel.FK) || !hasDeclaredColumn(target, rel.PK) {
			return fmt.Errorf("relation %q: keys %s.%s -> %s.%s are not declared",
				relName, m.Table, rel.FK, target.Table, rel.PK)
		}
	default:
		if !hasDeclaredColumn(target, rel.FK) || !hasDeclaredColumn(m, rel.PK) {
			return fmt.Errorf("relation %q: keys %s.%s -> %s.%s are not declared",
				relName, target.Table, rel.FK, m.Table, rel.PK)
		}
	}
	return nil
}

// hasDeclaredColumn is lenient for models that list no columns.
func hasDeclaredColumn(m *Model, col string) bool {
	return len(m.Columns) == 0 || m.HasColumn(col)
}
