package model

import (
	"fmt"
	"strings"
	"unicode"
)

// LinkModelRelations resolves relation targets and fills FK/PK defaults.
func LinkModelRelations() error {
	for modelName, model := range Registry {
		for relName, rel := range model.Relations {
			if rel == nil {
				return fmt.Errorf("relation '%s.%s' is empty", modelName, relName)
			}
			if rel.Type != HasMany && rel.Type != HasOne && rel.Type != BelongsTo {
				return fmt.Errorf("relation '%s.%s' must have valid Type (has_many, has_one, belongs_to), got '%s'", modelName, relName, rel.Type)
			}
			targetModel, ok := Registry[rel.Model]
			if !ok {
				return fmt.Errorf("invalid relation: model '%s' not found in '%s.%s'", rel.Model, modelName, relName)
			}
			rel._ModelRef = targetModel
			if rel.Table == "" {
				rel.Table = targetModel.Table
			}

			if rel.FK == "" {
				switch rel.Type {
				case BelongsTo:
					// FK lives in the current model and points to the related one
					rel.FK = relName + "_id"
				case HasOne, HasMany:
					// FK lives in the related (or join) model and points back here
					rel.FK = toSnakeCase(singular(modelName)) + "_id"
				}
			}
			if rel.PK == "" {
				rel.PK = "id"
			}

			if rel.Through != "" {
				if rel.Type == BelongsTo {
					return fmt.Errorf("invalid through: belongs_to '%s.%s' cannot use through", modelName, relName)
				}
				throughModel, ok := Registry[rel.Through]
				if !ok {
					return fmt.Errorf("invalid through: model '%s' not found in '%s.%s'", rel.Through, modelName, relName)
				}
				if throughRelation(throughModel, rel.Model) == nil {
					return fmt.Errorf("invalid through: no belongs_to relation from '%s' to '%s' found in '%s.%s'",
						rel.Through, rel.Model, modelName, relName)
				}
				rel._ThroughRef = throughModel
			}
		}
	}
	return nil
}

// throughRelation finds the belongs_to relation of the join model that
// points at target.
func throughRelation(through *Model, target string) *ModelRelation {
	for _, r := range through.Relations {
		if r.Model == target && r.Type == BelongsTo {
			return r
		}
	}
	return nil
}

func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// singular strips a trailing "s" from table-style model names (users -> user).
func singular(name string) string {
	if strings.HasSuffix(name, "ss") || !strings.HasSuffix(name, "s") {
		return name
	}
	return strings.TrimSuffix(name, "s")
}
