package model

import (
	"errors"
	"fmt"
)

var Registry = map[string]*Model{}

// ErrModelNotFound is returned by Get for an unknown model name.
var ErrModelNotFound = errors.New("model not found")

func InitRegistry(dir string) error {
	if err := LoadModelsFromDir(dir); err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if err := LinkModelRelations(); err != nil {
		return fmt.Errorf("link error: %w", err)
	}
	if err := ValidateModels(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	logRegistryStats()
	return nil
}

// ResetRegistry drops every loaded model.
func ResetRegistry() {
	Registry = map[string]*Model{}
}

func Get(name string) (*Model, error) {
	m, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return m, nil
}

func (m *Model) GetRelation(alias string) *ModelRelation {
	if m == nil || m.Relations == nil {
		return nil
	}
	return m.Relations[alias]
}
