package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

var allowedModelKeys = map[string]bool{
	"table":        true,
	"primary_keys": true,
	"columns":      true,
	"relations":    true,
}

var allowedRelationKeys = map[string]bool{
	"model":         true,
	"type":          true,
	"fk":            true,
	"pk":            true,
	"table":         true,
	"where":         true,
	"order":         true,
	"through":       true,
	"through_where": true,
}

var allowedRelationTypes = map[string]bool{
	BelongsTo: true,
	HasOne:    true,
	HasMany:   true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "model"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "model":
			allowedKeys = allowedModelKeys
		case "relation":
			allowedKeys = allowedRelationKeys
		case "relations-map":
			allowedKeys = nil
		default:
			return fmt.Errorf("unexpected mapping in %s", context)
		}

		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s", key, context)
			}
			if context == "relation" && key == "type" && !allowedRelationTypes[valNode.Value] {
				return fmt.Errorf("unknown relation type '%s' (allowed: has_one, has_many, belongs_to)", valNode.Value)
			}

			var nextContext string
			switch {
			case context == "model" && key == "relations":
				nextContext = "relations-map"
			case context == "model" && (key == "columns" || key == "primary_keys"):
				nextContext = "column-list"
			case context == "relations-map":
				nextContext = "relation"
			default:
				nextContext = "scalar"
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		if context != "column-list" {
			return fmt.Errorf("unexpected list in %s", context)
		}
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("column lists must contain plain names")
			}
			if !identRe.MatchString(item.Value) {
				return fmt.Errorf("invalid column name '%s'", item.Value)
			}
		}

	case yaml.ScalarNode:
		if context == "column-list" {
			return fmt.Errorf("columns and primary_keys must be lists")
		}
	}

	return nil
}
