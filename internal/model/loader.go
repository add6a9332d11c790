package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"UsersAPI/internal/logger"

	"gopkg.in/yaml.v3"
)

func LoadModelsFromDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no model files in %s", dir)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		// structural validation runs on the raw node tree first
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("YAML parse error in %s: %w", path, err)
		}
		if len(root.Content) == 0 {
			return fmt.Errorf("empty YAML in %s", path)
		}
		if err := validateYAMLNode(root.Content[0], "model"); err != nil {
			return fmt.Errorf("validation error in %s: %w", path, err)
		}

		var model Model
		if err := root.Decode(&model); err != nil {
			return fmt.Errorf("unmarshal error in %s: %w", path, err)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		model.Name = name
		Registry[name] = &model
		logger.Info("model_loaded", map[string]any{
			"model":     name,
			"table":     model.Table,
			"columns":   len(model.Columns),
			"relations": len(model.Relations),
		})
	}
	return nil
}
