package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk module catalog
type SeedFile struct {
	Modules []SeedModule `yaml:"modules"`
}

// SeedModule is one catalog entry. Active defaults to true.
type SeedModule struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Icon         string `yaml:"icon"`
	DisplayOrder int    `yaml:"displayOrder"`
	Active       *bool  `yaml:"active"`
}

// LoadSeedFile parses a module catalog file
func LoadSeedFile(path string) ([]Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module catalog: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses module catalog YAML
func ParseSeed(data []byte) ([]Module, error) {
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse module catalog: %w", err)
	}
	if len(file.Modules) == 0 {
		return nil, fmt.Errorf("module catalog contains no modules")
	}

	seen := make(map[string]bool, len(file.Modules))
	modules := make([]Module, 0, len(file.Modules))
	for i, sm := range file.Modules {
		if sm.Name == "" {
			return nil, fmt.Errorf("module %d has no name", i)
		}
		if seen[sm.Name] {
			return nil, fmt.Errorf("module %q is listed twice", sm.Name)
		}
		seen[sm.Name] = true

		active := true
		if sm.Active != nil {
			active = *sm.Active
		}
		modules = append(modules, Module{
			Name:         sm.Name,
			Description:  sm.Description,
			Icon:         sm.Icon,
			IsActive:     active,
			DisplayOrder: sm.DisplayOrder,
		})
	}
	return modules, nil
}

// SeedFromFile loads the catalog file and upserts every module it lists
func SeedFromFile(ctx context.Context, store *Store, path string) error {
	modules, err := LoadSeedFile(path)
	if err != nil {
		return err
	}
	return store.UpsertModules(ctx, modules)
}
