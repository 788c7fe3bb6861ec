package ontology

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadSeedDir reads every *.yaml / *.yml file in dir as an ontology
// definition and normalizes it. Used to preload taxonomies at startup.
func LoadSeedDir(dir string) ([]*Ontology, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read ontology seed dir: %w", err)
	}

	var out []*Ontology
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		o, err := LoadSeedFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadSeedFile parses a single YAML ontology definition.
func LoadSeedFile(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ontology seed %s: %w", path, err)
	}
	var o Ontology
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse ontology seed %s: %w", path, err)
	}
	if err := o.Normalize(); err != nil {
		return nil, fmt.Errorf("ontology seed %s: %w", path, err)
	}
	return &o, nil
}
