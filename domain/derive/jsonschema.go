package derive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/artifexhq/artifex/domain/artifact"
)

// JsonSchemaDeriver derives one Definition per $defs entry and one
// PropertyDeclaration per top-level property of a JSON Schema document.
type JsonSchemaDeriver struct{}

func NewJsonSchemaDeriver() *JsonSchemaDeriver { return &JsonSchemaDeriver{} }

func (d *JsonSchemaDeriver) Name() string { return "jsonschema" }

func (d *JsonSchemaDeriver) Derive(primary *artifact.Artifact, content []byte) (*Result, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(content, &schema); err != nil {
		return nil, fmt.Errorf("parse json schema document: %w", err)
	}

	if schema.Title != "" {
		primary.SetProperty("schemaTitle", schema.Title)
	}
	if schema.ID != "" {
		primary.SetProperty("schemaId", schema.ID)
	}

	res := &Result{}

	defs := schema.Defs
	if len(defs) == 0 {
		// Pre-2019 documents use "definitions".
		var legacy struct {
			Definitions map[string]*jsonschema.Schema `json:"definitions"`
		}
		if err := json.Unmarshal(content, &legacy); err == nil {
			defs = legacy.Definitions
		}
	}
	for _, name := range sortedKeys(defs) {
		def := newDeclaration(artifact.TypeDefinition, name, schema.ID)
		if def.Name != "" && defs[name] != nil && defs[name].Description != "" {
			def.Description = defs[name].Description
		}
		res.Derived = append(res.Derived, def)
	}

	for _, name := range sortedKeys(schema.Properties) {
		prop := newDeclaration(artifact.TypePropertyDeclaration, name, schema.ID)
		if ps := schema.Properties[name]; ps != nil {
			if len(ps.Types) > 0 {
				prop.SetProperty("propertyType", ps.Types[0])
			} else if ps.Type != "" {
				prop.SetProperty("propertyType", ps.Type)
			}
			if ps.Description != "" {
				prop.Description = ps.Description
			}
		}
		res.Derived = append(res.Derived, prop)
	}
	return res, nil
}

func (d *JsonSchemaDeriver) Link(ctx context.Context, lc *LinkContext, primary *artifact.Artifact, derived []*artifact.Artifact) error {
	return nil
}

func sortedKeys(m map[string]*jsonschema.Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
