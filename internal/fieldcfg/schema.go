package fieldcfg

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// mappingSchema is the structural contract for mapping.yaml. The YAML
// document is decoded to plain values and checked as JSON.
var mappingSchema = map[string]any{
	"type":     "object",
	"required": []any{"output_sheet", "output_columns"},
	"properties": map[string]any{
		"output_sheet": map[string]any{"type": "string", "minLength": 1},
		"output_columns": map[string]any{
			"type":                 "object",
			"minProperties":        1,
			"additionalProperties": map[string]any{"type": "string"},
		},
		"required_fields": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"synonyms": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"patterns": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
		"normalize": map[string]any{"type": "object"},
	},
}

func validateSchema(yamlDoc []byte) error {
	var v any
	if err := yaml.Unmarshal(yamlDoc, &v); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}

	b, err := json.Marshal(mappingSchema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("mapping.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("mapping.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("mapping does not match schema: %w", err)
	}
	return nil
}
