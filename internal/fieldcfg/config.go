// Package fieldcfg loads the mapping configuration that drives the
// field locator: output columns, required fields, label synonyms,
// extraction patterns and value-normalization tables. Loaded once per
// run and read-only afterwards.
package fieldcfg

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/lfbrandt/pdf-excel-ingestor/internal/common"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/textnorm"
)

type Config struct {
	OutputSheet string

	// FieldOrder preserves the declaration order of output_columns,
	// which is also the column order of the simple writer.
	FieldOrder    []string
	OutputColumns map[string]string // field key -> header text

	RequiredFields []string
	Synonyms       map[string][]string

	Patterns map[string]*regexp.Regexp

	// Lookup tables keyed by their accent-folded form.
	SexoMap     map[string]string
	InclusaoMap map[string]string
}

type rawConfig struct {
	OutputSheet    string              `yaml:"output_sheet"`
	OutputColumns  yaml.Node           `yaml:"output_columns"`
	RequiredFields []string            `yaml:"required_fields"`
	Synonyms       map[string][]string `yaml:"synonyms"`
	Patterns       map[string]string   `yaml:"patterns"`
	Normalize      struct {
		Sexo struct {
			Map map[string]string `yaml:"map"`
		} `yaml:"sexo"`
		Inclusao struct {
			Map map[string]string `yaml:"map"`
		} `yaml:"beneficiario_inclusao"`
	} `yaml:"normalize"`
}

// Load reads, validates and compiles the mapping file. Structural
// problems are precondition violations and abort before any page is
// processed.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	if err := validateSchema(b); err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "mapping file failed schema validation", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "mapping file is not valid YAML", err)
	}

	cfg := &Config{
		OutputSheet:    raw.OutputSheet,
		OutputColumns:  map[string]string{},
		RequiredFields: raw.RequiredFields,
		Synonyms:       raw.Synonyms,
		Patterns:       map[string]*regexp.Regexp{},
		SexoMap:        foldKeys(raw.Normalize.Sexo.Map),
		InclusaoMap:    foldKeys(raw.Normalize.Inclusao.Map),
	}
	if cfg.Synonyms == nil {
		cfg.Synonyms = map[string][]string{}
	}

	// output_columns is a mapping node; walking Content keeps the
	// author's column order.
	if raw.OutputColumns.Kind != yaml.MappingNode {
		return nil, common.NewAppError("CONFIG_ERROR", "output_columns must be a mapping", nil)
	}
	for i := 0; i+1 < len(raw.OutputColumns.Content); i += 2 {
		k := raw.OutputColumns.Content[i].Value
		v := raw.OutputColumns.Content[i+1].Value
		cfg.FieldOrder = append(cfg.FieldOrder, k)
		cfg.OutputColumns[k] = v
	}

	for name, expr := range raw.Patterns {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, common.NewAppError("CONFIG_ERROR",
				fmt.Sprintf("pattern %q does not compile", name), err)
		}
		cfg.Patterns[name] = re
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// check enforces the locator invariant: every field the locator can be
// asked to fill must exist in the output column enumeration.
func (c *Config) check() error {
	for _, f := range c.RequiredFields {
		if _, ok := c.OutputColumns[f]; !ok {
			return common.NewAppError("CONFIG_ERROR",
				fmt.Sprintf("required field %q is not an output column", f), nil)
		}
	}
	for f := range c.Synonyms {
		if _, ok := c.OutputColumns[f]; !ok {
			return common.NewAppError("CONFIG_ERROR",
				fmt.Sprintf("synonym list %q is not an output column", f), nil)
		}
	}
	return nil
}

func foldKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[textnorm.FoldAccentsLower(k)] = v
	}
	return out
}
