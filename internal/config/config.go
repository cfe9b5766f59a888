// Package config loads host configuration: validator thresholds and the
// default Resolver's static asset table, from a YAML or JSON file,
// schema-validated before it is bound into a Go struct.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/kosuke-fujisawa/tsumugai/internal/resolver"
	"github.com/kosuke-fujisawa/tsumugai/internal/validator"
)

// Config is the bound shape of a loaded config file.
type Config struct {
	Validator ValidatorConfig `json:"validator" yaml:"validator"`
	Resolver  ResolverConfig  `json:"resolver" yaml:"resolver"`
}

// ValidatorConfig carries the validator.Options fields a host may override.
type ValidatorConfig struct {
	LongTextThreshold int `json:"long_text_threshold" yaml:"long_text_threshold"`
}

// ResolverConfig is a static logical-name-to-path table per asset kind.
type ResolverConfig struct {
	Bgm   map[string]string `json:"bgm" yaml:"bgm"`
	Se    map[string]string `json:"se" yaml:"se"`
	Image map[string]string `json:"image" yaml:"image"`
	Movie map[string]string `json:"movie" yaml:"movie"`
}

// schemaJSON is the JSON Schema every config file must satisfy, regardless
// of whether it was written as YAML or JSON on disk.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "validator": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "long_text_threshold": {"type": "integer", "minimum": 1}
      }
    },
    "resolver": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "bgm":   {"type": "object", "additionalProperties": {"type": "string"}},
        "se":    {"type": "object", "additionalProperties": {"type": "string"}},
        "image": {"type": "object", "additionalProperties": {"type": "string"}},
        "movie": {"type": "object", "additionalProperties": {"type": "string"}}
      }
    }
  }
}`

func compiledSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("config.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("config: compiling built-in schema: %w", err)
	}
	return compiler.Compile("config.schema.json")
}

// Load reads path (YAML if its extension is .yaml/.yml, JSON otherwise),
// validates it against the built-in schema, and binds it into a Config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse validates and binds raw config bytes. ext selects the decoder:
// ".yaml"/".yml" decode as YAML, anything else is treated as JSON.
func Parse(raw []byte, ext string) (*Config, error) {
	jsonBytes, err := toJSON(raw, ext)
	if err != nil {
		return nil, err
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, fmt.Errorf("config: decoding for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("config: schema validation failed: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonBytes, &cfg); err != nil {
		return nil, fmt.Errorf("config: binding: %w", err)
	}
	return &cfg, nil
}

func toJSON(raw []byte, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var generic interface{}
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("config: parsing YAML: %w", err)
		}
		jsonBytes, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("config: converting YAML to JSON: %w", err)
		}
		return jsonBytes, nil
	default:
		var probe interface{}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("config: parsing JSON: %w", err)
		}
		return bytes.TrimSpace(raw), nil
	}
}

// ResolverTable builds a resolver.Resolver from the config's static asset
// tables.
func (c *Config) ResolverTable() resolver.Resolver {
	return resolver.Static{
		Bgm:   c.Resolver.Bgm,
		Se:    c.Resolver.Se,
		Image: c.Resolver.Image,
		Movie: c.Resolver.Movie,
	}
}

// ValidatorOptions builds validator.Options from the config.
func (c *Config) ValidatorOptions() validator.Options {
	return validator.Options{LongTextThreshold: c.Validator.LongTextThreshold}
}
