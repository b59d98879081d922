package config

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/nickcecere/convsync/pkg/syncerr"
)

//go:embed schema/*.json
var schemaFS embed.FS

// validateAgainstSchema loads yamlData as YAML, re-encodes it as JSON (the
// schema library only understands JSON-shaped documents), and validates it
// against the named embedded schema file.
func validateAgainstSchema(schemaName string, yamlData []byte) error {
	schemaBytes, err := schemaFS.ReadFile("schema/" + schemaName)
	if err != nil {
		return fmt.Errorf("config: read embedded schema %s: %w", schemaName, err)
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return fmt.Errorf("config: unmarshal schema %s: %w", schemaName, err)
	}

	c := jsonschema.NewCompiler()
	url := "mem://convsync/" + schemaName
	if err := c.AddResource(url, schemaDoc); err != nil {
		return fmt.Errorf("config: add schema resource %s: %w", schemaName, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("config: compile schema %s: %w", schemaName, err)
	}

	var generic map[string]any
	if err := yaml.Unmarshal(yamlData, &generic); err != nil {
		return syncerr.New(syncerr.KindConfigFailure, "validate", fmt.Errorf("parse yaml: %w", err))
	}

	inst, err := toJSONInstance(generic)
	if err != nil {
		return syncerr.New(syncerr.KindConfigFailure, "validate", err)
	}
	if err := schema.Validate(inst); err != nil {
		return syncerr.New(syncerr.KindConfigFailure, "validate", fmt.Errorf("%s: %w", schemaName, err))
	}
	return nil
}

// toJSONInstance round-trips through the jsonschema package's own decoder so
// map keys and numeric types match what Validate expects, since go-yaml
// produces map[string]any with int/float64 mixed in ways jsonschema/v6
// doesn't always accept directly.
func toJSONInstance(v any) (any, error) {
	b, err := yamlRemarshalToJSON(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

func yamlRemarshalToJSON(v any) ([]byte, error) {
	return yaml.MarshalWithOptions(v, yaml.JSON())
}
