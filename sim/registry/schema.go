package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://asyncenv.invalid/specs.schema.json"

const specsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["specs"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string"},
    "specs": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "width", "height"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "width": {"type": "integer", "minimum": 1},
          "height": {"type": "integer", "minimum": 1},
          "mouse_required": {"type": "boolean"},
          "mouse_type": {"type": "string", "minLength": 1},
          "key_whitelist": {
            "type": "array",
            "items": {"type": "string", "minLength": 1}
          }
        }
      }
    }
  }
}`

// documentSchema compiles the schema once and shares it across Load calls.
var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(specsSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// validateDocument checks a decoded YAML document against the schema.
// The document is round-tripped through JSON so the validator sees the
// same value types encoding/json would produce.
func validateDocument(doc any) error {
	schema, err := documentSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return schema.Validate(payload)
}
