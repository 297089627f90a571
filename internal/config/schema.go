package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema is the structural contract for configuration files.
// Semantic rules (positive intervals, unique windows) live in
// Validate; the schema only pins shapes and types.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "flushInterval": { "type": "string" },
    "bufferLimit": { "type": "integer" },
    "minimumSamples": { "type": "integer" },
    "deviationThreshold": { "type": "number" },
    "windows": {
      "type": "array",
      "items": { "type": "string" }
    },
    "storage": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "path": { "type": "string" }
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": { "type": "string", "enum": ["debug", "info", "warn", "error"] },
        "development": { "type": "boolean" },
        "file": { "type": "string" },
        "maxSizeMB": { "type": "integer" },
        "maxBackups": { "type": "integer" }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("config.schema.json", configSchema)

// validateSchema checks canonical JSON config bytes against the
// embedded schema and rewraps failures into readable errors.
func validateSchema(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			return fmt.Errorf("config schema violation: %s", flattenCauses(ve))
		}
		return fmt.Errorf("config schema violation: %w", err)
	}
	return nil
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

// flattenCauses renders the leaf causes of a validation error, which
// carry the actually useful messages.
func flattenCauses(ve *jsonschema.ValidationError) string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, ve.Message)
	}

	parts := make([]string, 0, len(ve.Causes))
	for _, c := range ve.Causes {
		parts = append(parts, flattenCauses(c))
	}
	return strings.Join(parts, "; ")
}
