package changeset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func unmarshalStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// validateAgainstSchema round-trips v through encoding/json into the
// map[string]any shape jsonschema/v5 validates against, then runs check.
func validateAgainstSchema(v any, check func(map[string]any) error) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode for schema validation: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode for schema validation: %w", err)
	}
	return check(raw)
}

// metaSchemaJSON and planSchemaJSON are embedded JSON Schemas (draft 2020-12
// compatible subset) validated via github.com/santhosh-tekuri/jsonschema/v5,
// grounded on the teacher's agent.compileSchema pattern for validating
// structured documents before the engine trusts them.
const metaSchemaJSON = `{
  "type": "object",
  "required": ["schema_version", "change_set_id", "plan_sha256", "repo_key", "base_state"],
  "properties": {
    "schema_version": {"type": "integer"},
    "change_set_id": {"type": "string", "minLength": 1},
    "base_state_created_at": {"type": "string"},
    "plan_sha256": {"type": "string", "minLength": 64, "maxLength": 64},
    "repo_key": {"type": "string", "minLength": 1},
    "base_state": {"type": "string"},
    "intent": {"type": "string"}
  }
}`

const planSchemaJSON = `{
  "type": "object",
  "required": ["schema_version", "goal", "tiers", "tasks"],
  "properties": {
    "schema_version": {"type": "integer"},
    "goal": {"type": "string", "minLength": 1},
    "tiers": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "step_type", "description", "tool_calls"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "step_type": {"type": "string"},
          "description": {"type": "string"},
          "tool_calls": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["tool_name"],
              "properties": {
                "tool_name": {"type": "string", "minLength": 1},
                "arguments": {"type": "object"}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	metaSchemaOnce sync.Once
	metaSchema     *jsonschema.Schema
	metaSchemaErr  error

	planSchemaOnce sync.Once
	planSchema     *jsonschema.Schema
	planSchemaErr  error
)

func compileEmbeddedSchema(name, src string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, err
	}
	return c.Compile(name)
}

func validateMetaDoc(raw map[string]any) error {
	metaSchemaOnce.Do(func() {
		metaSchema, metaSchemaErr = compileEmbeddedSchema("meta.json", metaSchemaJSON)
	})
	if metaSchemaErr != nil {
		return fmt.Errorf("changeset: compile meta schema: %w", metaSchemaErr)
	}
	if err := metaSchema.Validate(raw); err != nil {
		return fmt.Errorf("changeset: 00-meta.json failed schema validation: %w", err)
	}
	return nil
}

func validatePlanDoc(raw map[string]any) error {
	planSchemaOnce.Do(func() {
		planSchema, planSchemaErr = compileEmbeddedSchema("plan.json", planSchemaJSON)
	})
	if planSchemaErr != nil {
		return fmt.Errorf("changeset: compile plan schema: %w", planSchemaErr)
	}
	if err := planSchema.Validate(raw); err != nil {
		return fmt.Errorf("changeset: 02-implementation-plan.json failed schema validation: %w", err)
	}
	return nil
}
