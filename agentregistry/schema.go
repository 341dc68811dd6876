package agentregistry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// definitionSchemaJSON is the JSON Schema an incoming AgentDefinition (e.g.
// one synthesised by the Proposal Manager from an external data source
// description) must satisfy before it is catalogued.
const definitionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["agentId", "name", "version", "category"],
  "properties": {
    "agentId": {"type": "string", "pattern": "^agent\\."},
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "category": {
      "enum": ["data_acquisition", "data_processing", "analysis", "monitoring", "integration"]
    },
    "namespace": {"type": "string", "minLength": 1},
    "riskLevel": {"enum": ["low", "medium", "high", "critical"]}
  }
}`

// definitionSchema compiles the AgentDefinition JSON Schema once. Panics on
// a malformed embedded schema, which would be a programmer error caught at
// package init time, not a runtime condition.
var definitionSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(definitionSchemaJSON)))
	if err != nil {
		panic(fmt.Sprintf("agentregistry: invalid embedded schema: %v", err))
	}
	const resourceName = "agentregistry/definition.schema.json"
	if err := c.AddResource(resourceName, doc); err != nil {
		panic(fmt.Sprintf("agentregistry: add schema resource: %v", err))
	}
	schema, err := c.Compile(resourceName)
	if err != nil {
		panic(fmt.Sprintf("agentregistry: compile schema: %v", err))
	}
	return schema
}

// ValidateDefinitionJSON validates a candidate agent definition document
// (as produced by the Proposal Manager's template synthesis, see spec
// §4.I) against the registry's structural schema. RegisterDefinition does
// not call it; a definition is checked only where a caller runs it.
func ValidateDefinitionJSON(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("agent definition is not valid JSON: %w", err)
	}
	if err := definitionSchema.Validate(v); err != nil {
		return fmt.Errorf("agent definition failed schema validation: %w", err)
	}
	return nil
}
