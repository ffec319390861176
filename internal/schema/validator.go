package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed partspec.schema.yaml
var partSpecSchemaYAML []byte

//go:embed knowledge.schema.yaml
var knowledgeSchemaYAML []byte

// Validator handles JSON schema validation of input documents
type Validator struct {
	partSpecSchema  *jsonschema.Schema
	knowledgeSchema *jsonschema.Schema
}

// NewValidator compiles the bundled schemas
func NewValidator() (*Validator, error) {
	v := &Validator{}

	partSpecSchema, err := compileSchema("processagent://schemas/partspec.json", partSpecSchemaYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load part spec schema: %w", err)
	}
	v.partSpecSchema = partSpecSchema

	knowledgeSchema, err := compileSchema("processagent://schemas/knowledge.json", knowledgeSchemaYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base schema: %w", err)
	}
	v.knowledgeSchema = knowledgeSchema

	return v, nil
}

// ValidatePartSpec validates a decoded part spec document against the schema
func (v *Validator) ValidatePartSpec(data interface{}) error {
	if v.partSpecSchema == nil {
		return fmt.Errorf("part spec schema not loaded")
	}
	doc, err := toJSONValue(data)
	if err != nil {
		return err
	}
	return v.partSpecSchema.Validate(doc)
}

// ValidateKnowledgeBase validates a decoded knowledge base document
func (v *Validator) ValidateKnowledgeBase(data interface{}) error {
	if v.knowledgeSchema == nil {
		return fmt.Errorf("knowledge base schema not loaded")
	}
	doc, err := toJSONValue(data)
	if err != nil {
		return err
	}
	return v.knowledgeSchema.Validate(doc)
}

// compileSchema compiles a schema written in YAML (or JSON)
func compileSchema(url string, data []byte) (*jsonschema.Schema, error) {
	// Parse YAML to interface{} (supports both YAML and JSON)
	var schemaData interface{}
	if err := yaml.Unmarshal(data, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	// Convert to JSON for schema compiler
	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(jsonData)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
}

// toJSONValue round-trips a YAML-decoded value through encoding/json so the
// validator only sees JSON types (float64 numbers, string-keyed maps).
func toJSONValue(data interface{}) (interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document for validation: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document for validation: %w", err)
	}
	return doc, nil
}
