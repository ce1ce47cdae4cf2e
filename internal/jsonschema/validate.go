package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceName = "schema.json"

// Validator checks documents against a compiled schema. It is safe for
// concurrent use.
type Validator struct {
	compiled *santhosh.Schema
}

// NewValidator compiles s.
func NewValidator(s *Schema) (*Validator, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}
	return CompileRaw(raw)
}

// CompileRaw compiles a schema given as JSON.
func CompileRaw(raw []byte) (*Validator, error) {
	compiler := santhosh.NewCompiler()
	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{compiled: compiled}, nil
}

// Validate checks a decoded document (the result of json.Unmarshal into any).
func (v *Validator) Validate(doc any) error {
	if err := v.compiled.Validate(doc); err != nil {
		return fmt.Errorf("document does not match schema: %w", err)
	}
	return nil
}

// ValidateJSON decodes data and validates it.
func (v *Validator) ValidateJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode document for validation: %w", err)
	}
	return v.Validate(doc)
}
