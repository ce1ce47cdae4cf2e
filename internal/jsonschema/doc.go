// Package jsonschema derives JSON Schema documents from Go types by
// reflection and validates JSON against them.
//
// [Generate] covers what the record types use: flat structs, primitives,
// slices and string-keyed maps. The schema is sent to models as a format hint
// and printed by the CLI; [Validator] checks documents against it with
// github.com/santhosh-tekuri/jsonschema/v5.
package jsonschema
