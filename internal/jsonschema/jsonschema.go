package jsonschema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the subset of JSON Schema the record types need.
type Schema struct {
	// Type is the JSON type ("object", "array", "string", ...)
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of an object, keyed by JSON name
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Items is the element schema of an array
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties is the value schema of a map-typed object
	AdditionalProperties *Schema `json:"additionalProperties,omitempty"`
	Enum                 []any   `json:"enum,omitempty"`
}

// Generate returns the schema of T.
func Generate[T any]() (*Schema, error) {
	return GenerateType(reflect.TypeFor[T]())
}

// GenerateType returns the schema of t. Struct fields follow their json
// tags; the jsonschema tag adds a description, enum values and "required".
// A field without omitempty is required as well. Recursive types, maps with
// non-string keys, and channel or function types are rejected.
func GenerateType(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("nil type")
	}
	s, err := generate(t, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	if s.Type == "object" && s.Title == "" && t.Name() != "" {
		s.Title = t.Name()
	}
	return s, nil
}

func generate(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return generate(t.Elem(), inProgress)
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Slice, reflect.Array:
		items, err := generate(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %v is not a string", t.Key())
		}
		values, err := generate(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil
	case reflect.Struct:
		if inProgress[t] {
			return nil, fmt.Errorf("recursive type %v is not supported", t)
		}
		inProgress[t] = true
		defer delete(inProgress, t)
		return generateStruct(t, inProgress)
	case reflect.Interface:
		return &Schema{}, nil
	default:
		return nil, fmt.Errorf("unsupported type %v", t)
	}
}

func generateStruct(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	s := &Schema{Type: "object", Properties: map[string]*Schema{}}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}

		fs, err := generate(field.Type, inProgress)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		requiredByTag, err := applyTag(field.Type, field.Tag.Get("jsonschema"), fs)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		s.Properties[name] = fs
		if requiredByTag || (!omitEmpty && field.Type.Kind() != reflect.Pointer) {
			s.Required = append(s.Required, name)
		}
	}
	return s, nil
}

func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	return name, strings.Contains(opts, "omitempty"), false
}

// applyTag applies a jsonschema tag of comma-separated items:
// "description=...", "enum=..." (repeatable, converted to the field's type)
// and "required". It reports whether the field was marked required.
func applyTag(fieldType reflect.Type, tag string, s *Schema) (bool, error) {
	if tag == "" {
		return false, nil
	}

	required := false
	for _, item := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		switch {
		case key == "required" && !hasValue:
			required = true
		case key == "description":
			s.Description = value
		case key == "enum":
			v, err := enumValue(fieldType, value)
			if err != nil {
				return false, err
			}
			s.Enum = append(s.Enum, v)
		default:
			return false, fmt.Errorf("unknown jsonschema tag item %q", item)
		}
	}
	return required, nil
}

func enumValue(t reflect.Type, value string) (any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to int64 failed: %w", value, err)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to float64 failed: %w", value, err)
		}
		return v, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to bool failed: %w", value, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for field type: %v", t)
	}
}
