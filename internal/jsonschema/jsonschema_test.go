package jsonschema

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"testing"
)

type level string

type sample struct {
	Text     string            `json:"text" jsonschema:"description=Reply text"`
	Level    level             `json:"level" jsonschema:"enum=LOW,enum=HIGH"`
	Count    int               `json:"count,omitempty"`
	Ratio    *float64          `json:"ratio"`
	Flag     bool              `json:"flag,omitempty" jsonschema:"required"`
	Tags     []string          `json:"tags"`
	Facts    map[string]string `json:"facts"`
	Ignored  string            `json:"-"`
	internal string
	NoTag    string
}

func TestGenerate_Struct(t *testing.T) {
	s, err := Generate[sample]()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if s.Type != "object" || s.Title != "sample" {
		t.Errorf("root = %q/%q, want object/sample", s.Type, s.Title)
	}

	wantTypes := map[string]string{
		"text": "string", "level": "string", "count": "integer", "ratio": "number",
		"flag": "boolean", "tags": "array", "facts": "object", "NoTag": "string",
	}
	if len(s.Properties) != len(wantTypes) {
		t.Errorf("got %d properties, want %d", len(s.Properties), len(wantTypes))
	}
	for name, typ := range wantTypes {
		p, ok := s.Properties[name]
		if !ok {
			t.Errorf("missing property %q", name)
			continue
		}
		if p.Type != typ {
			t.Errorf("property %q type = %q, want %q", name, p.Type, typ)
		}
	}

	if got := s.Properties["text"].Description; got != "Reply text" {
		t.Errorf("description = %q", got)
	}
	if got := s.Properties["level"].Enum; !reflect.DeepEqual(got, []any{"LOW", "HIGH"}) {
		t.Errorf("enum = %v", got)
	}
	if got := s.Properties["tags"].Items; got == nil || got.Type != "string" {
		t.Errorf("tags items = %+v", got)
	}
	if got := s.Properties["facts"].AdditionalProperties; got == nil || got.Type != "string" {
		t.Errorf("facts additionalProperties = %+v", got)
	}

	wantRequired := []string{"text", "level", "flag", "tags", "facts", "NoTag"}
	if !slices.Equal(s.Required, wantRequired) {
		t.Errorf("required = %v, want %v", s.Required, wantRequired)
	}
}

func TestGenerate_Errors(t *testing.T) {
	type recursive struct {
		Next *recursive `json:"next"`
	}
	type badEnum struct {
		N int `json:"n" jsonschema:"enum=x"`
	}
	type badTag struct {
		S string `json:"s" jsonschema:"minLength=3"`
	}
	type badMap struct {
		M map[int]string `json:"m"`
	}
	type badChan struct {
		C chan int `json:"c"`
	}

	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{"recursive", reflect.TypeFor[recursive](), "recursive type"},
		{"enum conversion", reflect.TypeFor[badEnum](), "parse enum value"},
		{"unknown tag item", reflect.TypeFor[badTag](), "unknown jsonschema tag item"},
		{"map key", reflect.TypeFor[badMap](), "not a string"},
		{"channel", reflect.TypeFor[badChan](), "unsupported type"},
		{"nil", nil, "nil type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateType(tt.typ)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("GenerateType() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestGenerate_SharedStructIsNotRecursion(t *testing.T) {
	type inner struct {
		V string `json:"v"`
	}
	type outer struct {
		A inner `json:"a"`
		B inner `json:"b"`
	}
	s, err := Generate[outer]()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if s.Properties["b"].Properties["v"].Type != "string" {
		t.Errorf("second use of inner not expanded: %+v", s.Properties["b"])
	}
}

func TestValidator(t *testing.T) {
	s, err := Generate[sample]()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	v, err := NewValidator(s)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	valid := `{"text":"hi","level":"LOW","flag":true,"tags":["a"],"facts":{"k":"v"},"NoTag":"","ratio":1.5}`
	if err := v.ValidateJSON([]byte(valid)); err != nil {
		t.Errorf("ValidateJSON(valid) error = %v", err)
	}

	invalid := map[string]string{
		"missing required": `{"text":"hi","level":"LOW","tags":[],"facts":{},"NoTag":""}`,
		"enum":             `{"text":"hi","level":"MID","flag":true,"tags":[],"facts":{},"NoTag":""}`,
		"wrong type":       `{"text":1,"level":"LOW","flag":true,"tags":[],"facts":{},"NoTag":""}`,
		"map values":       `{"text":"hi","level":"LOW","flag":true,"tags":[],"facts":{"k":1},"NoTag":""}`,
		"not json":         `{"text":`,
	}
	for name, doc := range invalid {
		if err := v.ValidateJSON([]byte(doc)); err == nil {
			t.Errorf("ValidateJSON(%s) succeeded, want error", name)
		}
	}
}

func TestCompileRaw_Invalid(t *testing.T) {
	if _, err := CompileRaw([]byte(`{"type": 12}`)); err == nil {
		t.Error("CompileRaw() accepted an invalid schema")
	}
	if _, err := CompileRaw([]byte(`not json`)); err == nil {
		t.Error("CompileRaw() accepted malformed JSON")
	}
}

func TestSchema_MarshalOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(&Schema{Type: "string"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"type":"string"}` {
		t.Errorf("Marshal() = %s", data)
	}
}
