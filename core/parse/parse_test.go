package parse

import (
	"encoding/json"
	"errors"
	"testing"
)

type reply struct {
	Text  string   `json:"text"`
	Score int      `json:"score"`
	Tags  []string `json:"tags"`
}

func TestStrict(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    reply
		wantErr error
	}{
		{
			name:  "valid JSON",
			input: `{"text":"hello","score":3}`,
			want:  reply{Text: "hello", Score: 3},
		},
		{
			name:  "valid JSON with spaces",
			input: ` { "text" : "hi" , "score" : 1 } `,
			want:  reply{Text: "hi", Score: 1},
		},
		{
			name:    "empty string",
			input:   "   ",
			wantErr: ErrEmptyInput,
		},
		{
			name:    "null literal",
			input:   "null",
			wantErr: ErrNullInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Strict[reply](tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Strict() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Strict() unexpected error = %v", err)
			}
			if got.Text != tt.want.Text || got.Score != tt.want.Score {
				t.Errorf("Strict() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStrict_RejectsMalformed(t *testing.T) {
	inputs := []string{
		`{text: "hi"}`,
		`{"text": "hi",}`,
		`{"text": "hi"`,
		`{"score": "not a number"}`,
		`this is not json at all`,
	}
	for _, input := range inputs {
		if _, err := Strict[reply](input); err == nil {
			t.Errorf("Strict(%q) expected error, got nil", input)
		}
	}
}

func TestRepaired(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		want         reply
		wantRepaired bool
		wantErr      bool
	}{
		{
			name:  "valid JSON needs no repair",
			input: `{"text":"John","score":30}`,
			want:  reply{Text: "John", Score: 30},
		},
		{
			name:         "missing quotes around keys (should be repaired)",
			input:        `{text: "Alice", score: 28}`,
			want:         reply{Text: "Alice", Score: 28},
			wantRepaired: true,
		},
		{
			name:         "single quotes (should be repaired)",
			input:        `{'text': 'Bob', 'score': 35}`,
			want:         reply{Text: "Bob", Score: 35},
			wantRepaired: true,
		},
		{
			name:         "trailing comma (should be repaired)",
			input:        `{"text": "Charlie", "score": 40,}`,
			want:         reply{Text: "Charlie", Score: 40},
			wantRepaired: true,
		},
		{
			name:         "missing closing bracket (should be repaired)",
			input:        `{"text": "David", "score": 45`,
			want:         reply{Text: "David", Score: 45},
			wantRepaired: true,
		},
		{
			name:         "schema-wrapped fields",
			input:        `{"text": {"type": "string", "value": "Eve"}, "score": {"type": "integer", "value": 5}}`,
			want:         reply{Text: "Eve", Score: 5},
			wantRepaired: true,
		},
		{
			name:    "completely invalid JSON",
			input:   `this is not json at all`,
			wantErr: true,
		},
		{
			name:    "null literal",
			input:   `null`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, repaired, err := Repaired[reply](tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Repaired() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if repaired != tt.wantRepaired {
				t.Errorf("Repaired() repaired = %v, want %v", repaired, tt.wantRepaired)
			}
			if got.Text != tt.want.Text || got.Score != tt.want.Score {
				t.Errorf("Repaired() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestObject(t *testing.T) {
	t.Run("keeps numbers as json.Number", func(t *testing.T) {
		obj, repaired, err := Object(`{"age": 30, "ratio": 0.5}`)
		if err != nil {
			t.Fatalf("Object() error = %v", err)
		}
		if repaired {
			t.Errorf("Object() repaired = true, want false")
		}
		if n, ok := obj["age"].(json.Number); !ok || n.String() != "30" {
			t.Errorf("Object()[age] = %#v, want json.Number(30)", obj["age"])
		}
		if n, ok := obj["ratio"].(json.Number); !ok || n.String() != "0.5" {
			t.Errorf("Object()[ratio] = %#v, want json.Number(0.5)", obj["ratio"])
		}
	})

	t.Run("repairs malformed object", func(t *testing.T) {
		obj, repaired, err := Object(`{text: 'hi', tags: ['a', 'b'],}`)
		if err != nil {
			t.Fatalf("Object() error = %v", err)
		}
		if !repaired {
			t.Errorf("Object() repaired = false, want true")
		}
		if obj["text"] != "hi" {
			t.Errorf("Object()[text] = %v, want hi", obj["text"])
		}
		tags, ok := obj["tags"].([]any)
		if !ok || len(tags) != 2 {
			t.Errorf("Object()[tags] = %#v, want two elements", obj["tags"])
		}
	})

	t.Run("rejects arrays", func(t *testing.T) {
		if _, _, err := Object(`[1, 2, 3]`); err == nil {
			t.Errorf("Object() expected error for array input")
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		if _, _, err := Object(""); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Object() error = %v, want %v", err, ErrEmptyInput)
		}
	})
}

func TestRecursiveUnwrap(t *testing.T) {
	input := map[string]any{
		"outer": map[string]any{"type": "object", "value": map[string]any{
			"inner": map[string]any{"type": "string", "value": "x"},
		}},
		"list": []any{map[string]any{"type": "string", "value": "y"}, "z"},
		"keep": map[string]any{"type": "t", "value": "v", "extra": true},
	}

	got := recursiveUnwrap(input).(map[string]any)

	outer := got["outer"].(map[string]any)
	if outer["inner"] != "x" {
		t.Errorf("outer.inner = %v, want x", outer["inner"])
	}
	list := got["list"].([]any)
	if list[0] != "y" || list[1] != "z" {
		t.Errorf("list = %v, want [y z]", list)
	}
	if keep, ok := got["keep"].(map[string]any); !ok || len(keep) != 3 {
		t.Errorf("keep = %v, want untouched three-key map", got["keep"])
	}
}
