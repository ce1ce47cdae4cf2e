package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	// ErrEmptyInput is returned when there is nothing to decode.
	ErrEmptyInput = errors.New("empty input")

	// ErrNullInput is returned when the input is the bare JSON null literal.
	ErrNullInput = errors.New("input is the null literal")

	// ErrNotObject is returned by Object when the top-level value is not a JSON object.
	ErrNotObject = errors.New("top-level value is not an object")
)

// Strict decodes content into T with no recovery of any kind.
// Empty input and a bare null are rejected, so a zero T is never mistaken for a
// successful decode.
//
// Example usage:
//
//	type Reply struct {
//	    Text string `json:"text"`
//	}
//
//	reply, err := Strict[Reply](`{"text":"hi"}`)
func Strict[T any](content string) (T, error) {
	var result T

	if err := checkContent(content); err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T: %w", result, err)
	}
	return result, nil
}

// Repaired decodes content into T, falling back to jsonrepair and then to
// schema-envelope unwrapping when a strict decode fails. The boolean reports
// whether any recovery step was needed.
//
// Example usage:
//
//	// Parse an invalid JSON string (will be auto-repaired)
//	reply, repaired, err := Repaired[Reply](`{text: 'hi',}`)
func Repaired[T any](content string) (T, bool, error) {
	result, err := Strict[T](content)
	if err == nil {
		return result, false, nil
	}
	if errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrNullInput) {
		return result, false, err
	}

	repairedJSON, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, false, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}

	var repaired T
	err = json.Unmarshal([]byte(repairedJSON), &repaired)
	if err == nil {
		return repaired, true, nil
	}

	// Models sometimes confuse a schema definition with the data itself.
	unwrapped, unwrapErr := unwrapSchemaValues(repairedJSON)
	if unwrapErr == nil {
		var fromEnvelope T
		if err = json.Unmarshal([]byte(unwrapped), &fromEnvelope); err == nil {
			return fromEnvelope, true, nil
		}
	}

	return result, false, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (repaired: %s)", result, err, repairedJSON)
}

// Object decodes content into a loosely typed map. Numbers are kept as
// json.Number so their textual form survives coercion. Like Repaired, it
// retries through jsonrepair and reports whether that was needed.
func Object(content string) (map[string]any, bool, error) {
	if err := checkContent(content); err != nil {
		return nil, false, err
	}

	obj, err := decodeObject(content)
	if err == nil {
		return obj, false, nil
	}

	repairedJSON, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return nil, false, fmt.Errorf("failed to decode object and failed to repair JSON: decode error: %w, repair error: %v", err, repairErr)
	}

	obj, err = decodeObject(repairedJSON)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode repaired JSON as object: %w", err)
	}

	if unwrapped, ok := recursiveUnwrap(obj).(map[string]any); ok {
		obj = unwrapped
	}
	return obj, true, nil
}

// Repair returns content rewritten by jsonrepair into valid JSON.
func Repair(content string) (string, error) {
	if err := checkContent(content); err != nil {
		return "", err
	}
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return "", fmt.Errorf("failed to repair JSON: %w", err)
	}
	return repaired, nil
}

func checkContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyInput
	}
	if trimmed == "null" {
		return ErrNullInput
	}
	return nil
}

func decodeObject(content string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after top-level value")
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// unwrapSchemaValues attempts to detect and unwrap values that are wrapped
// in a schema-like structure with "type" and "value" fields.
//
// Example input:
//
//	{"replySuggestion": {"type": "string", "value": "ok"}}
//
// Example output:
//
//	{"replySuggestion": "ok"}
func unwrapSchemaValues(jsonStr string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return "", err
	}

	result, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(result), nil
}

// recursiveUnwrap recursively processes data structures to unwrap schema-like values
func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}

		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result

	default:
		return data
	}
}
