package utils

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSONToString renders object as JSON without HTML escaping, so reply text
// containing '<' or '&' prints as written. With indent set the output is
// indented by two spaces. A marshalling failure is rendered as an error
// object instead, which keeps the result usable in log and CLI output.
func JSONToString(object any, indent ...bool) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if len(indent) > 0 && indent[0] {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(object); err != nil {
		data, _ := json.Marshal(map[string]string{"error": "failed to marshal to JSON: " + err.Error()})
		return string(data)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
