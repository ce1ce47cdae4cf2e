package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/leofalp/replyparse/core/record"
	"github.com/leofalp/replyparse/internal/utils"
)

// result is the printed form of one parse.
type result struct {
	ID     string        `json:"id,omitempty"`
	Kind   string        `json:"kind"`
	Source string        `json:"source,omitempty"`
	Record record.Record `json:"record,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func newResult(id string, kind record.Kind, out record.Outcome[record.Record]) result {
	r := result{ID: id, Kind: kind.String()}
	if !out.OK() {
		r.Error = out.Err.Error()
		return r
	}
	r.Source = out.Source.String()
	r.Record = out.Value
	return r
}

// write prints v in the selected format. YAML is produced from the JSON
// rendering so field names and order match the json tags.
func (a *app) write(w io.Writer, v any) error {
	text := utils.JSONToString(v, true)
	if a.outputFormat == "yaml" {
		converted, err := jsonToYAML(text)
		if err != nil {
			return err
		}
		text = converted
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func jsonToYAML(text string) (string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return "", fmt.Errorf("failed to convert output to yaml: %w", err)
	}
	plainStyle(&node)
	data, err := yaml.Marshal(&node)
	if err != nil {
		return "", fmt.Errorf("failed to convert output to yaml: %w", err)
	}
	return string(data), nil
}

// plainStyle drops the flow and quoting styles JSON input carries; the
// encoder re-quotes scalars that need it.
func plainStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plainStyle(c)
	}
}
