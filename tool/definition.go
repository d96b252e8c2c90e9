package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// ToolDefinition describes how to invoke an executable and interpret its
// output. It is loaded from a sidecar or embedded YAML document.
type ToolDefinition struct {
	Name        string         `yaml:"name" json:"name"`
	Title       string         `yaml:"title,omitempty" json:"title,omitempty"`
	Description string         `yaml:"description" json:"description"`
	Input       IOSpec         `yaml:"input" json:"input"`
	Output      IOSpec         `yaml:"output" json:"output"`
	Annotations map[string]any `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// IOSpec pairs a template with an opaque schema.
//
// For input, Template renders JSON arguments into a command line using
// {{property}} substitution, [...] optional sections and [...item...]
// repetition. For output, Template is a regular expression with named
// capture groups applied to the process output.
type IOSpec struct {
	Template string `yaml:"template" json:"template"`
	Schema   any    `yaml:"schema" json:"schema"`
}

// Marshal encodes a definition as a YAML document that Parse accepts.
func Marshal(def ToolDefinition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, fmt.Errorf("tool: marshal definition %q: %w", def.Name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("tool: marshal definition %q: %w", def.Name, err)
	}
	return buf.Bytes(), nil
}

// Equal reports whether two definitions describe the same tool. Opaque
// values are compared by content, so mapping key order is irrelevant and
// an empty annotation map equals a nil one.
func Equal(a, b ToolDefinition) bool {
	if a.Name != b.Name || a.Title != b.Title || a.Description != b.Description {
		return false
	}
	if a.Input.Template != b.Input.Template || a.Output.Template != b.Output.Template {
		return false
	}
	if !equalValue(a.Input.Schema, b.Input.Schema) || !equalValue(a.Output.Schema, b.Output.Schema) {
		return false
	}
	if len(a.Annotations) == 0 && len(b.Annotations) == 0 {
		return true
	}
	return equalValue(a.Annotations, b.Annotations)
}

func equalValue(a, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(left, right)
}

// Clone returns a deep copy of the definition.
func (d ToolDefinition) Clone() ToolDefinition {
	out := d
	out.Input.Schema = cloneValue(d.Input.Schema)
	out.Output.Schema = cloneValue(d.Output.Schema)
	out.Annotations = cloneMap(d.Annotations)
	return out
}
