package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

var yamlErrorLine = regexp.MustCompile(`line (\d+)`)

var knownTopLevelFields = map[string]struct{}{
	"name":        {},
	"title":       {},
	"description": {},
	"input":       {},
	"output":      {},
	"annotations": {},
}

// ParseFile reads and parses a definition document from disk.
func ParseFile(path string) (ToolDefinition, error) {
	// #nosec G304 -- path comes from a scanned metadata source or explicit CLI input.
	data, err := os.ReadFile(path)
	if err != nil {
		return ToolDefinition{}, fmt.Errorf("tool: read definition %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.Source = path
		}
		return ToolDefinition{}, err
	}
	return def, nil
}

// Parse decodes a YAML definition document. It returns a *ParseError when
// the document is not valid YAML, a required field is missing, or a field
// has the wrong shape. Warnings alone never fail parsing.
func Parse(data []byte) (ToolDefinition, error) {
	def, diags := Decode(data)
	if HasErrors(diags) {
		return ToolDefinition{}, &ParseError{Diagnostics: diags}
	}
	return def, nil
}

// Decode decodes a YAML definition document and returns every diagnostic
// found, including warnings. The definition is only meaningful when the
// diagnostics contain no errors.
func Decode(data []byte) (ToolDefinition, []Diagnostic) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ToolDefinition{}, []Diagnostic{syntaxDiagnostic(err)}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return ToolDefinition{}, []Diagnostic{{
			Code:     CodeInvalidShape,
			Severity: SeverityError,
			Message:  "document is empty",
		}}
	}

	d := &decoder{}
	def := d.definition(resolve(doc.Content[0]))
	return def, d.diags
}

func syntaxDiagnostic(err error) Diagnostic {
	diag := Diagnostic{
		Code:     CodeYAMLSyntax,
		Severity: SeverityError,
		Message:  err.Error(),
	}
	if m := yamlErrorLine.FindStringSubmatch(err.Error()); m != nil {
		diag.Line, _ = strconv.Atoi(m[1])
	}
	return diag
}

type decoder struct {
	diags []Diagnostic
}

func (d *decoder) add(node *yaml.Node, severity Severity, field, code, format string, args ...any) {
	diag := Diagnostic{
		Field:    field,
		Code:     code,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	}
	if node != nil {
		diag.Line = node.Line
		diag.Column = node.Column
	}
	d.diags = append(d.diags, diag)
}

func (d *decoder) errorf(node *yaml.Node, field, code, format string, args ...any) {
	d.add(node, SeverityError, field, code, format, args...)
}

func (d *decoder) warnf(node *yaml.Node, field, code, format string, args ...any) {
	d.add(node, SeverityWarning, field, code, format, args...)
}

func (d *decoder) definition(root *yaml.Node) ToolDefinition {
	var def ToolDefinition
	if root.Kind != yaml.MappingNode {
		d.errorf(root, "", CodeInvalidShape, "document must be a mapping, got %s", kindName(root))
		return def
	}

	fields, order := d.fields(root, "")
	for _, key := range order {
		if _, ok := knownTopLevelFields[key]; !ok {
			d.warnf(fields[key].key, key, CodeUnknownField, "unknown field %q is ignored", key)
		}
	}

	def.Name = d.requiredString(root, fields, "name", "name")
	if def.Name == "" && fields["name"].value != nil && isString(fields["name"].value) {
		d.errorf(fields["name"].value, "name", CodeRequiredField, "name must not be empty")
	}
	def.Title = d.optionalString(fields, "title", "title")
	def.Description = d.requiredString(root, fields, "description", "description")
	if pair, ok := fields["description"]; ok && isString(pair.value) && pair.value.Value == "" {
		d.warnf(pair.value, "description", CodeEmptyField, "description is empty")
	}
	def.Input = d.ioSpec(root, fields, "input")
	def.Output = d.ioSpec(root, fields, "output")
	def.Annotations = d.annotations(fields)
	return def
}

type fieldPair struct {
	key   *yaml.Node
	value *yaml.Node
}

// fields indexes a mapping node by key and returns the keys in document
// order. Duplicate keys are reported and the first occurrence wins.
func (d *decoder) fields(mapping *yaml.Node, prefix string) (map[string]fieldPair, []string) {
	out := make(map[string]fieldPair, len(mapping.Content)/2)
	order := make([]string, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := resolve(mapping.Content[i])
		value := resolve(mapping.Content[i+1])
		name := key.Value
		if _, exists := out[name]; exists {
			d.errorf(key, joinField(prefix, name), CodeDuplicateField, "field %q is defined more than once", name)
			continue
		}
		out[name] = fieldPair{key: key, value: value}
		order = append(order, name)
	}
	return out, order
}

func (d *decoder) requiredString(parent *yaml.Node, fields map[string]fieldPair, key, field string) string {
	pair, ok := fields[key]
	if !ok || isNull(pair.value) {
		d.errorf(parent, field, CodeRequiredField, "%s is required", field)
		return ""
	}
	if !isString(pair.value) {
		d.errorf(pair.value, field, CodeInvalidShape, "%s must be a string, got %s", field, kindName(pair.value))
		return ""
	}
	return pair.value.Value
}

func (d *decoder) optionalString(fields map[string]fieldPair, key, field string) string {
	pair, ok := fields[key]
	if !ok || isNull(pair.value) {
		return ""
	}
	if !isString(pair.value) {
		d.errorf(pair.value, field, CodeInvalidShape, "%s must be a string, got %s", field, kindName(pair.value))
		return ""
	}
	return pair.value.Value
}

func (d *decoder) ioSpec(parent *yaml.Node, fields map[string]fieldPair, key string) IOSpec {
	var spec IOSpec
	pair, ok := fields[key]
	if !ok || isNull(pair.value) {
		d.errorf(parent, key, CodeRequiredField, "%s is required", key)
		return spec
	}
	if pair.value.Kind != yaml.MappingNode {
		d.errorf(pair.value, key, CodeInvalidShape, "%s must be a mapping with template and schema, got %s", key, kindName(pair.value))
		return spec
	}

	nested, order := d.fields(pair.value, key)
	for _, name := range order {
		if name != "template" && name != "schema" {
			d.warnf(nested[name].key, joinField(key, name), CodeUnknownField, "unknown field %q is ignored", name)
		}
	}

	spec.Template = d.requiredString(pair.value, nested, "template", joinField(key, "template"))

	schema, ok := nested["schema"]
	if !ok {
		d.errorf(pair.value, joinField(key, "schema"), CodeRequiredField, "%s.schema is required", key)
		return spec
	}
	value, ok := d.opaque(schema.value, joinField(key, "schema"))
	if !ok {
		return spec
	}
	spec.Schema = value
	return spec
}

// opaque decodes a schema or annotation value into JSON-compatible data.
// Timestamps keep their source text and values JSON cannot carry, such as
// .inf and .nan, are rejected.
func (d *decoder) opaque(node *yaml.Node, field string) (any, bool) {
	keepTimestampsAsText(node, map[*yaml.Node]struct{}{})
	var value any
	if err := node.Decode(&value); err != nil {
		d.errorf(node, field, CodeInvalidShape, "decode %s: %v", field, err)
		return nil, false
	}
	value = normalizeValue(value)
	if _, err := json.Marshal(value); err != nil {
		d.errorf(node, field, CodeInvalidShape, "%s must be JSON-representable: %v", field, err)
		return nil, false
	}
	return value, true
}

func keepTimestampsAsText(node *yaml.Node, seen map[*yaml.Node]struct{}) {
	if node == nil {
		return
	}
	if _, ok := seen[node]; ok {
		return
	}
	seen[node] = struct{}{}
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!timestamp" {
		node.Tag = "!!str"
		return
	}
	keepTimestampsAsText(node.Alias, seen)
	for _, child := range node.Content {
		keepTimestampsAsText(child, seen)
	}
}

func (d *decoder) annotations(fields map[string]fieldPair) map[string]any {
	pair, ok := fields["annotations"]
	if !ok || isNull(pair.value) {
		return nil
	}
	if pair.value.Kind != yaml.MappingNode {
		d.errorf(pair.value, "annotations", CodeInvalidShape, "annotations must be a mapping, got %s", kindName(pair.value))
		return nil
	}

	nested, order := d.fields(pair.value, "annotations")
	out := make(map[string]any, len(nested))
	for _, name := range order {
		p := nested[name]
		if p.key.Kind != yaml.ScalarNode {
			d.errorf(p.key, "annotations", CodeInvalidShape, "annotation keys must be scalars")
			continue
		}
		value, ok := d.opaque(p.value, joinField("annotations", name))
		if !ok {
			continue
		}
		out[name] = value
	}
	return out
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

func isString(node *yaml.Node) bool {
	return node != nil && node.Kind == yaml.ScalarNode && node.ShortTag() == "!!str"
}

func kindName(node *yaml.Node) string {
	if node == nil {
		return "nothing"
	}
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!int", "!!float":
			return "number"
		case "!!bool":
			return "boolean"
		case "!!null":
			return "null"
		default:
			return "scalar"
		}
	default:
		return "node"
	}
}

func joinField(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
