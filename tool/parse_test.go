package tool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const createTicketYAML = `name: create_ticket
title: Create Ticket
description: Creates a ticket in the tracker
input:
  template: "--title {{title}} {{body}}"
  schema:
    type: object
    properties:
      title:
        type: string
      body:
        type: string
    required: [title, body]
output:
  template: "Created (?<id>[A-Z]+-\\d+)"
  schema:
    type: object
    properties:
      id:
        type: string
annotations:
  readOnlyHint: false
  owner: platform
`

func TestParse_ValidDefinition(t *testing.T) {
	def, err := Parse([]byte(createTicketYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if def.Name != "create_ticket" {
		t.Errorf("Name = %q, want create_ticket", def.Name)
	}
	if def.Title != "Create Ticket" {
		t.Errorf("Title = %q", def.Title)
	}
	if def.Input.Template != "--title {{title}} {{body}}" {
		t.Errorf("Input.Template = %q", def.Input.Template)
	}
	if def.Output.Template != `Created (?<id>[A-Z]+-\d+)` {
		t.Errorf("Output.Template = %q", def.Output.Template)
	}

	schema, ok := def.Input.Schema.(map[string]any)
	if !ok {
		t.Fatalf("Input.Schema type = %T, want map[string]any", def.Input.Schema)
	}
	if schema["type"] != "object" {
		t.Errorf("Input.Schema.type = %v", schema["type"])
	}
	required, ok := schema["required"].([]any)
	if !ok || len(required) != 2 || required[0] != "title" {
		t.Errorf("Input.Schema.required = %#v", schema["required"])
	}
	if def.Annotations["owner"] != "platform" || def.Annotations["readOnlyHint"] != false {
		t.Errorf("Annotations = %#v", def.Annotations)
	}
}

func TestParse_OpaqueSchemasAcceptAnyStructuredValue(t *testing.T) {
	doc := `name: odd
description: schemas are not validated here
input:
  template: ""
  schema: [1, two, {three: 3}]
output:
  template: "(?<all>.*)"
  schema: null
`
	def, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	list, ok := def.Input.Schema.([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("Input.Schema = %#v", def.Input.Schema)
	}
	if _, ok := list[2].(map[string]any); !ok {
		t.Errorf("nested mapping type = %T, want map[string]any", list[2])
	}
	if def.Output.Schema != nil {
		t.Errorf("Output.Schema = %#v, want nil", def.Output.Schema)
	}
}

func TestParse_NonStringMappingKeysAreNormalized(t *testing.T) {
	doc := `name: codes
description: exit codes
input:
  template: ""
  schema:
    type: object
output:
  template: ""
  schema:
    exit_codes:
      0: ok
      1: failed
`
	def, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	schema := def.Output.Schema.(map[string]any)
	codes, ok := schema["exit_codes"].(map[string]any)
	if !ok {
		t.Fatalf("exit_codes type = %T, want map[string]any", schema["exit_codes"])
	}
	if codes["0"] != "ok" || codes["1"] != "failed" {
		t.Errorf("exit_codes = %#v", codes)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		code     string
		field    string
		wantLine int
	}{
		{
			name: "missing output",
			doc: `name: t
description: d
input:
  template: x
  schema: {}
`,
			code:  CodeRequiredField,
			field: "output",
		},
		{
			name: "missing input",
			doc: `name: t
description: d
output:
  template: x
  schema: {}
`,
			code:  CodeRequiredField,
			field: "input",
		},
		{
			name: "missing name",
			doc: `description: d
input: {template: x, schema: {}}
output: {template: x, schema: {}}
`,
			code:  CodeRequiredField,
			field: "name",
		},
		{
			name: "empty name",
			doc: `name: ""
description: d
input: {template: x, schema: {}}
output: {template: x, schema: {}}
`,
			code:     CodeRequiredField,
			field:    "name",
			wantLine: 1,
		},
		{
			name: "missing description",
			doc: `name: t
input: {template: x, schema: {}}
output: {template: x, schema: {}}
`,
			code:  CodeRequiredField,
			field: "description",
		},
		{
			name: "scalar input",
			doc: `name: t
description: d
input: "--flag"
output: {template: x, schema: {}}
`,
			code:     CodeInvalidShape,
			field:    "input",
			wantLine: 3,
		},
		{
			name: "missing input template",
			doc: `name: t
description: d
input:
  schema: {}
output: {template: x, schema: {}}
`,
			code:  CodeRequiredField,
			field: "input.template",
		},
		{
			name: "missing output schema",
			doc: `name: t
description: d
input: {template: x, schema: {}}
output:
  template: x
`,
			code:  CodeRequiredField,
			field: "output.schema",
		},
		{
			name: "numeric name",
			doc: `name: 42
description: d
input: {template: x, schema: {}}
output: {template: x, schema: {}}
`,
			code:     CodeInvalidShape,
			field:    "name",
			wantLine: 1,
		},
		{
			name: "sequence annotations",
			doc: `name: t
description: d
input: {template: x, schema: {}}
output: {template: x, schema: {}}
annotations: [a, b]
`,
			code:     CodeInvalidShape,
			field:    "annotations",
			wantLine: 5,
		},
		{
			name: "duplicate key",
			doc: `name: t
name: u
description: d
input: {template: x, schema: {}}
output: {template: x, schema: {}}
`,
			code:     CodeDuplicateField,
			field:    "name",
			wantLine: 2,
		},
		{
			name:  "scalar document",
			doc:   "just text\n",
			code:  CodeInvalidShape,
			field: "",
		},
		{
			name: "empty document",
			doc:  "",
			code: CodeInvalidShape,
		},
		{
			name: "invalid yaml",
			doc: `name: t
description: d
input: {template: x, schema: {}
`,
			code: CodeYAMLSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatalf("Parse() succeeded with %+v, want error", def)
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}

			var found bool
			for _, d := range Errors(parseErr.Diagnostics) {
				if d.Code != tt.code || d.Field != tt.field {
					continue
				}
				found = true
				if tt.wantLine != 0 && d.Line != tt.wantLine {
					t.Errorf("line = %d, want %d", d.Line, tt.wantLine)
				}
			}
			if !found {
				t.Fatalf("diagnostics = %+v, want code %s on field %q", parseErr.Diagnostics, tt.code, tt.field)
			}
		})
	}
}

func TestParse_SyntaxErrorCarriesLine(t *testing.T) {
	_, err := Parse([]byte("name: t\ndescription: [unterminated\n"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if len(parseErr.Diagnostics) != 1 || parseErr.Diagnostics[0].Line == 0 {
		t.Fatalf("diagnostics = %+v, want one diagnostic with a line", parseErr.Diagnostics)
	}
	if !strings.Contains(err.Error(), "line ") {
		t.Errorf("Error() = %q, want line context", err.Error())
	}
}

func TestDecode_WarningsDoNotFail(t *testing.T) {
	doc := `name: t
description: ""
version: 2
input:
  template: x
  schema: {}
  example: "--x 1"
output: {template: x, schema: {}}
`
	def, diags := Decode([]byte(doc))
	if HasErrors(diags) {
		t.Fatalf("unexpected errors: %+v", diags)
	}
	warnings := Warnings(diags)
	if len(warnings) != 3 {
		t.Fatalf("warnings = %+v, want 3", warnings)
	}
	if warnings[0].Field != "version" || warnings[0].Code != CodeUnknownField {
		t.Errorf("warnings[0] = %+v", warnings[0])
	}
	if warnings[1].Field != "description" || warnings[1].Code != CodeEmptyField {
		t.Errorf("warnings[1] = %+v", warnings[1])
	}
	if warnings[2].Field != "input.example" || warnings[2].Line != 7 {
		t.Errorf("warnings[2] = %+v", warnings[2])
	}

	if _, err := Parse([]byte(doc)); err != nil {
		t.Fatalf("Parse() error = %v, want warnings to be tolerated", err)
	}
	if def.Name != "t" {
		t.Errorf("Name = %q", def.Name)
	}
}

func TestParse_Aliases(t *testing.T) {
	doc := `name: t
description: d
input:
  template: "{{q}}"
  schema: &shared
    type: object
output:
  template: "(?<q>.*)"
  schema: *shared
`
	def, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !equalValue(def.Input.Schema, def.Output.Schema) {
		t.Errorf("aliased schemas differ: %#v vs %#v", def.Input.Schema, def.Output.Schema)
	}
}

func TestParse_TimestampsKeepSourceText(t *testing.T) {
	doc := `name: dated
description: d
input:
  template: "{{since}}"
  schema:
    const: 2024-01-01
    properties:
      since: {default: 2001-12-14}
output:
  template: "(?<x>.*)"
  schema: {}
annotations:
  released: 2023-06-30
`
	def, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	projected := def.ToMCPTool()
	schema := projected.InputSchema.(map[string]any)
	if schema["const"] != "2024-01-01" {
		t.Errorf("const = %#v, want \"2024-01-01\"", schema["const"])
	}
	since := schema["properties"].(map[string]any)["since"].(map[string]any)
	if since["default"] != "2001-12-14" {
		t.Errorf("default = %#v, want \"2001-12-14\"", since["default"])
	}
	if projected.Annotations["released"] != "2023-06-30" {
		t.Errorf("released = %#v, want \"2023-06-30\"", projected.Annotations["released"])
	}

	data, err := Marshal(def)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "T00:00:00Z") {
		t.Errorf("Marshal() rewrote a date:\n%s", data)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error = %v", err)
	}
	if !Equal(def, again) {
		t.Errorf("round trip changed the definition:\n%#v\n%#v", def, again)
	}
}

func TestParse_RejectsValuesJSONCannotCarry(t *testing.T) {
	base := `name: t
description: d
input:
  template: x
  schema: %s
output:
  template: x
  schema: %s
annotations: %s
`
	tests := []struct {
		name        string
		input       string
		output      string
		annotations string
		field       string
	}{
		{name: "positive infinity", input: "{maximum: .inf}", output: "{}", annotations: "{}", field: "input.schema"},
		{name: "not a number", input: "{}", output: "{minimum: .nan}", annotations: "{}", field: "output.schema"},
		{name: "negative infinity in annotation", input: "{}", output: "{}", annotations: "{floor: -.inf}", field: "annotations.floor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := fmt.Sprintf(base, tt.input, tt.output, tt.annotations)
			_, err := Parse([]byte(doc))
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			errs := Errors(parseErr.Diagnostics)
			if len(errs) != 1 || errs[0].Field != tt.field || errs[0].Code != CodeInvalidShape {
				t.Fatalf("diagnostics = %+v, want one %s on %s", errs, CodeInvalidShape, tt.field)
			}
			if !strings.Contains(errs[0].Message, "JSON-representable") {
				t.Errorf("message = %q", errs[0].Message)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "create-ticket.yaml")
	if err := os.WriteFile(good, []byte(createTicketYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(bad, []byte("name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	def, err := ParseFile(good)
	if err != nil {
		t.Fatalf("ParseFile(good) error = %v", err)
	}
	if def.Name != "create_ticket" {
		t.Errorf("Name = %q", def.Name)
	}

	_, err = ParseFile(bad)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("ParseFile(bad) error = %v, want *ParseError", err)
	}
	if parseErr.Source != bad {
		t.Errorf("Source = %q, want %q", parseErr.Source, bad)
	}
	if !strings.Contains(err.Error(), bad) {
		t.Errorf("Error() = %q, want path", err.Error())
	}

	_, err = ParseFile(filepath.Join(dir, "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ParseFile(missing) error = %v, want os.ErrNotExist", err)
	}
}
