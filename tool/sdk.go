package tool

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

var defaultInputSchema = json.RawMessage(`{"type":"object"}`)

// Standard MCP behavior hints recognized in annotations.
const (
	AnnotationReadOnlyHint    = "readOnlyHint"
	AnnotationDestructiveHint = "destructiveHint"
	AnnotationIdempotentHint  = "idempotentHint"
	AnnotationOpenWorldHint   = "openWorldHint"
)

var standardHints = map[string]struct{}{
	AnnotationReadOnlyHint:    {},
	AnnotationDestructiveHint: {},
	AnnotationIdempotentHint:  {},
	AnnotationOpenWorldHint:   {},
}

// SDKTool converts the projection into the mcp-go wire type. Schemas are
// passed through as raw JSON. Boolean standard hints become typed
// annotations; every other annotation is carried in the tool's _meta.
func (t MCPTool) SDKTool() (mcp.Tool, error) {
	input := defaultInputSchema
	if t.InputSchema != nil {
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			return mcp.Tool{}, fmt.Errorf("tool: encode input schema for %q: %w", t.Name, err)
		}
		input = raw
	}

	out := mcp.Tool{
		Name:           t.Name,
		Description:    t.Description,
		RawInputSchema: input,
		Annotations: mcp.ToolAnnotation{
			Title:           t.Title,
			ReadOnlyHint:    boolHint(t.Annotations, AnnotationReadOnlyHint),
			DestructiveHint: boolHint(t.Annotations, AnnotationDestructiveHint),
			IdempotentHint:  boolHint(t.Annotations, AnnotationIdempotentHint),
			OpenWorldHint:   boolHint(t.Annotations, AnnotationOpenWorldHint),
		},
	}

	if extra := extraAnnotations(t.Annotations); len(extra) > 0 {
		out.Meta = &mcp.Meta{AdditionalFields: extra}
	}

	if t.OutputSchema != nil {
		raw, err := json.Marshal(t.OutputSchema)
		if err != nil {
			return mcp.Tool{}, fmt.Errorf("tool: encode output schema for %q: %w", t.Name, err)
		}
		out.RawOutputSchema = raw
	}
	return out, nil
}

func boolHint(annotations map[string]any, key string) *bool {
	value, ok := annotations[key].(bool)
	if !ok {
		return nil
	}
	return &value
}

func extraAnnotations(annotations map[string]any) map[string]any {
	var out map[string]any
	for key, value := range annotations {
		if _, hint := standardHints[key]; hint {
			if _, ok := value.(bool); ok {
				continue
			}
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[key] = cloneValue(value)
	}
	return out
}
