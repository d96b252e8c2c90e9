package tool

// MCPTool is the protocol-facing view of a tool. It carries schemas only;
// command-line and output templates never leave the server.
type MCPTool struct {
	Name         string         `json:"name"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description"`
	InputSchema  any            `json:"inputSchema"`
	OutputSchema any            `json:"outputSchema,omitempty"`
	Annotations  map[string]any `json:"annotations,omitempty"`
}

// ToMCPTool projects the definition onto its protocol shape. The result
// shares no mutable state with d.
func (d ToolDefinition) ToMCPTool() MCPTool {
	tool := MCPTool{
		Name:         d.Name,
		Title:        d.Title,
		Description:  d.Description,
		InputSchema:  cloneValue(d.Input.Schema),
		OutputSchema: cloneValue(d.Output.Schema),
	}
	if len(d.Annotations) > 0 {
		tool.Annotations = cloneMap(d.Annotations)
	}
	return tool
}
