// Package tool defines the metadata model for discovered tools.
//
// The package is split by concern:
//   - definition: the serving-oriented ToolDefinition and its YAML encoding
//   - parse: YAML decoding with field/line diagnostics
//   - mcp: the protocol-facing MCPTool projection and its mcp-go conversion
//
// Schemas are opaque structured values. They are normalized so they can be
// re-encoded as JSON, but never validated against JSON Schema here.
package tool
