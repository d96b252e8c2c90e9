package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/mcpserve/tool"
)

// NewInspectCmd creates the "inspect" subcommand.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print a tool definition or its MCP projection",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	cmd.Flags().Bool("mcp", false, "Print the MCP tools/list entry instead of the full definition")
	cmd.Flags().String("format", "json", "Output format: json | yaml")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	asMCP, _ := cmd.Flags().GetBool("mcp")
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format, "json", "yaml"); err != nil {
		return err
	}

	data, err := readInputFile(args[0])
	if err != nil {
		return err
	}
	def, err := tool.Parse(data)
	if err != nil {
		var parseErr *tool.ParseError
		if errors.As(err, &parseErr) {
			parseErr.Source = args[0]
		}
		return exitError(exitValidation, "%v", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case asMCP && format == "yaml":
		return writeYAML(out, def.ToMCPTool())
	case asMCP:
		return writeJSON(out, def.ToMCPTool())
	case format == "yaml":
		encoded, err := tool.Marshal(def)
		if err != nil {
			return exitError(exitRuntime, "encoding definition: %v", err)
		}
		_, _ = out.Write(encoded)
		return nil
	default:
		return writeJSON(out, def)
	}
}

// writeYAML renders v through its JSON encoding so json tags decide field
// names and order.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return exitError(exitRuntime, "encoding output: %v", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return exitError(exitRuntime, "encoding output: %v", err)
	}
	clearFlowStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return exitError(exitRuntime, "encoding output: %v", err)
	}
	if err := enc.Close(); err != nil {
		return exitError(exitRuntime, "encoding output: %v", err)
	}
	return nil
}

func clearFlowStyle(node *yaml.Node) {
	if node.Kind == yaml.MappingNode || node.Kind == yaml.SequenceNode {
		node.Style &^= yaml.FlowStyle
	}
	if node.Kind == yaml.ScalarNode && node.Style&yaml.DoubleQuotedStyle != 0 && node.Tag == "!!str" {
		node.Style = 0
	}
	for _, child := range node.Content {
		clearFlowStyle(child)
	}
}
