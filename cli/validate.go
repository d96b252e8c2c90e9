package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/mcpserve/tool"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a tool definition file",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	format, _ := cmd.Flags().GetString("format")
	strict, _ := cmd.Flags().GetBool("strict")
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}

	data, err := readInputFile(filePath)
	if err != nil {
		return err
	}

	_, diags := tool.Decode(data)
	out := cmd.OutOrStdout()
	if format == "json" {
		if diags == nil {
			diags = []tool.Diagnostic{}
		}
		if err := writeJSON(out, diags); err != nil {
			return err
		}
	} else {
		printDiagnosticsText(out, diags)
	}

	if tool.HasErrors(diags) || (strict && len(tool.Warnings(diags)) > 0) {
		return exitError(exitValidation, "validation failed")
	}
	return nil
}

func readInputFile(path string) ([]byte, error) {
	// #nosec G304 -- path is provided by the CLI user.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", path)
		}
		return nil, exitError(exitRuntime, "reading file: %v", err)
	}
	return data, nil
}

// printDiagnosticsText writes diagnostics as formatted text lines followed by
// a summary.
func printDiagnosticsText(w io.Writer, diags []tool.Diagnostic) {
	for _, d := range diags {
		sev := strings.ToUpper(string(d.Severity))
		fmt.Fprintf(w, "%s [%s]: %s\n", sev, d.Code, tool.FormatDiagnostic(d))
	}

	errs := tool.Errors(diags)
	warns := tool.Warnings(diags)

	switch {
	case len(errs) == 0 && len(warns) == 0:
		fmt.Fprintln(w, "Valid!")
	case len(errs) == 0:
		fmt.Fprintf(w, "\nValid! (%d %s)\n", len(warns), pluralize("warning", len(warns)))
	default:
		fmt.Fprintf(w, "\n%d %s, %d %s\n",
			len(errs), pluralize("error", len(errs)),
			len(warns), pluralize("warning", len(warns)))
	}
}

func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
