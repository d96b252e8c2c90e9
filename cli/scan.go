package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/mcpserve/scanner"
)

// NewScanCmd creates the "scan" subcommand.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "List executable tools in a directory and where their metadata lives",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	env, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	dir := dirArg(args, env.cfg)

	s := scanner.New()
	tools, err := s.ScanDirectory(dir)
	if err != nil {
		return scanExitError(dir, err)
	}
	for _, scanErr := range s.TakeErrors() {
		env.logger.Warn("scan warning", "error", scanErr)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, tools)
	}

	writer := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tMETADATA\tPATH")
	for _, t := range tools {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", t.Name(), t.Metadata.Kind, t.Metadata.Path)
	}
	return writer.Flush()
}

func scanExitError(dir string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return exitError(exitFileNotFound, "directory not found: %s", dir)
	case errors.Is(err, scanner.ErrNotDirectory):
		return exitError(exitInputParse, "not a directory: %s", dir)
	default:
		return exitError(exitRuntime, "%v", err)
	}
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return exitError(exitInputParse, "unsupported format %q", format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return exitError(exitRuntime, "encoding output: %v", err)
	}
	return nil
}
