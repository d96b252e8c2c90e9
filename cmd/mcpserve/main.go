package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/mcpserve/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcpserve",
	Short: "Discover executable tools and publish them as MCP tools",
	Long:  "mcpserve scans a directory for executables, loads their YAML tool definitions, and maintains a catalog of MCP tools.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("mcpserve version %s\n", version))

	cli.ConfigureRoot(rootCmd)
}
