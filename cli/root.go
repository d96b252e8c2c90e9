package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/mcpserve/config"
)

// ConfigureRoot registers the global flags and every subcommand on root.
func ConfigureRoot(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Path to mcpserve.yaml or .toml (default: ./mcpserve.yaml, ~/.mcpserve/config.yaml)")
	root.PersistentFlags().BoolP("verbose", "", false, "Enable verbose/debug logging")
	root.PersistentFlags().BoolP("quiet", "", false, "Suppress all logging except errors")
	root.PersistentFlags().String("log-format", "", "Log format: text | json (default from config)")

	root.AddCommand(NewScanCmd())
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewInspectCmd())
	root.AddCommand(NewCatalogCmd())
	root.AddCommand(NewWatchCmd())
}

// commandEnv is the resolved configuration and logger for one invocation.
type commandEnv struct {
	cfg    config.Config
	logger *slog.Logger
}

// resolveEnv loads configuration and builds a logger writing to the
// command's stderr. Flags override config values.
func resolveEnv(cmd *cobra.Command) (commandEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return commandEnv{}, exitError(exitFileNotFound, "%v", err)
		}
		return commandEnv{}, exitError(exitInputParse, "loading config: %v", err)
	}

	if format, _ := cmd.Flags().GetString("log-format"); strings.TrimSpace(format) != "" {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(format))
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return commandEnv{}, exitError(exitInputParse, "%v", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = slog.LevelError
	}

	logger, err := newLogger(cmd.ErrOrStderr(), level, cfg.Log.Format)
	if err != nil {
		return commandEnv{}, exitError(exitInputParse, "%v", err)
	}
	return commandEnv{cfg: cfg, logger: logger}, nil
}

func newLogger(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.New("log format must be text or json")
	}
}

// dirArg returns the directory argument or the configured tools dir.
func dirArg(args []string, cfg config.Config) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0]
	}
	return cfg.ToolsDir
}
