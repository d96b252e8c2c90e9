package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/mcpserve/catalog"
)

// NewCatalogCmd creates the "catalog" command group.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Build and manage the persisted tool catalog",
	}
	cmd.PersistentFlags().String("store-driver", "", "Catalog store driver: sqlite | file (default from config)")
	cmd.PersistentFlags().String("store-path", "", "Catalog store path (default: ~/.mcpserve/catalog.db)")

	cmd.AddCommand(newCatalogBuildCmd())
	cmd.AddCommand(newCatalogListCmd())
	cmd.AddCommand(newCatalogShowCmd())
	cmd.AddCommand(newCatalogRemoveCmd())
	cmd.AddCommand(newCatalogExportCmd())

	return cmd
}

func newCatalogBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Scan a directory and load every tool definition",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCatalogBuild,
	}
	cmd.Flags().Bool("sync", false, "Write the result into the catalog store")
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().String("ignore-file", "", "Ignore file name, or - to disable (default: .mcpignore)")
	return cmd
}

func runCatalogBuild(cmd *cobra.Command, args []string) error {
	env, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	doSync, _ := cmd.Flags().GetBool("sync")
	ignoreFile, _ := cmd.Flags().GetString("ignore-file")

	stop, err := startTelemetry(cmd.Context(), env)
	if err != nil {
		return err
	}
	defer stop()

	dir := dirArg(args, env.cfg)
	snapshot, err := catalog.Build(cmd.Context(), dir, catalog.BuildOptions{
		Logger:     env.logger,
		IgnoreFile: ignoreFile,
	})
	if err != nil {
		return scanExitError(dir, err)
	}

	var result *catalog.SyncResult
	if doSync {
		store, err := resolveCatalogStore(cmd, env)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		synced, err := catalog.Sync(cmd.Context(), store, snapshot)
		if err != nil {
			return exitError(exitRuntime, "syncing catalog: %v", err)
		}
		result = &synced
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, struct {
			Snapshot catalog.Snapshot    `json:"snapshot"`
			Sync     *catalog.SyncResult `json:"sync,omitempty"`
		}{snapshot, result})
	}

	if err := printEntries(out, snapshot.Entries); err != nil {
		return err
	}
	counts := snapshot.Counts()
	fmt.Fprintf(out, "\n%d ready, %d invalid, %d unresolved\n",
		counts[catalog.StatusReady], counts[catalog.StatusInvalid], counts[catalog.StatusUnresolved])
	if result != nil {
		fmt.Fprintf(out, "Synced: %d added, %d updated, %d removed, %d unchanged\n",
			len(result.Added), len(result.Updated), len(result.Removed), len(result.Unchanged))
	}
	return nil
}

func newCatalogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE:  runCatalogList,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	env, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}

	store, err := resolveCatalogStore(cmd, env)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return exitError(exitRuntime, "listing catalog: %v", err)
	}
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	return printEntries(cmd.OutOrStdout(), entries)
}

func newCatalogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show catalog entries by tool or file name",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalogShow,
	}
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	env, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	store, err := resolveCatalogStore(cmd, env)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	matches, err := catalog.FindByName(cmd.Context(), store, args[0])
	if err != nil {
		return exitError(exitRuntime, "loading catalog: %v", err)
	}
	if len(matches) == 0 {
		return exitError(exitValidation, "tool %q is not in the catalog", args[0])
	}
	if len(matches) == 1 {
		return writeJSON(cmd.OutOrStdout(), matches[0])
	}
	return writeJSON(cmd.OutOrStdout(), matches)
}

func newCatalogRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove catalog entries by tool or file name",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalogRemove,
	}
}

func runCatalogRemove(cmd *cobra.Command, args []string) error {
	env, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	store, err := resolveCatalogStore(cmd, env)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	name := args[0]
	matches, err := catalog.FindByName(cmd.Context(), store, name)
	if err != nil {
		return exitError(exitRuntime, "loading catalog: %v", err)
	}
	if len(matches) == 0 {
		return exitError(exitValidation, "tool %q is not in the catalog", name)
	}
	for _, entry := range matches {
		if err := store.Delete(cmd.Context(), entry.Key()); err != nil {
			return exitError(exitRuntime, "removing %q: %v", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed tool: %s (%s)\n", entry.Name, entry.ExecutablePath)
	}
	return nil
}

func newCatalogExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print ready tools as an MCP tools/list result",
		Args:  cobra.NoArgs,
		RunE:  runCatalogExport,
	}
	cmd.Flags().String("dir", "", "Build from this directory instead of reading the store")
	return cmd
}

func runCatalogExport(cmd *cobra.Command, _ []string) error {
	env, err := resolveEnv(cmd)
	if err != nil {
		return err
	}

	var entries []catalog.Entry
	if dir, _ := cmd.Flags().GetString("dir"); strings.TrimSpace(dir) != "" {
		snapshot, err := catalog.Build(cmd.Context(), dir, catalog.BuildOptions{Logger: env.logger})
		if err != nil {
			return scanExitError(dir, err)
		}
		entries = snapshot.Entries
	} else {
		store, err := resolveCatalogStore(cmd, env)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if entries, err = store.List(cmd.Context()); err != nil {
			return exitError(exitRuntime, "listing catalog: %v", err)
		}
	}

	result, err := catalog.ListToolsResult(entries)
	if err != nil {
		return exitError(exitRuntime, "exporting catalog: %v", err)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

// resolveCatalogStore opens the store selected by flags, falling back to
// configuration.
func resolveCatalogStore(cmd *cobra.Command, env commandEnv) (catalog.Store, error) {
	driver, _ := cmd.Flags().GetString("store-driver")
	if strings.TrimSpace(driver) == "" {
		driver = env.cfg.Store.Driver
	}
	path, _ := cmd.Flags().GetString("store-path")
	if strings.TrimSpace(path) == "" {
		path = env.cfg.Store.Path
	}

	store, err := catalog.OpenStore(driver, path)
	if err != nil {
		return nil, exitError(exitRuntime, "opening catalog store: %v", err)
	}
	return store, nil
}

func printEntries(w io.Writer, entries []catalog.Entry) error {
	writer := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tSTATUS\tMETADATA\tPATH")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", entry.Name, entry.Status, entry.Metadata.Kind, entry.ExecutablePath)
	}
	return writer.Flush()
}
