package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/mcpserve/catalog"
)

// NewWatchCmd creates the "watch" subcommand.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Rescan a directory on a schedule and keep the catalog store in sync",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	cmd.Flags().String("schedule", "", "Cron expression or @every descriptor (default from config)")
	cmd.Flags().String("store-driver", "", "Catalog store driver: sqlite | file (default from config)")
	cmd.Flags().String("store-path", "", "Catalog store path (default: ~/.mcpserve/catalog.db)")
	cmd.Flags().Bool("once", false, "Run a single rescan and exit")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	schedule, _ := cmd.Flags().GetString("schedule")
	if strings.TrimSpace(schedule) == "" {
		schedule = env.cfg.Watch.Schedule
	}
	once, _ := cmd.Flags().GetBool("once")

	store, err := resolveCatalogStore(cmd, env)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stop, err := startTelemetry(cmd.Context(), env)
	if err != nil {
		return err
	}
	defer stop()

	out := cmd.OutOrStdout()
	dir := dirArg(args, env.cfg)
	watcher, err := catalog.NewWatcher(catalog.WatcherConfig{
		Directory: dir,
		Schedule:  schedule,
		Store:     store,
		Logger:    env.logger,
		OnSync: func(snapshot catalog.Snapshot, result catalog.SyncResult) {
			if result.Changed() {
				fmt.Fprintf(out, "%s: %d added, %d updated, %d removed\n",
					snapshot.ScannedAt.Format(time.RFC3339),
					len(result.Added), len(result.Updated), len(result.Removed))
			}
		},
	})
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}

	// The first rescan runs immediately so a missing directory fails fast.
	if _, _, err := watcher.RunOnce(cmd.Context()); err != nil {
		return scanExitError(dir, err)
	}
	if once {
		return nil
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env.logger.Info("watching tools directory", "directory", dir, "schedule", schedule)
	watcher.Start(ctx)
	<-ctx.Done()
	watcher.Stop()
	env.logger.Info("watch stopped", "directory", dir)
	return nil
}
